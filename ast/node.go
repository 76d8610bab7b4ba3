// Copyright © 2024 The ELPS authors

// Package ast models Python syntax trees as consumed by the checker.
//
// A Node carries a Kind, a source position and a set of named fields. The
// fields every kind may hold are fixed by a schema (see Schema) and checked
// when the node is built with New, so later readers never check for
// unexpected shapes: an absent optional field simply reads as its zero
// value.
package ast

import (
	"fmt"
	"sort"
)

// Pos is a source position. Line is 1-based and Col is a 0-based byte
// offset into the line.
type Pos struct {
	Line int
	Col  int
}

// At is shorthand for Pos{Line: line, Col: col}.
func At(line, col int) Pos {
	return Pos{Line: line, Col: col}
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Before reports whether p sorts before q.
func (p Pos) Before(q Pos) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Col < q.Col
}

// Fields holds the values of a node's fields keyed by field name. Values
// must be *Node, []*Node, string, []string or int according to the schema.
type Fields map[string]any

// Node is a single syntax tree node.
type Node struct {
	Kind Kind
	Pos  Pos

	fields Fields
}

// Error reports a node that does not conform to its kind's schema.
type Error struct {
	Kind  Kind
	Pos   Pos
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed %s node at %s: field %q: %s", e.Kind, e.Pos, e.Field, e.Msg)
	}
	return fmt.Sprintf("malformed %s node at %s: %s", e.Kind, e.Pos, e.Msg)
}

// New builds a node of the given kind, validating f against the schema.
func New(kind Kind, pos Pos, f Fields) (*Node, error) {
	if !kind.Valid() {
		return nil, &Error{Kind: kind, Pos: pos, Msg: "unknown node kind"}
	}
	for name, v := range f {
		decl, ok := lookupField(kind, name)
		if !ok {
			return nil, &Error{Kind: kind, Pos: pos, Field: name, Msg: "not declared for this kind"}
		}
		if err := checkValue(kind, pos, decl, v); err != nil {
			return nil, err
		}
	}
	for _, decl := range Schema(kind) {
		if decl.Optional {
			continue
		}
		v, ok := f[decl.Name]
		if !ok || v == nil {
			return nil, &Error{Kind: kind, Pos: pos, Field: decl.Name, Msg: "required field missing"}
		}
	}
	n := &Node{Kind: kind, Pos: pos, fields: make(Fields, len(f))}
	for name, v := range f {
		n.fields[name] = v
	}
	return n, nil
}

// Must is like New but panics on a malformed node. It is meant for trees
// built from literals, such as in tests.
func Must(kind Kind, pos Pos, f Fields) *Node {
	n, err := New(kind, pos, f)
	if err != nil {
		panic(err)
	}
	return n
}

func checkValue(kind Kind, pos Pos, decl Field, v any) error {
	bad := func(msg string) error {
		return &Error{Kind: kind, Pos: pos, Field: decl.Name, Msg: msg}
	}
	switch decl.Type {
	case FieldNode:
		n, ok := v.(*Node)
		if !ok {
			return bad(fmt.Sprintf("want node, got %T", v))
		}
		if n == nil && !decl.Optional {
			return bad("required field missing")
		}
	case FieldList:
		nodes, ok := v.([]*Node)
		if !ok {
			return bad(fmt.Sprintf("want node list, got %T", v))
		}
		for i, n := range nodes {
			if n == nil {
				return bad(fmt.Sprintf("nil element at index %d", i))
			}
		}
	case FieldString:
		if _, ok := v.(string); !ok {
			return bad(fmt.Sprintf("want string, got %T", v))
		}
	case FieldStrings:
		if _, ok := v.([]string); !ok {
			return bad(fmt.Sprintf("want string list, got %T", v))
		}
	case FieldInt:
		if _, ok := v.(int); !ok {
			return bad(fmt.Sprintf("want int, got %T", v))
		}
	}
	return nil
}

// Child returns the node held by field name, or nil when it is absent.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	c, _ := n.fields[name].(*Node)
	return c
}

// List returns the node list held by field name.
func (n *Node) List(name string) []*Node {
	if n == nil {
		return nil
	}
	l, _ := n.fields[name].([]*Node)
	return l
}

// Str returns the string held by field name.
func (n *Node) Str(name string) string {
	if n == nil {
		return ""
	}
	s, _ := n.fields[name].(string)
	return s
}

// Strs returns the string list held by field name.
func (n *Node) Strs(name string) []string {
	if n == nil {
		return nil
	}
	s, _ := n.fields[name].([]string)
	return s
}

// Int returns the integer held by field name.
func (n *Node) Int(name string) int {
	if n == nil {
		return 0
	}
	i, _ := n.fields[name].(int)
	return i
}

// Has reports whether field name is present.
func (n *Node) Has(name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.fields[name]
	return ok
}

// Ctx returns the expression context of Name, Attribute, Subscript,
// Starred, List and Tuple nodes. Nodes without a context read as Load.
func (n *Node) Ctx() string {
	if c := n.Str("ctx"); c != "" {
		return c
	}
	return Load
}

// FieldNames returns the names of the fields present on n, in schema order.
func (n *Node) FieldNames() []string {
	if n == nil {
		return nil
	}
	var names []string
	for _, decl := range Schema(n.Kind) {
		if _, ok := n.fields[decl.Name]; ok {
			names = append(names, decl.Name)
		}
	}
	return names
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case Name:
		return fmt.Sprintf("Name(%s)@%s", n.Str("id"), n.Pos)
	case Alias:
		return fmt.Sprintf("Alias(%s)", n.Str("name"))
	}
	names := n.FieldNames()
	sort.Strings(names)
	return fmt.Sprintf("%s%v@%s", n.Kind, names, n.Pos)
}
