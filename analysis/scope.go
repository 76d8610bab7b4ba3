// Copyright © 2024 The ELPS authors

package analysis

import (
	"sort"

	"github.com/luthersystems/flakes/ast"
)

// ScopeKind classifies the kind of scope.
type ScopeKind int

const (
	ScopeModule   ScopeKind = iota // module body
	ScopeFunction                  // def or lambda body
	ScopeClass                     // class body
	ScopeTypeParams                // type parameters of a generic def or class
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeClass:
		return "class"
	case ScopeTypeParams:
		return "type parameters"
	default:
		return "unknown"
	}
}

// ScopeID is a stable index into the scope table of one analysis run.
type ScopeID int

// Scope maps names to their live binding over a lexical region.
type Scope struct {
	ID   ScopeID
	Kind ScopeKind
	Node *ast.Node // the node that introduced this scope

	// ImportStarred is set once a wildcard import executes in this scope.
	ImportStarred bool

	// Globals holds the names declared global in a function scope.
	Globals map[string]bool

	bindings map[string]*Binding
}

// NewScope creates an empty scope.
func NewScope(id ScopeID, kind ScopeKind, node *ast.Node) *Scope {
	s := &Scope{
		ID:       id,
		Kind:     kind,
		Node:     node,
		bindings: make(map[string]*Binding),
	}
	if kind == ScopeFunction {
		s.Globals = make(map[string]bool)
	}
	return s
}

// Lookup returns the binding for name in this scope only.
func (s *Scope) Lookup(name string) *Binding {
	return s.bindings[name]
}

// SetUsed marks name used if it is bound here and reports whether it was.
// Only the first use is recorded.
func (s *Scope) SetUsed(name string, use Usage) bool {
	b, ok := s.bindings[name]
	if !ok {
		return false
	}
	if b.Used == nil {
		u := use
		b.Used = &u
	}
	return true
}

// Bind inserts b, replacing any binding of the same name.
func (s *Scope) Bind(b *Binding) {
	s.bindings[b.Name] = b
}

// Unbind removes name and reports whether it was present.
func (s *Scope) Unbind(name string) bool {
	if _, ok := s.bindings[name]; !ok {
		return false
	}
	delete(s.bindings, name)
	return true
}

// Len returns the number of live bindings.
func (s *Scope) Len() int {
	return len(s.bindings)
}

// Bindings returns the live bindings in source order.
func (s *Scope) Bindings() []*Binding {
	out := make([]*Binding, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos != out[j].Pos {
			return out[i].Pos.Before(out[j].Pos)
		}
		return out[i].Name < out[j].Name
	})
	return out
}
