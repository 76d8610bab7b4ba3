// Copyright © 2024 The ELPS authors

package analysis

import (
	"strings"

	"github.com/luthersystems/flakes/ast"
)

// BindingKind classifies why a name became bound.
type BindingKind int

const (
	Importation        BindingKind = iota + 1 // import / from-import
	Assignment                                // assignment, loop, with, except, class, parameter
	FunctionDefinition                        // def
	UnBinding                                 // del
)

func (k BindingKind) String() string {
	switch k {
	case Importation:
		return "import"
	case Assignment:
		return "assignment"
	case FunctionDefinition:
		return "function"
	case UnBinding:
		return "deletion"
	default:
		return "unknown"
	}
}

// Usage records where a binding was first read.
type Usage struct {
	Scope ScopeID
	Pos   ast.Pos
}

// Binding records that a name became bound at a source location.
type Binding struct {
	Name   string
	Kind   BindingKind
	Source *ast.Node // node that introduced the binding
	Pos    ast.Pos

	// Used is nil until the binding is first read.
	Used *Usage
}

func newBinding(kind BindingKind, name string, source *ast.Node) *Binding {
	b := &Binding{Name: name, Kind: kind, Source: source}
	if source != nil {
		b.Pos = source.Pos
	}
	return b
}

// NewImportation binds the first dotted component of name: importing
// a.b.c binds a.
func NewImportation(name string, source *ast.Node) *Binding {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return newBinding(Importation, name, source)
}

// NewAssignment returns an ordinary name binding.
func NewAssignment(name string, source *ast.Node) *Binding {
	return newBinding(Assignment, name, source)
}

// NewFunctionDefinition returns a binding for a def statement.
func NewFunctionDefinition(name string, source *ast.Node) *Binding {
	return newBinding(FunctionDefinition, name, source)
}

// NewUnBinding returns a deletion marker. Installing it removes the name
// from the current scope instead of adding a binding.
func NewUnBinding(name string, source *ast.Node) *Binding {
	return newBinding(UnBinding, name, source)
}

// IsUsed reports whether the binding has been read.
func (b *Binding) IsUsed() bool {
	return b.Used != nil
}

// Line returns the line the binding was introduced on.
func (b *Binding) Line() int {
	return b.Pos.Line
}

func (b *Binding) String() string {
	return b.Kind.String() + " " + b.Name
}
