// Copyright © 2024 The ELPS authors

package astutil

import "github.com/luthersystems/flakes/ast"

// HandlerFunc handles one node of a registered kind.
type HandlerFunc func(n *ast.Node)

// Dispatcher routes nodes to handlers by kind. Kinds without a handler fall
// back to VisitChildren, so a visitor only registers the kinds it cares
// about.
type Dispatcher struct {
	handlers map[ast.Kind]HandlerFunc
}

// NewDispatcher returns a dispatcher with no handlers registered.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[ast.Kind]HandlerFunc)}
}

// Handle registers fn for kind k, replacing any previous handler.
func (d *Dispatcher) Handle(k ast.Kind, fn HandlerFunc) {
	d.handlers[k] = fn
}

// Ignore registers a handler that does nothing for each kind, pruning the
// walk at those nodes.
func (d *Dispatcher) Ignore(kinds ...ast.Kind) {
	for _, k := range kinds {
		d.handlers[k] = func(*ast.Node) {}
	}
}

// Visit dispatches n. A nil node is an absent optional field and is
// skipped. A node of unknown kind panics with *ast.Error; callers that
// accept trees from outside recover it (see analysis.Analyze).
func (d *Dispatcher) Visit(n *ast.Node) {
	if n == nil {
		return
	}
	if !n.Kind.Valid() {
		panic(&ast.Error{Kind: n.Kind, Pos: n.Pos, Msg: "no handler for unknown node kind"})
	}
	if fn, ok := d.handlers[n.Kind]; ok {
		fn(n)
		return
	}
	d.VisitChildren(n)
}

// VisitChildren visits every node-valued field of n in schema order,
// recursing into node lists and skipping scalar and absent fields.
func (d *Dispatcher) VisitChildren(n *ast.Node) {
	if n == nil {
		return
	}
	for _, f := range ast.Schema(n.Kind) {
		switch f.Type {
		case ast.FieldNode:
			d.Visit(n.Child(f.Name))
		case ast.FieldList:
			d.VisitSequence(n.List(f.Name))
		}
	}
}

// VisitSequence visits nodes in order.
func (d *Dispatcher) VisitSequence(nodes []*ast.Node) {
	for _, n := range nodes {
		d.Visit(n)
	}
}
