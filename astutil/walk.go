// Copyright © 2024 The ELPS authors

// Package astutil provides shared walking utilities for Python syntax trees.
//
// These helpers are used by the analysis, lint and lsp packages. The
// Dispatcher is the kind-keyed visitor the checker is built on; Walk and
// Inspect are plain pre-order traversals for read-only consumers.
package astutil

import "github.com/luthersystems/flakes/ast"

// Children returns the child nodes of n in schema order, flattening node
// lists. Scalar fields are skipped.
func Children(n *ast.Node) []*ast.Node {
	if n == nil {
		return nil
	}
	var out []*ast.Node
	for _, f := range ast.Schema(n.Kind) {
		switch f.Type {
		case ast.FieldNode:
			if c := n.Child(f.Name); c != nil {
				out = append(out, c)
			}
		case ast.FieldList:
			out = append(out, n.List(f.Name)...)
		}
	}
	return out
}

// Walk calls fn for every node in the tree, depth-first.
// parent is nil for the root.
func Walk(root *ast.Node, fn func(node *ast.Node, parent *ast.Node, depth int)) {
	walkNode(root, nil, 0, fn)
}

func walkNode(node *ast.Node, parent *ast.Node, depth int, fn func(*ast.Node, *ast.Node, int)) {
	if node == nil {
		return
	}
	fn(node, parent, depth)
	for _, child := range Children(node) {
		walkNode(child, node, depth+1, fn)
	}
}

// Inspect traverses the tree in pre-order. If fn returns false the
// children of that node are skipped.
func Inspect(root *ast.Node, fn func(*ast.Node) bool) {
	if root == nil || !fn(root) {
		return
	}
	for _, child := range Children(root) {
		Inspect(child, fn)
	}
}

// LeafNames returns the Name nodes bound by an assignment target, looking
// through Tuple, List and Starred wrappers. Attribute and Subscript
// targets bind nothing and are not returned.
func LeafNames(target *ast.Node) []*ast.Node {
	var out []*ast.Node
	collectLeaves(target, &out)
	return out
}

func collectLeaves(n *ast.Node, out *[]*ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.Name:
		*out = append(*out, n)
	case ast.Tuple, ast.List:
		for _, elt := range n.List("elts") {
			collectLeaves(elt, out)
		}
	case ast.Starred:
		collectLeaves(n.Child("value"), out)
	}
}

// NameAt returns the innermost Name node whose identifier spans the given
// position, or nil.
func NameAt(root *ast.Node, pos ast.Pos) *ast.Node {
	var found *ast.Node
	Inspect(root, func(n *ast.Node) bool {
		if n.Kind == ast.Name && n.Pos.Line == pos.Line &&
			pos.Col >= n.Pos.Col && pos.Col < n.Pos.Col+len(n.Str("id")) {
			found = n
		}
		return true
	})
	return found
}
