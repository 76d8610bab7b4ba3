// Copyright © 2024 The ELPS authors

package astutil

import (
	"testing"

	"github.com/luthersystems/flakes/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func name(line, col int, id, ctx string) *ast.Node {
	return ast.Must(ast.Name, ast.At(line, col), ast.Fields{"id": id, "ctx": ctx})
}

func tuple(elts ...*ast.Node) *ast.Node {
	return ast.Must(ast.Tuple, ast.At(elts[0].Pos.Line, elts[0].Pos.Col), ast.Fields{"elts": elts, "ctx": ast.Store})
}

// for a, (b, *c) in d: e
func forLoop() *ast.Node {
	star := ast.Must(ast.Starred, ast.At(1, 11), ast.Fields{"value": name(1, 12, "c", ast.Store), "ctx": ast.Store})
	target := tuple(name(1, 4, "a", ast.Store), tuple(name(1, 8, "b", ast.Store), star))
	body := ast.Must(ast.Expr, ast.At(1, 21), ast.Fields{"value": name(1, 21, "e", ast.Load)})
	return ast.Must(ast.For, ast.At(1, 0), ast.Fields{
		"target": target,
		"iter":   name(1, 18, "d", ast.Load),
		"body":   []*ast.Node{body},
	})
}

func ids(nodes []*ast.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Str("id")
	}
	return out
}

// --- Walk tests ---

func TestWalk_PreOrderWithDepth(t *testing.T) {
	var kinds []ast.Kind
	var maxDepth int
	Walk(forLoop(), func(n, parent *ast.Node, depth int) {
		kinds = append(kinds, n.Kind)
		if depth == 0 {
			assert.Nil(t, parent)
		} else {
			assert.NotNil(t, parent)
		}
		if depth > maxDepth {
			maxDepth = depth
		}
	})
	require.NotEmpty(t, kinds)
	assert.Equal(t, ast.For, kinds[0])
	assert.Equal(t, ast.Tuple, kinds[1])
	assert.Equal(t, 4, maxDepth)
}

func TestInspect_Prune(t *testing.T) {
	var seen []string
	Inspect(forLoop(), func(n *ast.Node) bool {
		if n.Kind == ast.Name {
			seen = append(seen, n.Str("id"))
		}
		return n.Kind != ast.Tuple
	})
	assert.Equal(t, []string{"d", "e"}, seen)
}

func TestLeafNames(t *testing.T) {
	loop := forLoop()
	assert.Equal(t, []string{"a", "b", "c"}, ids(LeafNames(loop.Child("target"))))

	attr := ast.Must(ast.Attribute, ast.At(1, 0), ast.Fields{"value": name(1, 0, "x", ast.Load), "attr": "y", "ctx": ast.Store})
	assert.Empty(t, LeafNames(attr))
	assert.Empty(t, LeafNames(nil))
}

func TestNameAt(t *testing.T) {
	loop := forLoop()
	n := NameAt(loop, ast.At(1, 18))
	require.NotNil(t, n)
	assert.Equal(t, "d", n.Str("id"))
	assert.Nil(t, NameAt(loop, ast.At(1, 2)))
}

// --- Dispatcher tests ---

func TestDispatcher_FallbackVisitsChildren(t *testing.T) {
	d := NewDispatcher()
	var seen []string
	d.Handle(ast.Name, func(n *ast.Node) { seen = append(seen, n.Str("id")) })
	d.Visit(forLoop())
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, seen)
}

func TestDispatcher_HandlerOverridesFallback(t *testing.T) {
	d := NewDispatcher()
	var seen []string
	d.Handle(ast.Name, func(n *ast.Node) { seen = append(seen, n.Str("id")) })
	d.Handle(ast.For, func(n *ast.Node) {
		d.Visit(n.Child("iter"))
		d.VisitSequence(n.List("body"))
	})
	d.Visit(forLoop())
	assert.Equal(t, []string{"d", "e"}, seen)
}

func TestDispatcher_Ignore(t *testing.T) {
	d := NewDispatcher()
	count := 0
	d.Handle(ast.Name, func(*ast.Node) { count++ })
	d.Ignore(ast.Tuple)
	d.Visit(forLoop())
	assert.Equal(t, 2, count)
}

func TestDispatcher_UnknownKindPanics(t *testing.T) {
	d := NewDispatcher()
	bogus := &ast.Node{Kind: ast.Kind(250)}
	defer func() {
		r := recover()
		require.NotNil(t, r)
		_, ok := r.(*ast.Error)
		assert.True(t, ok, "panic value should be *ast.Error, got %T", r)
	}()
	d.Visit(bogus)
}

func TestDispatcher_NilIsSkipped(t *testing.T) {
	d := NewDispatcher()
	assert.NotPanics(t, func() {
		d.Visit(nil)
		d.VisitChildren(nil)
		d.VisitSequence(nil)
	})
}
