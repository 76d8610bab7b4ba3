// Copyright © 2024 The ELPS authors

package analysis

import (
	"sort"
	"testing"

	"github.com/luthersystems/flakes/ast"
	"github.com/stretchr/testify/require"
)

// Helpers for building trees by hand. Positions only need to be distinct
// where a test inspects them, so most helpers take just a line.

func load(line int, id string) *ast.Node { return ast.NewName(ast.At(line, 0), id, ast.Load) }
func store(line int, id string) *ast.Node { return ast.NewName(ast.At(line, 0), id, ast.Store) }
func param(line int, id string) *ast.Node { return ast.NewName(ast.At(line, 0), id, ast.Param) }

func loadAt(line, col int, id string) *ast.Node {
	return ast.NewName(ast.At(line, col), id, ast.Load)
}

func module(body ...*ast.Node) *ast.Node { return ast.NewModule(body...) }

func expr(v *ast.Node) *ast.Node { return ast.NewExpr(v) }

func pass(line int) *ast.Node { return ast.Must(ast.Pass, ast.At(line, 0), nil) }

func docstring(line int) *ast.Node {
	return expr(ast.Must(ast.Str, ast.At(line, 0), ast.Fields{"s": "doc"}))
}

func num(line int) *ast.Node { return ast.Must(ast.Num, ast.At(line, 0), ast.Fields{"n": "1"}) }

func importStmt(line int, names ...string) *ast.Node {
	aliases := make([]*ast.Node, len(names))
	for i, n := range names {
		aliases[i] = ast.NewAlias(n, "")
	}
	return ast.NewImport(ast.At(line, 0), aliases...)
}

func importAs(line int, name, as string) *ast.Node {
	return ast.NewImport(ast.At(line, 0), ast.NewAlias(name, as))
}

func fromImport(line int, mod string, names ...string) *ast.Node {
	aliases := make([]*ast.Node, len(names))
	for i, n := range names {
		aliases[i] = ast.NewAlias(n, "")
	}
	return ast.NewImportFrom(ast.At(line, 0), mod, 0, aliases...)
}

func assign(line int, value *ast.Node, targets ...*ast.Node) *ast.Node {
	return ast.NewAssign(ast.At(line, 0), value, targets...)
}

func tuple(ctx string, elts ...*ast.Node) *ast.Node {
	return ast.Must(ast.Tuple, elts[0].Pos, ast.Fields{"elts": elts, "ctx": ctx})
}

func attr(value *ast.Node, name, ctx string) *ast.Node {
	return ast.Must(ast.Attribute, value.Pos, ast.Fields{"value": value, "attr": name, "ctx": ctx})
}

func call(fn *ast.Node, args ...*ast.Node) *ast.Node {
	return ast.Must(ast.Call, fn.Pos, ast.Fields{"func": fn, "args": args})
}

func arguments(params []*ast.Node, defaults ...*ast.Node) *ast.Node {
	return ast.Must(ast.Arguments, ast.Pos{}, ast.Fields{"args": params, "defaults": defaults})
}

func params(line int, names ...string) []*ast.Node {
	out := make([]*ast.Node, len(names))
	for i, n := range names {
		out[i] = ast.NewName(ast.At(line, 8+i*3), n, ast.Param)
	}
	return out
}

func def(line int, name string, args *ast.Node, body ...*ast.Node) *ast.Node {
	return ast.Must(ast.FunctionDef, ast.At(line, 0), ast.Fields{"name": name, "args": args, "body": body})
}

func decorated(line int, decorators []*ast.Node, name string, body ...*ast.Node) *ast.Node {
	return ast.Must(ast.FunctionDef, ast.At(line, 0), ast.Fields{
		"decorators": decorators,
		"name":       name,
		"args":       arguments(nil),
		"body":       body,
	})
}

func lambda(line int, args, body *ast.Node) *ast.Node {
	return ast.Must(ast.Lambda, ast.At(line, 0), ast.Fields{"args": args, "body": body})
}

func class(line int, name string, bases []*ast.Node, body ...*ast.Node) *ast.Node {
	return ast.Must(ast.ClassDef, ast.At(line, 0), ast.Fields{"name": name, "bases": bases, "body": body})
}

func forStmt(line int, target, iter *ast.Node, body ...*ast.Node) *ast.Node {
	return ast.Must(ast.For, ast.At(line, 0), ast.Fields{"target": target, "iter": iter, "body": body})
}

func del(line int, targets ...*ast.Node) *ast.Node {
	return ast.Must(ast.Delete, ast.At(line, 0), ast.Fields{"targets": targets})
}

func global(line int, names ...string) *ast.Node {
	return ast.Must(ast.Global, ast.At(line, 0), ast.Fields{"names": names})
}

func ret(line int, v *ast.Node) *ast.Node {
	return ast.Must(ast.Return, ast.At(line, 0), ast.Fields{"value": v})
}

func with(line int, ctxExpr, vars *ast.Node, body ...*ast.Node) *ast.Node {
	f := ast.Fields{"context_expr": ctxExpr, "body": body}
	if vars != nil {
		f["optional_vars"] = vars
	}
	return ast.Must(ast.With, ast.At(line, 0), f)
}

func comp(target, iter *ast.Node) *ast.Node {
	return ast.Must(ast.Comprehension, target.Pos, ast.Fields{"target": target, "iter": iter})
}

func listComp(elt *ast.Node, gens ...*ast.Node) *ast.Node {
	return ast.Must(ast.ListComp, elt.Pos, ast.Fields{"elt": elt, "generators": gens})
}

func tryExcept(line int, handler *ast.Node) *ast.Node {
	return ast.Must(ast.TryExcept, ast.At(line, 0), ast.Fields{
		"body":     []*ast.Node{pass(line)},
		"handlers": []*ast.Node{handler},
	})
}

func except(line int, typ, name *ast.Node) *ast.Node {
	return ast.Must(ast.ExceptHandler, ast.At(line, 0), ast.Fields{"type": typ, "name": name, "body": []*ast.Node{pass(line)}})
}

// analyze runs the checker and fails the test on error.
func analyze(t *testing.T, tree *ast.Node) *Result {
	t.Helper()
	res, err := Analyze(tree, &Config{Filename: "test.py"})
	require.NoError(t, err)
	return res
}

// flakes asserts the messages produced for tree have exactly the expected
// kinds, ignoring order.
func flakes(t *testing.T, tree *ast.Node, want ...MessageKind) *Result {
	t.Helper()
	res := analyze(t, tree)
	got := make([]MessageKind, len(res.Messages))
	for i, m := range res.Messages {
		got[i] = m.Kind
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	if len(want) == 0 {
		want = []MessageKind{}
	}
	require.Equal(t, want, got, "messages: %v", res.Messages)
	return res
}
