// Copyright © 2024 The ELPS authors

package analysis

import (
	"strings"

	"github.com/luthersystems/flakes/ast"
	"github.com/luthersystems/flakes/astutil"
)

const futureModule = "__future__"

func (c *checker) registerHandlers() {
	d := c.d
	d.Handle(ast.Module, c.handleModule)
	d.Handle(ast.Name, c.handleName)
	d.Handle(ast.Import, c.handleImport)
	d.Handle(ast.ImportFrom, c.handleImportFrom)
	d.Handle(ast.FunctionDef, c.handleFunctionDef)
	d.Handle(ast.Lambda, c.handleLambda)
	d.Handle(ast.ClassDef, c.handleClassDef)
	d.Handle(ast.Assign, c.handleAssign)
	d.Handle(ast.AugAssign, c.handleAugAssign)
	d.Handle(ast.AnnAssign, c.handleAnnAssign)
	d.Handle(ast.NamedExpr, c.handleNamedExpr)
	d.Handle(ast.With, c.handleWith)
	d.Handle(ast.For, c.handleFor)
	d.Handle(ast.Global, c.handleGlobal)
	d.Handle(ast.Delete, c.handleDelete)
	d.Handle(ast.ListComp, c.handleComprehension)
	d.Handle(ast.SetComp, c.handleComprehension)
	d.Handle(ast.GeneratorExp, c.handleComprehension)
	d.Handle(ast.DictComp, c.handleDictComp)
	d.Handle(ast.Comprehension, c.handleComprehensionClause)
	d.Ignore(ast.Nonlocal, ast.Num, ast.Str, ast.NameConstant, ast.Ellipsis, ast.Pass, ast.Break, ast.Continue)
}

// handleModule walks the module body, closing the window for __future__
// imports at the first statement that is neither an import nor the
// module docstring.
func (c *checker) handleModule(n *ast.Node) {
	for i, stmt := range n.List("body") {
		if !allowsFutures(i, stmt) {
			c.futuresAllowed = false
		}
		c.visit(stmt)
	}
}

func allowsFutures(i int, stmt *ast.Node) bool {
	switch stmt.Kind {
	case ast.Import, ast.ImportFrom:
		return true
	case ast.Expr:
		return i == 0 && stmt.Child("value").Kind == ast.Str
	}
	return false
}

func (c *checker) handleName(n *ast.Node) {
	id := n.Str("id")
	switch n.Ctx() {
	case ast.Store, ast.Param:
		c.addBinding(n.Pos, NewAssignment(id, n))
	case ast.Del:
		c.deleteName(n)
	default:
		c.resolve(id, n.Pos)
	}
}

func aliasName(alias *ast.Node) string {
	if as := alias.Str("asname"); as != "" {
		return as
	}
	return alias.Str("name")
}

func (c *checker) handleImport(n *ast.Node) {
	for _, alias := range n.List("names") {
		c.addBinding(n.Pos, NewImportation(aliasName(alias), n))
	}
}

func (c *checker) handleImportFrom(n *ast.Node) {
	module := n.Str("module")
	future := module == futureModule && n.Int("level") == 0
	if future && !c.futuresAllowed {
		m := c.report(LateFutureImport, n.Pos, module, 0)
		for _, alias := range n.List("names") {
			m.Names = append(m.Names, alias.Str("name"))
		}
	}
	for _, alias := range n.List("names") {
		if alias.Str("name") == "*" {
			c.scope().ImportStarred = true
			c.report(ImportStarUsed, n.Pos, strings.Repeat(".", n.Int("level"))+module, 0)
			continue
		}
		b := NewImportation(aliasName(alias), n)
		if future {
			// Future features are never read by name.
			b.Used = &Usage{Scope: c.scope().ID, Pos: n.Pos}
		}
		c.addBinding(n.Pos, b)
	}
}

func (c *checker) handleFunctionDef(n *ast.Node) {
	c.visitSequence(n.List("decorators"))
	c.addBinding(n.Pos, NewFunctionDefinition(n.Str("name"), n))
	c.handleFunction(n, func() { c.visitSequence(n.List("body")) })
}

func (c *checker) handleLambda(n *ast.Node) {
	c.handleFunction(n, func() { c.visit(n.Child("body")) })
}

// handleFunction evaluates the parts of a def or lambda that run at
// definition time and queues the body to run once the module is done.
func (c *checker) handleFunction(n *ast.Node, body func()) {
	args := n.Child("args")
	c.visitSequence(args.List("defaults"))
	typed := c.pushTypeParams(n)
	c.visitSequence(args.List("annotations"))
	c.visit(n.Child("returns"))

	fn := c.newScope(ScopeFunction, n)
	c.deferFunction(func() {
		c.bindArguments(n, args)
		body()
		c.popScope()
	}, fn.ID)
	if typed {
		c.popScope()
	}
}

// pushTypeParams opens a scope binding the type parameters of a generic
// def or class, if it has any. Annotations, bases and nested bodies see
// them; default values do not.
func (c *checker) pushTypeParams(n *ast.Node) bool {
	params := n.List("type_params")
	if len(params) == 0 {
		return false
	}
	c.pushScope(ScopeTypeParams, n)
	c.visitSequence(params)
	return true
}

type paramInfo struct {
	name string
	node *ast.Node
}

// bindArguments reports duplicate parameter names, then binds every
// parameter in the function scope.
func (c *checker) bindArguments(fn, args *ast.Node) {
	var params []paramInfo
	for _, list := range [][]*ast.Node{args.List("args"), args.List("kwonlyargs")} {
		for _, arg := range list {
			for _, leaf := range astutil.LeafNames(arg) {
				params = append(params, paramInfo{name: leaf.Str("id"), node: leaf})
			}
		}
	}
	for _, star := range []string{args.Str("vararg"), args.Str("kwarg")} {
		if star != "" {
			params = append(params, paramInfo{name: star, node: fn})
		}
	}

	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p.name] {
			c.report(DuplicateArgument, p.node.Pos, p.name, 0)
		}
		seen[p.name] = true
	}
	for _, p := range params {
		c.addBinding(p.node.Pos, NewAssignment(p.name, p.node))
	}
}

// handleClassDef runs the class body immediately in its own scope. The
// scope is never searched by functions nested in the body.
func (c *checker) handleClassDef(n *ast.Node) {
	c.visitSequence(n.List("decorators"))
	c.addBinding(n.Pos, NewAssignment(n.Str("name"), n))
	typed := c.pushTypeParams(n)
	c.visitSequence(n.List("bases"))
	c.visitSequence(n.List("keywords"))
	c.pushScope(ScopeClass, n)
	c.visitSequence(n.List("body"))
	c.popScope()
	if typed {
		c.popScope()
	}
}

// bindTarget binds every name an assignment target introduces.
func (c *checker) bindTarget(target *ast.Node) {
	for _, leaf := range astutil.LeafNames(target) {
		c.addBinding(leaf.Pos, NewAssignment(leaf.Str("id"), leaf))
	}
}

// revisitTarget resolves the expressions inside a bound target, such as
// the base of an attribute or subscript. Plain names are already bound.
func (c *checker) revisitTarget(target *ast.Node) {
	switch target.Kind {
	case ast.Name:
	case ast.Tuple, ast.List:
		for _, elt := range target.List("elts") {
			c.revisitTarget(elt)
		}
	case ast.Starred:
		c.revisitTarget(target.Child("value"))
	default:
		c.visit(target)
	}
}

func (c *checker) handleAssign(n *ast.Node) {
	c.visit(n.Child("value"))
	targets := n.List("targets")
	for _, t := range targets {
		c.bindTarget(t)
	}
	for _, t := range targets {
		c.revisitTarget(t)
	}
}

// handleAugAssign reads the target before rebinding it.
func (c *checker) handleAugAssign(n *ast.Node) {
	target := n.Child("target")
	if target.Kind != ast.Name {
		c.visit(target)
		c.visit(n.Child("value"))
		return
	}
	c.resolve(target.Str("id"), target.Pos)
	c.visit(n.Child("value"))
	c.addBinding(target.Pos, NewAssignment(target.Str("id"), target))
}

// handleAnnAssign binds the target only when a value is assigned; a bare
// annotation binds nothing at runtime.
func (c *checker) handleAnnAssign(n *ast.Node) {
	c.visit(n.Child("annotation"))
	target := n.Child("target")
	value := n.Child("value")
	if value == nil {
		if target.Kind != ast.Name {
			c.visit(target)
		}
		return
	}
	c.visit(value)
	c.bindTarget(target)
	c.revisitTarget(target)
}

func (c *checker) handleNamedExpr(n *ast.Node) {
	c.visit(n.Child("value"))
	target := n.Child("target")
	c.bindTarget(target)
	c.revisitTarget(target)
}

func (c *checker) handleWith(n *ast.Node) {
	c.visit(n.Child("context_expr"))
	if vars := n.Child("optional_vars"); vars != nil {
		c.bindTarget(vars)
		c.revisitTarget(vars)
	}
	c.visitSequence(n.List("body"))
}

// handleFor evaluates the iterable first, then reports loop variables that
// clobber an import which has already been read, then binds the target.
func (c *checker) handleFor(n *ast.Node) {
	c.visit(n.Child("iter"))
	cur := c.scope()
	for _, leaf := range astutil.LeafNames(n.Child("target")) {
		id := leaf.Str("id")
		if b := cur.Lookup(id); b != nil && b.Kind == Importation && b.IsUsed() {
			c.report(ImportShadowedByLoopVar, n.Pos, id, b.Line())
		}
	}
	c.visit(n.Child("target"))
	c.visitSequence(n.List("body"))
	c.visitSequence(n.List("orelse"))
}

// handleComprehensionClause reads the iterable before binding the target,
// as `for x in xs` inside a comprehension does.
func (c *checker) handleComprehensionClause(n *ast.Node) {
	c.visit(n.Child("iter"))
	c.visit(n.Child("target"))
	c.visitSequence(n.List("ifs"))
}

// handleGlobal records declared globals. The set is bookkeeping only: it
// does not change how the names bind or resolve.
func (c *checker) handleGlobal(n *ast.Node) {
	cur := c.scope()
	if cur.Kind != ScopeFunction {
		return
	}
	for _, name := range n.Strs("names") {
		cur.Globals[name] = true
	}
}

func (c *checker) handleDelete(n *ast.Node) {
	for _, t := range n.List("targets") {
		c.deleteTarget(t)
	}
}

func (c *checker) deleteTarget(t *ast.Node) {
	switch t.Kind {
	case ast.Name:
		c.deleteName(t)
	case ast.Tuple, ast.List:
		for _, elt := range t.List("elts") {
			c.deleteTarget(elt)
		}
	default:
		c.visit(t)
	}
}

func (c *checker) deleteName(n *ast.Node) {
	id := n.Str("id")
	cur := c.scope()
	if cur.Kind == ScopeFunction && cur.Globals[id] {
		delete(cur.Globals, id)
		return
	}
	c.addBinding(n.Pos, NewUnBinding(id, n))
}

// handleComprehension visits the generators before the element so the
// loop variables are bound when the element reads them.
func (c *checker) handleComprehension(n *ast.Node) {
	c.visitSequence(n.List("generators"))
	c.visit(n.Child("elt"))
}

func (c *checker) handleDictComp(n *ast.Node) {
	c.visitSequence(n.List("generators"))
	c.visit(n.Child("key"))
	c.visit(n.Child("value"))
}
