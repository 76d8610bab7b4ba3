// Copyright © 2024 The ELPS authors

package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/luthersystems/flakes/ast"
)

// converter builds ast nodes from a tree-sitter tree. Conversion errors
// unwind through a bailout panic that convertModule turns back into an
// error.
type converter struct {
	src      []byte
	filename string
}

type bailout struct{ err error }

func (c *converter) convertModule(root *sitter.Node) (mod *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			mod, err = nil, b.err
		}
	}()
	return c.node(ast.Module, root, ast.Fields{"body": c.statements(root)}), nil
}

func (c *converter) fail(err error) {
	panic(bailout{err})
}

func (c *converter) unsupported(n *sitter.Node) {
	c.fail(&UnsupportedError{Filename: c.filename, Pos: pos(n), Construct: n.Type()})
}

// node builds an ast node positioned at n.
func (c *converter) node(kind ast.Kind, n *sitter.Node, f ast.Fields) *ast.Node {
	out, err := ast.New(kind, pos(n), f)
	if err != nil {
		c.fail(err)
	}
	return out
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

// named returns the named children of n, skipping comments and line
// continuations.
func named(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "comment", "line_continuation":
			continue
		}
		out = append(out, child)
	}
	return out
}

// fieldChildren returns every child of n stored under field, in order.
func fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

func childOfType(n *sitter.Node, types ...string) *sitter.Node {
	for _, child := range named(n) {
		for _, t := range types {
			if child.Type() == t {
				return child
			}
		}
	}
	return nil
}

// statements converts the statements of a module or block.
func (c *converter) statements(n *sitter.Node) []*ast.Node {
	if n == nil {
		return nil
	}
	var out []*ast.Node
	for _, child := range named(n) {
		out = append(out, c.statement(child))
	}
	return out
}

func (c *converter) statement(n *sitter.Node) *ast.Node {
	switch n.Type() {
	case "expression_statement":
		return c.expressionStatement(n)
	case "import_statement":
		return c.importStatement(n)
	case "import_from_statement":
		return c.importFrom(n)
	case "future_import_statement":
		return c.futureImport(n)
	case "function_definition":
		return c.functionDef(n, nil)
	case "class_definition":
		return c.classDef(n, nil)
	case "decorated_definition":
		return c.decorated(n)
	case "return_statement":
		f := ast.Fields{}
		if v := named(n); len(v) > 0 {
			f["value"] = c.expr(v[0])
		}
		return c.node(ast.Return, n, f)
	case "delete_statement":
		return c.deleteStatement(n)
	case "pass_statement":
		return c.node(ast.Pass, n, nil)
	case "break_statement":
		return c.node(ast.Break, n, nil)
	case "continue_statement":
		return c.node(ast.Continue, n, nil)
	case "raise_statement":
		return c.raise(n)
	case "global_statement":
		return c.node(ast.Global, n, ast.Fields{"names": c.identifiers(n)})
	case "nonlocal_statement":
		return c.node(ast.Nonlocal, n, ast.Fields{"names": c.identifiers(n)})
	case "assert_statement":
		return c.assert(n)
	case "print_statement":
		return c.print(n)
	case "exec_statement":
		return c.exec(n)
	case "if_statement":
		return c.ifStatement(n)
	case "for_statement":
		return c.forStatement(n)
	case "while_statement":
		return c.node(ast.While, n, ast.Fields{
			"test":   c.expr(n.ChildByFieldName("condition")),
			"body":   c.statements(n.ChildByFieldName("body")),
			"orelse": c.elseBody(n.ChildByFieldName("alternative")),
		})
	case "try_statement":
		return c.tryStatement(n)
	case "with_statement":
		return c.withStatement(n)
	default:
		c.unsupported(n)
		return nil
	}
}

func (c *converter) expressionStatement(n *sitter.Node) *ast.Node {
	children := named(n)
	if len(children) == 1 {
		switch children[0].Type() {
		case "assignment":
			return c.assignment(children[0])
		case "augmented_assignment":
			return c.augAssign(children[0])
		}
		return c.node(ast.Expr, n, ast.Fields{"value": c.expr(children[0])})
	}
	return c.node(ast.Expr, n, ast.Fields{"value": c.sequence(ast.Tuple, n, children, ast.Load)})
}

// assignment converts `a = b = value` and annotated assignments. Chained
// targets nest in the right-hand side of the concrete tree.
func (c *converter) assignment(n *sitter.Node) *ast.Node {
	if typ := n.ChildByFieldName("type"); typ != nil {
		f := ast.Fields{
			"target":     c.target(n.ChildByFieldName("left"), ast.Store),
			"annotation": c.expr(typ),
		}
		if right := n.ChildByFieldName("right"); right != nil {
			f["value"] = c.expr(right)
		}
		return c.node(ast.AnnAssign, n, f)
	}

	var targets []*ast.Node
	cur := n
	for {
		targets = append(targets, c.target(cur.ChildByFieldName("left"), ast.Store))
		right := cur.ChildByFieldName("right")
		if right == nil {
			c.unsupported(cur)
		}
		if right.Type() != "assignment" || right.ChildByFieldName("type") != nil {
			return c.node(ast.Assign, n, ast.Fields{"targets": targets, "value": c.expr(right)})
		}
		cur = right
	}
}

func (c *converter) augAssign(n *sitter.Node) *ast.Node {
	op := ""
	if o := n.ChildByFieldName("operator"); o != nil {
		op = o.Type()
	}
	return c.node(ast.AugAssign, n, ast.Fields{
		"target": c.target(n.ChildByFieldName("left"), ast.Store),
		"op":     op,
		"value":  c.expr(n.ChildByFieldName("right")),
	})
}

func (c *converter) identifiers(n *sitter.Node) []string {
	var names []string
	for _, child := range named(n) {
		names = append(names, c.text(child))
	}
	return names
}

// dottedName renders a dotted_name without any interior whitespace.
func (c *converter) dottedName(n *sitter.Node) string {
	if n.Type() != "dotted_name" {
		return c.text(n)
	}
	parts := make([]string, 0, n.NamedChildCount())
	for _, id := range named(n) {
		parts = append(parts, c.text(id))
	}
	return strings.Join(parts, ".")
}

func (c *converter) alias(n *sitter.Node) *ast.Node {
	if n.Type() == "aliased_import" {
		return c.node(ast.Alias, n, ast.Fields{
			"name":   c.dottedName(n.ChildByFieldName("name")),
			"asname": c.text(n.ChildByFieldName("alias")),
		})
	}
	return c.node(ast.Alias, n, ast.Fields{"name": c.dottedName(n)})
}

func (c *converter) aliases(n *sitter.Node) []*ast.Node {
	var out []*ast.Node
	for _, name := range fieldChildren(n, "name") {
		out = append(out, c.alias(name))
	}
	return out
}

func (c *converter) importStatement(n *sitter.Node) *ast.Node {
	return c.node(ast.Import, n, ast.Fields{"names": c.aliases(n)})
}

func (c *converter) futureImport(n *sitter.Node) *ast.Node {
	return c.node(ast.ImportFrom, n, ast.Fields{"module": "__future__", "names": c.aliases(n), "level": 0})
}

func (c *converter) importFrom(n *sitter.Node) *ast.Node {
	f := ast.Fields{"level": 0}
	if mod := n.ChildByFieldName("module_name"); mod != nil {
		if mod.Type() == "relative_import" {
			for _, part := range named(mod) {
				switch part.Type() {
				case "import_prefix":
					f["level"] = strings.Count(c.text(part), ".")
				case "dotted_name":
					f["module"] = c.dottedName(part)
				}
			}
		} else {
			f["module"] = c.dottedName(mod)
		}
	}
	names := c.aliases(n)
	if star := childOfType(n, "wildcard_import"); star != nil {
		names = append(names, c.node(ast.Alias, star, ast.Fields{"name": "*"}))
	}
	f["names"] = names
	return c.node(ast.ImportFrom, n, f)
}

func (c *converter) deleteStatement(n *sitter.Node) *ast.Node {
	var targets []*ast.Node
	for _, child := range named(n) {
		if child.Type() == "expression_list" {
			for _, elt := range named(child) {
				targets = append(targets, c.target(elt, ast.Del))
			}
			continue
		}
		targets = append(targets, c.target(child, ast.Del))
	}
	return c.node(ast.Delete, n, ast.Fields{"targets": targets})
}

func (c *converter) raise(n *sitter.Node) *ast.Node {
	f := ast.Fields{}
	cause := n.ChildByFieldName("cause")
	for _, child := range named(n) {
		if cause != nil && child.StartByte() == cause.StartByte() {
			continue
		}
		// Python 2: raise E, V, T
		if child.Type() == "expression_list" {
			parts := named(child)
			for i, key := range []string{"exc", "inst", "tback"} {
				if i < len(parts) {
					f[key] = c.expr(parts[i])
				}
			}
			break
		}
		f["exc"] = c.expr(child)
		break
	}
	if cause != nil {
		f["cause"] = c.expr(cause)
	}
	return c.node(ast.Raise, n, f)
}

func (c *converter) assert(n *sitter.Node) *ast.Node {
	parts := named(n)
	f := ast.Fields{"test": c.expr(parts[0])}
	if len(parts) > 1 {
		f["msg"] = c.expr(parts[1])
	}
	return c.node(ast.Assert, n, f)
}

func (c *converter) print(n *sitter.Node) *ast.Node {
	f := ast.Fields{}
	var values []*ast.Node
	for _, child := range named(n) {
		if child.Type() == "chevron" {
			if inner := named(child); len(inner) > 0 {
				f["dest"] = c.expr(inner[0])
			}
			continue
		}
		values = append(values, c.expr(child))
	}
	f["values"] = values
	return c.node(ast.Print, n, f)
}

func (c *converter) exec(n *sitter.Node) *ast.Node {
	parts := named(n)
	f := ast.Fields{"body": c.expr(parts[0])}
	if len(parts) > 1 {
		f["globals"] = c.expr(parts[1])
	}
	if len(parts) > 2 {
		f["locals"] = c.expr(parts[2])
	}
	return c.node(ast.Exec, n, f)
}

// ifStatement folds elif clauses into nested If nodes in orelse.
func (c *converter) ifStatement(n *sitter.Node) *ast.Node {
	alternatives := fieldChildren(n, "alternative")
	var orelse []*ast.Node
	for i := len(alternatives) - 1; i >= 0; i-- {
		alt := alternatives[i]
		switch alt.Type() {
		case "else_clause":
			orelse = c.elseBody(alt)
		case "elif_clause":
			orelse = []*ast.Node{c.node(ast.If, alt, ast.Fields{
				"test":   c.expr(alt.ChildByFieldName("condition")),
				"body":   c.statements(alt.ChildByFieldName("consequence")),
				"orelse": orelse,
			})}
		}
	}
	return c.node(ast.If, n, ast.Fields{
		"test":   c.expr(n.ChildByFieldName("condition")),
		"body":   c.statements(n.ChildByFieldName("consequence")),
		"orelse": orelse,
	})
}

func (c *converter) elseBody(n *sitter.Node) []*ast.Node {
	if n == nil {
		return nil
	}
	if body := n.ChildByFieldName("body"); body != nil {
		return c.statements(body)
	}
	return c.statements(childOfType(n, "block"))
}

func (c *converter) forStatement(n *sitter.Node) *ast.Node {
	return c.node(ast.For, n, ast.Fields{
		"target": c.target(n.ChildByFieldName("left"), ast.Store),
		"iter":   c.expr(n.ChildByFieldName("right")),
		"body":   c.statements(n.ChildByFieldName("body")),
		"orelse": c.elseBody(n.ChildByFieldName("alternative")),
	})
}

func (c *converter) tryStatement(n *sitter.Node) *ast.Node {
	body := c.statements(n.ChildByFieldName("body"))
	var handlers, orelse, finalbody []*ast.Node
	hasFinally := false
	for _, child := range named(n) {
		switch child.Type() {
		case "except_clause", "except_group_clause":
			handlers = append(handlers, c.exceptHandler(child))
		case "else_clause":
			orelse = c.elseBody(child)
		case "finally_clause":
			hasFinally = true
			finalbody = c.statements(childOfType(child, "block"))
		}
	}
	if len(handlers) > 0 || len(orelse) > 0 {
		body = []*ast.Node{c.node(ast.TryExcept, n, ast.Fields{"body": body, "handlers": handlers, "orelse": orelse})}
	}
	if !hasFinally {
		if len(body) != 1 {
			c.unsupported(n)
		}
		return body[0]
	}
	return c.node(ast.TryFinally, n, ast.Fields{"body": body, "finalbody": finalbody})
}

// exceptHandler converts `except E as e:`, `except E, e:` and a bare
// `except:`.
func (c *converter) exceptHandler(n *sitter.Node) *ast.Node {
	f := ast.Fields{}
	var exprs []*sitter.Node
	for _, child := range named(n) {
		if child.Type() == "block" {
			f["body"] = c.statements(child)
			continue
		}
		exprs = append(exprs, child)
	}
	if len(exprs) == 1 && exprs[0].Type() == "as_pattern" {
		value, alias := c.asPattern(exprs[0])
		f["type"] = c.expr(value)
		f["name"] = c.target(alias, ast.Store)
		return c.node(ast.ExceptHandler, n, f)
	}
	if len(exprs) > 0 {
		f["type"] = c.expr(exprs[0])
	}
	if len(exprs) > 1 {
		f["name"] = c.target(exprs[1], ast.Store)
	}
	return c.node(ast.ExceptHandler, n, f)
}

// asPattern splits `value as target`, unwrapping the target wrapper node.
func (c *converter) asPattern(n *sitter.Node) (value, alias *sitter.Node) {
	parts := named(n)
	value = parts[0]
	alias = n.ChildByFieldName("alias")
	if alias == nil && len(parts) > 1 {
		alias = parts[len(parts)-1]
	}
	if alias != nil && alias.Type() == "as_pattern_target" {
		if inner := named(alias); len(inner) > 0 {
			alias = inner[0]
		}
	}
	return value, alias
}

// withStatement nests one With node per context manager.
func (c *converter) withStatement(n *sitter.Node) *ast.Node {
	var items []*sitter.Node
	if clause := childOfType(n, "with_clause"); clause != nil {
		items = fieldlessItems(clause)
	}
	if len(items) == 0 {
		c.unsupported(n)
	}
	body := c.statements(n.ChildByFieldName("body"))
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		value := item.ChildByFieldName("value")
		if value == nil {
			value = named(item)[0]
		}
		f := ast.Fields{"body": body}
		if value.Type() == "as_pattern" {
			v, alias := c.asPattern(value)
			f["context_expr"] = c.expr(v)
			if alias != nil {
				f["optional_vars"] = c.target(alias, ast.Store)
			}
		} else {
			f["context_expr"] = c.expr(value)
		}
		body = []*ast.Node{c.node(ast.With, item, f)}
	}
	return body[0]
}

func fieldlessItems(clause *sitter.Node) []*sitter.Node {
	var items []*sitter.Node
	for _, child := range named(clause) {
		if child.Type() == "with_item" {
			items = append(items, child)
		}
	}
	return items
}

func (c *converter) decorated(n *sitter.Node) *ast.Node {
	var decorators []*ast.Node
	for _, child := range named(n) {
		if child.Type() != "decorator" {
			continue
		}
		if inner := named(child); len(inner) > 0 {
			decorators = append(decorators, c.expr(inner[0]))
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		c.unsupported(n)
	}
	switch def.Type() {
	case "function_definition":
		return c.functionDef(def, decorators)
	case "class_definition":
		return c.classDef(def, decorators)
	}
	c.unsupported(def)
	return nil
}

func (c *converter) functionDef(n *sitter.Node, decorators []*ast.Node) *ast.Node {
	f := ast.Fields{
		"decorators": decorators,
		"name":       c.text(n.ChildByFieldName("name")),
		"args":       c.arguments(n, n.ChildByFieldName("parameters")),
		"body":       c.statements(n.ChildByFieldName("body")),
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		f["returns"] = c.expr(ret)
	}
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		f["type_params"] = c.typeParams(tp)
	}
	return c.node(ast.FunctionDef, n, f)
}

func (c *converter) classDef(n *sitter.Node, decorators []*ast.Node) *ast.Node {
	var bases, keywords []*ast.Node
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, arg := range named(supers) {
			switch arg.Type() {
			case "keyword_argument":
				keywords = append(keywords, c.keyword(arg))
			case "dictionary_splat":
				keywords = append(keywords, c.node(ast.Keyword, arg, ast.Fields{"value": c.expr(named(arg)[0])}))
			default:
				bases = append(bases, c.expr(arg))
			}
		}
	}
	f := ast.Fields{
		"decorators": decorators,
		"name":       c.text(n.ChildByFieldName("name")),
		"bases":      bases,
		"keywords":   keywords,
		"body":       c.statements(n.ChildByFieldName("body")),
	}
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		f["type_params"] = c.typeParams(tp)
	}
	return c.node(ast.ClassDef, n, f)
}

// typeParams converts the names declared by `[T, U: int, *Ts, **P]`.
// Bounds and constraints are not kept.
func (c *converter) typeParams(n *sitter.Node) []*ast.Node {
	var out []*ast.Node
	for _, t := range named(n) {
		cur := t
		for cur != nil && cur.Type() != "identifier" {
			inner := named(cur)
			if len(inner) == 0 {
				cur = nil
				break
			}
			cur = inner[0]
		}
		if cur == nil {
			c.unsupported(t)
		}
		out = append(out, c.node(ast.Name, cur, ast.Fields{"id": c.text(cur), "ctx": ast.Param}))
	}
	return out
}

// arguments converts a parameter list. Every parameter after a bare * or
// *args is keyword-only.
func (c *converter) arguments(owner, params *sitter.Node) *ast.Node {
	var args, kwonly, defaults, annotations []*ast.Node
	f := ast.Fields{}
	kwOnly := false
	add := func(p *ast.Node) {
		if kwOnly {
			kwonly = append(kwonly, p)
		} else {
			args = append(args, p)
		}
	}
	annotate := func(typ *sitter.Node) {
		if typ != nil {
			annotations = append(annotations, c.expr(typ))
		}
	}
	// splat handles *args and **kwargs, which bind plain names.
	splat := func(p *sitter.Node) bool {
		switch p.Type() {
		case "list_splat_pattern":
			if inner := named(p); len(inner) > 0 {
				f["vararg"] = c.text(inner[0])
			}
			kwOnly = true
			return true
		case "dictionary_splat_pattern":
			if inner := named(p); len(inner) > 0 {
				f["kwarg"] = c.text(inner[0])
			}
			return true
		}
		return false
	}

	if params != nil {
		for _, p := range named(params) {
			switch p.Type() {
			case "identifier", "tuple_pattern", "list_pattern":
				add(c.target(p, ast.Param))
			case "default_parameter":
				defaults = append(defaults, c.expr(p.ChildByFieldName("value")))
				add(c.target(p.ChildByFieldName("name"), ast.Param))
			case "typed_parameter":
				annotate(p.ChildByFieldName("type"))
				inner := named(p)[0]
				if !splat(inner) {
					add(c.target(inner, ast.Param))
				}
			case "typed_default_parameter":
				annotate(p.ChildByFieldName("type"))
				defaults = append(defaults, c.expr(p.ChildByFieldName("value")))
				add(c.target(p.ChildByFieldName("name"), ast.Param))
			case "list_splat_pattern", "dictionary_splat_pattern":
				splat(p)
			case "keyword_separator":
				kwOnly = true
			case "positional_separator":
			default:
				c.unsupported(p)
			}
		}
	}
	f["args"] = args
	f["kwonlyargs"] = kwonly
	f["defaults"] = defaults
	f["annotations"] = annotations
	return c.node(ast.Arguments, owner, f)
}
