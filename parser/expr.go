// Copyright © 2024 The ELPS authors

package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/luthersystems/flakes/ast"
)

// expr converts an expression read in Load context.
func (c *converter) expr(n *sitter.Node) *ast.Node {
	switch n.Type() {
	case "identifier", "keyword_identifier":
		return c.name(n, ast.Load)
	case "type", "parenthesized_expression", "as_pattern_target":
		inner := named(n)
		if len(inner) == 0 {
			// () parses as an empty parenthesized expression in some
			// grammar versions.
			return c.node(ast.Tuple, n, ast.Fields{"ctx": ast.Load})
		}
		return c.expr(inner[0])
	case "attribute", "subscript", "list_splat", "parenthesized_list_splat":
		return c.target(n, ast.Load)
	case "expression_list", "tuple", "pattern_list", "tuple_pattern":
		return c.sequence(ast.Tuple, n, named(n), ast.Load)
	case "list", "list_pattern":
		return c.sequence(ast.List, n, named(n), ast.Load)
	case "set":
		return c.node(ast.Set, n, ast.Fields{"elts": c.exprs(named(n))})
	case "dictionary":
		return c.dictionary(n)
	case "call":
		return c.call(n)
	case "lambda":
		return c.node(ast.Lambda, n, ast.Fields{
			"args": c.arguments(n, n.ChildByFieldName("parameters")),
			"body": c.expr(n.ChildByFieldName("body")),
		})
	case "binary_operator":
		return c.node(ast.BinOp, n, ast.Fields{
			"left":  c.expr(n.ChildByFieldName("left")),
			"op":    c.operator(n),
			"right": c.expr(n.ChildByFieldName("right")),
		})
	case "unary_operator", "not_operator":
		op := "not"
		if n.Type() == "unary_operator" {
			op = c.operator(n)
		}
		return c.node(ast.UnaryOp, n, ast.Fields{"op": op, "operand": c.expr(n.ChildByFieldName("argument"))})
	case "boolean_operator":
		return c.node(ast.BoolOp, n, ast.Fields{
			"op":     c.operator(n),
			"values": []*ast.Node{c.expr(n.ChildByFieldName("left")), c.expr(n.ChildByFieldName("right"))},
		})
	case "comparison_operator":
		return c.compare(n)
	case "conditional_expression":
		parts := named(n)
		if len(parts) != 3 {
			c.unsupported(n)
		}
		return c.node(ast.IfExp, n, ast.Fields{
			"body":   c.expr(parts[0]),
			"test":   c.expr(parts[1]),
			"orelse": c.expr(parts[2]),
		})
	case "named_expression":
		return c.node(ast.NamedExpr, n, ast.Fields{
			"target": c.name(n.ChildByFieldName("name"), ast.Store),
			"value":  c.expr(n.ChildByFieldName("value")),
		})
	case "list_comprehension":
		return c.comprehension(ast.ListComp, n)
	case "set_comprehension":
		return c.comprehension(ast.SetComp, n)
	case "generator_expression":
		return c.comprehension(ast.GeneratorExp, n)
	case "dictionary_comprehension":
		return c.comprehension(ast.DictComp, n)
	case "await":
		return c.node(ast.Await, n, ast.Fields{"value": c.expr(named(n)[0])})
	case "yield":
		f := ast.Fields{}
		if inner := named(n); len(inner) > 0 {
			f["value"] = c.expr(inner[0])
		}
		return c.node(ast.Yield, n, f)
	case "string":
		return c.str(n, []*sitter.Node{n})
	case "concatenated_string":
		return c.str(n, named(n))
	case "integer", "float":
		return c.node(ast.Num, n, ast.Fields{"n": c.text(n)})
	case "true", "false", "none":
		return c.node(ast.NameConstant, n, ast.Fields{"value": c.text(n)})
	case "ellipsis":
		return c.node(ast.Ellipsis, n, nil)
	case "slice":
		return c.slice(n)
	default:
		c.unsupported(n)
		return nil
	}
}

func (c *converter) exprs(ns []*sitter.Node) []*ast.Node {
	out := make([]*ast.Node, 0, len(ns))
	for _, n := range ns {
		out = append(out, c.expr(n))
	}
	return out
}

func (c *converter) name(n *sitter.Node, ctx string) *ast.Node {
	return c.node(ast.Name, n, ast.Fields{"id": c.text(n), "ctx": ctx})
}

// target converts an expression in a binding position: an assignment,
// loop, with or except target, a parameter or a del operand. Names
// anywhere in a tuple or list target take ctx.
func (c *converter) target(n *sitter.Node, ctx string) *ast.Node {
	switch n.Type() {
	case "identifier", "keyword_identifier":
		return c.name(n, ctx)
	case "attribute":
		return c.node(ast.Attribute, n, ast.Fields{
			"value": c.expr(n.ChildByFieldName("object")),
			"attr":  c.text(n.ChildByFieldName("attribute")),
			"ctx":   ctx,
		})
	case "subscript":
		return c.node(ast.Subscript, n, ast.Fields{
			"value": c.expr(n.ChildByFieldName("value")),
			"slice": c.subscriptSlice(n),
			"ctx":   ctx,
		})
	case "pattern_list", "tuple_pattern", "expression_list", "tuple":
		return c.sequence(ast.Tuple, n, named(n), ctx)
	case "list_pattern", "list":
		return c.sequence(ast.List, n, named(n), ctx)
	case "list_splat_pattern", "list_splat", "parenthesized_list_splat":
		inner := named(n)
		if len(inner) == 0 {
			c.unsupported(n)
		}
		return c.node(ast.Starred, n, ast.Fields{"value": c.target(inner[0], ctx), "ctx": ctx})
	case "parenthesized_expression", "as_pattern_target":
		if inner := named(n); len(inner) == 1 {
			return c.target(inner[0], ctx)
		}
	}
	return c.expr(n)
}

func (c *converter) sequence(kind ast.Kind, n *sitter.Node, elts []*sitter.Node, ctx string) *ast.Node {
	out := make([]*ast.Node, 0, len(elts))
	for _, e := range elts {
		out = append(out, c.target(e, ctx))
	}
	return c.node(kind, n, ast.Fields{"elts": out, "ctx": ctx})
}

// subscriptSlice folds the subscript fields of `x[a, b:c]` into a single
// slice node.
func (c *converter) subscriptSlice(n *sitter.Node) *ast.Node {
	parts := fieldChildren(n, "subscript")
	if len(parts) == 0 {
		c.unsupported(n)
	}
	if len(parts) == 1 {
		if parts[0].Type() == "slice" {
			return c.slice(parts[0])
		}
		return c.node(ast.Index, parts[0], ast.Fields{"value": c.expr(parts[0])})
	}
	elts := c.exprs(parts)
	return c.node(ast.Index, parts[0], ast.Fields{
		"value": c.node(ast.Tuple, parts[0], ast.Fields{"elts": elts, "ctx": ast.Load}),
	})
}

func (c *converter) slice(n *sitter.Node) *ast.Node {
	f := ast.Fields{}
	keys := []string{"lower", "upper", "step"}
	part := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() {
			if child.Type() == ":" {
				part++
			}
			continue
		}
		if child.Type() == "comment" || part >= len(keys) {
			continue
		}
		f[keys[part]] = c.expr(child)
	}
	return c.node(ast.Slice, n, f)
}

func (c *converter) dictionary(n *sitter.Node) *ast.Node {
	var keys, values, unpack []*ast.Node
	for _, child := range named(n) {
		switch child.Type() {
		case "pair":
			keys = append(keys, c.expr(child.ChildByFieldName("key")))
			values = append(values, c.expr(child.ChildByFieldName("value")))
		case "dictionary_splat":
			unpack = append(unpack, c.expr(named(child)[0]))
		default:
			c.unsupported(child)
		}
	}
	return c.node(ast.Dict, n, ast.Fields{"keys": keys, "values": values, "unpack": unpack})
}

func (c *converter) keyword(n *sitter.Node) *ast.Node {
	return c.node(ast.Keyword, n, ast.Fields{
		"arg":   c.text(n.ChildByFieldName("name")),
		"value": c.expr(n.ChildByFieldName("value")),
	})
}

func (c *converter) call(n *sitter.Node) *ast.Node {
	f := ast.Fields{"func": c.expr(n.ChildByFieldName("function"))}
	argNode := n.ChildByFieldName("arguments")
	if argNode == nil {
		return c.node(ast.Call, n, f)
	}
	if argNode.Type() == "generator_expression" {
		f["args"] = []*ast.Node{c.expr(argNode)}
		return c.node(ast.Call, n, f)
	}
	var args, keywords []*ast.Node
	for _, arg := range named(argNode) {
		switch arg.Type() {
		case "keyword_argument":
			keywords = append(keywords, c.keyword(arg))
		case "dictionary_splat":
			keywords = append(keywords, c.node(ast.Keyword, arg, ast.Fields{"value": c.expr(named(arg)[0])}))
		default:
			args = append(args, c.expr(arg))
		}
	}
	f["args"] = args
	f["keywords"] = keywords
	return c.node(ast.Call, n, f)
}

// operator returns the text of n's operator field.
func (c *converter) operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	return ""
}

// compare collects the operands of a chained comparison. Operators made of
// two keywords (not in, is not) arrive as separate tokens.
func (c *converter) compare(n *sitter.Node) *ast.Node {
	var operands []*ast.Node
	var ops []string
	var pending []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "comment" {
			continue
		}
		if child.IsNamed() {
			if len(operands) > 0 {
				ops = append(ops, strings.Join(pending, " "))
			}
			pending = pending[:0]
			operands = append(operands, c.expr(child))
			continue
		}
		pending = append(pending, child.Type())
	}
	if len(operands) < 2 {
		c.unsupported(n)
	}
	return c.node(ast.Compare, n, ast.Fields{"left": operands[0], "ops": ops, "comparators": operands[1:]})
}

// comprehension converts list, set and dict comprehensions and generator
// expressions. if clauses attach to the generator before them.
func (c *converter) comprehension(kind ast.Kind, n *sitter.Node) *ast.Node {
	body := n.ChildByFieldName("body")
	if body == nil {
		c.unsupported(n)
	}
	var generators []*ast.Node
	var target, iter *ast.Node
	var ifs []*ast.Node
	flush := func(at *sitter.Node) {
		if target != nil {
			generators = append(generators, c.node(ast.Comprehension, at, ast.Fields{"target": target, "iter": iter, "ifs": ifs}))
		}
	}
	var last *sitter.Node
	for _, child := range named(n) {
		switch child.Type() {
		case "for_in_clause":
			flush(last)
			last = child
			target = c.target(child.ChildByFieldName("left"), ast.Store)
			rights := fieldChildren(child, "right")
			if len(rights) == 1 {
				iter = c.expr(rights[0])
			} else {
				iter = c.node(ast.Tuple, child, ast.Fields{"elts": c.exprs(rights), "ctx": ast.Load})
			}
			ifs = nil
		case "if_clause":
			if inner := named(child); len(inner) > 0 {
				ifs = append(ifs, c.expr(inner[0]))
			}
		}
	}
	flush(last)

	f := ast.Fields{"generators": generators}
	if kind == ast.DictComp {
		if body.Type() != "pair" {
			c.unsupported(body)
		}
		f["key"] = c.expr(body.ChildByFieldName("key"))
		f["value"] = c.expr(body.ChildByFieldName("value"))
	} else {
		f["elt"] = c.expr(body)
	}
	return c.node(kind, n, f)
}

// str converts one or more adjacent string literals. Literals with
// interpolations become a JoinedStr holding the interpolated expressions.
func (c *converter) str(n *sitter.Node, parts []*sitter.Node) *ast.Node {
	var values []*ast.Node
	for _, part := range parts {
		c.interpolations(part, &values)
	}
	if len(values) == 0 {
		return c.node(ast.Str, n, ast.Fields{"s": c.text(n)})
	}
	return c.node(ast.JoinedStr, n, ast.Fields{"values": values})
}

func (c *converter) interpolations(n *sitter.Node, out *[]*ast.Node) {
	for _, child := range named(n) {
		if child.Type() != "interpolation" {
			c.interpolations(child, out)
			continue
		}
		expr := child.ChildByFieldName("expression")
		if expr == nil {
			if inner := named(child); len(inner) > 0 {
				expr = inner[0]
			}
		}
		if expr != nil {
			*out = append(*out, c.expr(expr))
		}
		// Format specs may hold nested interpolations.
		for _, spec := range named(child) {
			if spec.Type() == "format_specifier" {
				c.interpolations(spec, out)
			}
		}
	}
}
