// Copyright © 2024 The ELPS authors

package ast

// Builders for the nodes most trees are made of. They panic like Must when
// handed values the schema rejects.

func NewModule(body ...*Node) *Node {
	return Must(Module, At(1, 0), Fields{"body": body})
}

func NewName(pos Pos, id, ctx string) *Node {
	return Must(Name, pos, Fields{"id": id, "ctx": ctx})
}

func NewAlias(name, asname string) *Node {
	f := Fields{"name": name}
	if asname != "" {
		f["asname"] = asname
	}
	return Must(Alias, Pos{}, f)
}

// NewImport builds `import a, b as c`; each name may be "mod" or "mod as x".
func NewImport(pos Pos, aliases ...*Node) *Node {
	return Must(Import, pos, Fields{"names": aliases})
}

// NewImportFrom builds `from module import ...` with the given relative
// import level.
func NewImportFrom(pos Pos, module string, level int, aliases ...*Node) *Node {
	f := Fields{"names": aliases, "level": level}
	if module != "" {
		f["module"] = module
	}
	return Must(ImportFrom, pos, f)
}

func NewExpr(value *Node) *Node {
	return Must(Expr, value.Pos, Fields{"value": value})
}

func NewAssign(pos Pos, value *Node, targets ...*Node) *Node {
	return Must(Assign, pos, Fields{"targets": targets, "value": value})
}
