// Copyright © 2024 The ELPS authors

package ast

// FieldType is the value type a field holds.
type FieldType uint8

const (
	// FieldNode holds a single *Node.
	FieldNode FieldType = iota
	// FieldList holds an ordered []*Node. Absent lists read as empty.
	FieldList
	// FieldString holds a scalar string.
	FieldString
	// FieldStrings holds a []string.
	FieldStrings
	// FieldInt holds a scalar int.
	FieldInt
)

func (t FieldType) String() string {
	switch t {
	case FieldNode:
		return "node"
	case FieldList:
		return "list"
	case FieldString:
		return "string"
	case FieldStrings:
		return "strings"
	case FieldInt:
		return "int"
	default:
		return "unknown"
	}
}

// Field declares one named field of a node kind.
type Field struct {
	Name     string
	Type     FieldType
	Optional bool
}

// Expression contexts, stored in the "ctx" field.
const (
	Load  = "Load"
	Store = "Store"
	Del   = "Del"
	Param = "Param"
)

func node(name string) Field { return Field{Name: name, Type: FieldNode} }
func optNode(name string) Field { return Field{Name: name, Type: FieldNode, Optional: true} }
func list(name string) Field { return Field{Name: name, Type: FieldList, Optional: true} }
func str(name string) Field { return Field{Name: name, Type: FieldString} }
func optStr(name string) Field { return Field{Name: name, Type: FieldString, Optional: true} }
func strs(name string) Field { return Field{Name: name, Type: FieldStrings, Optional: true} }
func optInt(name string) Field { return Field{Name: name, Type: FieldInt, Optional: true} }
func ctxField() Field { return Field{Name: "ctx", Type: FieldString, Optional: true} }
func fields(f ...Field) []Field { return f }

// schema lists the fields of every kind in traversal order.
var schema = [numKinds][]Field{
	Module: fields(list("body")),

	FunctionDef:   fields(list("decorators"), str("name"), list("type_params"), node("args"), optNode("returns"), list("body")),
	ClassDef:      fields(list("decorators"), str("name"), list("type_params"), list("bases"), list("keywords"), list("body")),
	Return:        fields(optNode("value")),
	Delete:        fields(list("targets")),
	Assign:        fields(list("targets"), node("value")),
	AugAssign:     fields(node("target"), optStr("op"), node("value")),
	AnnAssign:     fields(node("target"), node("annotation"), optNode("value")),
	For:           fields(node("target"), node("iter"), list("body"), list("orelse")),
	While:         fields(node("test"), list("body"), list("orelse")),
	If:            fields(node("test"), list("body"), list("orelse")),
	With:          fields(node("context_expr"), optNode("optional_vars"), list("body")),
	Raise:         fields(optNode("exc"), optNode("inst"), optNode("tback"), optNode("cause")),
	TryExcept:     fields(list("body"), list("handlers"), list("orelse")),
	TryFinally:    fields(list("body"), list("finalbody")),
	ExceptHandler: fields(optNode("type"), optNode("name"), list("body")),
	Assert:        fields(node("test"), optNode("msg")),
	Import:        fields(list("names")),
	ImportFrom:    fields(optStr("module"), list("names"), optInt("level")),
	Global:        fields(strs("names")),
	Nonlocal:      fields(strs("names")),
	Expr:          fields(node("value")),
	Pass:          nil,
	Break:         nil,
	Continue:      nil,
	Print:         fields(optNode("dest"), list("values")),
	Exec:          fields(node("body"), optNode("globals"), optNode("locals")),

	BoolOp:       fields(optStr("op"), list("values")),
	BinOp:        fields(node("left"), optStr("op"), node("right")),
	UnaryOp:      fields(optStr("op"), node("operand")),
	Lambda:       fields(node("args"), node("body")),
	IfExp:        fields(node("test"), node("body"), node("orelse")),
	Dict:         fields(list("keys"), list("values"), list("unpack")),
	Set:          fields(list("elts")),
	ListComp:     fields(node("elt"), list("generators")),
	SetComp:      fields(node("elt"), list("generators")),
	DictComp:     fields(node("key"), node("value"), list("generators")),
	GeneratorExp: fields(node("elt"), list("generators")),
	Await:        fields(node("value")),
	Yield:        fields(optNode("value")),
	Compare:      fields(node("left"), strs("ops"), list("comparators")),
	Call:         fields(node("func"), list("args"), list("keywords"), optNode("starargs"), optNode("kwargs")),
	Repr:         fields(node("value")),
	Num:          fields(optStr("n")),
	Str:          fields(optStr("s")),
	JoinedStr:    fields(list("values")),
	NameConstant: fields(str("value")),
	Attribute:    fields(node("value"), str("attr"), ctxField()),
	Subscript:    fields(node("value"), node("slice"), ctxField()),
	Starred:      fields(node("value"), ctxField()),
	Name:         fields(str("id"), ctxField()),
	List:         fields(list("elts"), ctxField()),
	Tuple:        fields(list("elts"), ctxField()),
	Ellipsis:     nil,
	Slice:        fields(optNode("lower"), optNode("upper"), optNode("step")),
	Index:        fields(node("value")),
	NamedExpr:    fields(node("target"), node("value")),

	Comprehension: fields(node("target"), node("iter"), list("ifs")),
	Arguments:     fields(list("args"), optStr("vararg"), optStr("kwarg"), list("kwonlyargs"), list("defaults"), list("annotations")),
	Keyword:       fields(optStr("arg"), node("value")),
	Alias:         fields(str("name"), optStr("asname")),
}

// Schema returns the declared fields of kind k in traversal order. It
// returns nil for kinds without fields and for unknown kinds.
func Schema(k Kind) []Field {
	if !k.Valid() {
		return nil
	}
	return schema[k]
}

// lookupField finds the declaration of field name on kind k.
func lookupField(k Kind, name string) (Field, bool) {
	for _, f := range Schema(k) {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
