// Copyright © 2024 The ELPS authors

package ast

// Kind is the syntactic kind of a Node. The set is closed: every kind has a
// field schema and anything else is rejected at construction time.
type Kind uint8

const (
	Invalid Kind = iota

	// Module level.
	Module

	// Statements.
	FunctionDef
	ClassDef
	Return
	Delete
	Assign
	AugAssign
	AnnAssign
	For
	While
	If
	With
	Raise
	TryExcept
	TryFinally
	ExceptHandler
	Assert
	Import
	ImportFrom
	Global
	Nonlocal
	Expr
	Pass
	Break
	Continue
	Print
	Exec

	// Expressions.
	BoolOp
	BinOp
	UnaryOp
	Lambda
	IfExp
	Dict
	Set
	ListComp
	SetComp
	DictComp
	GeneratorExp
	Await
	Yield
	Compare
	Call
	Repr
	Num
	Str
	JoinedStr
	NameConstant
	Attribute
	Subscript
	Starred
	Name
	List
	Tuple
	Ellipsis
	Slice
	Index
	NamedExpr

	// Auxiliary nodes.
	Comprehension
	Arguments
	Keyword
	Alias

	numKinds
)

var kindNames = [numKinds]string{
	Invalid:       "Invalid",
	Module:        "Module",
	FunctionDef:   "FunctionDef",
	ClassDef:      "ClassDef",
	Return:        "Return",
	Delete:        "Delete",
	Assign:        "Assign",
	AugAssign:     "AugAssign",
	AnnAssign:     "AnnAssign",
	For:           "For",
	While:         "While",
	If:            "If",
	With:          "With",
	Raise:         "Raise",
	TryExcept:     "TryExcept",
	TryFinally:    "TryFinally",
	ExceptHandler: "ExceptHandler",
	Assert:        "Assert",
	Import:        "Import",
	ImportFrom:    "ImportFrom",
	Global:        "Global",
	Nonlocal:      "Nonlocal",
	Expr:          "Expr",
	Pass:          "Pass",
	Break:         "Break",
	Continue:      "Continue",
	Print:         "Print",
	Exec:          "Exec",
	BoolOp:        "BoolOp",
	BinOp:         "BinOp",
	UnaryOp:       "UnaryOp",
	Lambda:        "Lambda",
	IfExp:         "IfExp",
	Dict:          "Dict",
	Set:           "Set",
	ListComp:      "ListComp",
	SetComp:       "SetComp",
	DictComp:      "DictComp",
	GeneratorExp:  "GeneratorExp",
	Await:         "Await",
	Yield:         "Yield",
	Compare:       "Compare",
	Call:          "Call",
	Repr:          "Repr",
	Num:           "Num",
	Str:           "Str",
	JoinedStr:     "JoinedStr",
	NameConstant:  "NameConstant",
	Attribute:     "Attribute",
	Subscript:     "Subscript",
	Starred:       "Starred",
	Name:          "Name",
	List:          "List",
	Tuple:         "Tuple",
	Ellipsis:      "Ellipsis",
	Slice:         "Slice",
	Index:         "Index",
	NamedExpr:     "NamedExpr",
	Comprehension: "Comprehension",
	Arguments:     "Arguments",
	Keyword:       "Keyword",
	Alias:         "Alias",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Valid reports whether k is a known, non-sentinel kind.
func (k Kind) Valid() bool {
	return k > Invalid && k < numKinds
}

// IsStatement reports whether nodes of kind k appear in statement lists.
func (k Kind) IsStatement() bool {
	return k >= FunctionDef && k <= Exec
}

// KindByName returns the kind with the given name.
func KindByName(name string) (Kind, bool) {
	for k := Invalid + 1; k < numKinds; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return Invalid, false
}
