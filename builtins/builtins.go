// Copyright © 2024 The ELPS authors

// Package builtins answers whether a Python identifier is always defined,
// independent of anything a module imports or binds.
package builtins

import "sort"

// allowed are module attributes the interpreter injects into every module.
var allowed = []string{
	"__file__",
	"__name__",
	"__doc__",
	"__package__",
	"__builtins__",
	"__loader__",
	"__spec__",
	"__path__",
	"__annotations__",
	"WindowsError",
}

// names is the union of the Python 2.7 and Python 3 builtin namespaces.
var names = []string{
	// Constants.
	"True", "False", "None", "NotImplemented", "Ellipsis", "__debug__",
	"copyright", "credits", "license", "exit", "quit",

	// Functions.
	"__import__", "__build_class__", "abs", "aiter", "all", "anext", "any",
	"apply", "ascii", "basestring", "bin", "bool", "breakpoint", "buffer",
	"bytearray", "bytes", "callable", "chr", "classmethod", "cmp", "coerce",
	"compile", "complex", "delattr", "dict", "dir", "divmod", "enumerate",
	"eval", "exec", "execfile", "file", "filter", "float", "format",
	"frozenset", "getattr", "globals", "hasattr", "hash", "help", "hex", "id",
	"input", "int", "intern", "isinstance", "issubclass", "iter", "len",
	"list", "locals", "long", "map", "max", "memoryview", "min", "next",
	"object", "oct", "open", "ord", "pow", "print", "property", "range",
	"raw_input", "reduce", "reload", "repr", "reversed", "round", "set",
	"setattr", "slice", "sorted", "staticmethod", "str", "sum", "super",
	"tuple", "type", "unichr", "unicode", "vars", "xrange", "zip",

	// Exceptions and warnings.
	"ArithmeticError", "AssertionError", "AttributeError", "BaseException",
	"BaseExceptionGroup", "BlockingIOError", "BrokenPipeError", "BufferError",
	"BytesWarning", "ChildProcessError", "ConnectionAbortedError",
	"ConnectionError", "ConnectionRefusedError", "ConnectionResetError",
	"DeprecationWarning", "EncodingWarning", "EnvironmentError", "EOFError",
	"Exception", "ExceptionGroup", "FileExistsError", "FileNotFoundError",
	"FloatingPointError", "FutureWarning", "GeneratorExit", "ImportError",
	"ImportWarning", "IndentationError", "IndexError", "InterruptedError",
	"IOError", "IsADirectoryError", "KeyboardInterrupt", "KeyError",
	"LookupError", "MemoryError", "ModuleNotFoundError", "NameError",
	"NotADirectoryError", "NotImplementedError", "OSError", "OverflowError",
	"PendingDeprecationWarning", "PermissionError", "ProcessLookupError",
	"RecursionError", "ReferenceError", "ResourceWarning", "RuntimeError",
	"RuntimeWarning", "StandardError", "StopAsyncIteration", "StopIteration",
	"SyntaxError", "SyntaxWarning", "SystemError", "SystemExit", "TabError",
	"TimeoutError", "TypeError", "UnboundLocalError", "UnicodeDecodeError",
	"UnicodeEncodeError", "UnicodeError", "UnicodeTranslateError",
	"UnicodeWarning", "UserWarning", "ValueError", "Warning",
	"ZeroDivisionError",
}

var table = func() map[string]bool {
	m := make(map[string]bool, len(allowed)+len(names))
	for _, n := range allowed {
		m[n] = true
	}
	for _, n := range names {
		m[n] = true
	}
	return m
}()

// IsDefined reports whether name is always defined: either one of the
// implicit module attributes or a member of the builtin namespace.
func IsDefined(name string) bool {
	return table[name]
}

// IsAllowed reports whether name is one of the implicit module attributes
// such as __file__.
func IsAllowed(name string) bool {
	for _, n := range allowed {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns every always-defined name, sorted.
func Names() []string {
	out := make([]string, 0, len(table))
	for n := range table {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Oracle extends the builtin table with project-specific names, such as
// the ones a test framework or a gettext install injects.
type Oracle struct {
	extra map[string]bool
}

// NewOracle returns an oracle accepting the builtin table plus extra.
func NewOracle(extra ...string) *Oracle {
	o := &Oracle{extra: make(map[string]bool, len(extra))}
	for _, n := range extra {
		if n != "" {
			o.extra[n] = true
		}
	}
	return o
}

// IsDefined reports whether name is always defined. A nil oracle consults
// only the builtin table.
func (o *Oracle) IsDefined(name string) bool {
	if IsDefined(name) {
		return true
	}
	return o != nil && o.extra[name]
}
