// Copyright © 2024 The ELPS authors

package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/luthersystems/flakes/analysis"
)

// AnalyzerUndefinedName reports reads of names bound nowhere in scope.
var AnalyzerUndefinedName = messageAnalyzer(analysis.UndefinedName, "undefined-name", SeverityError,
	"Report names that are read but never bound.\n\nA name is defined when some enclosing scope binds it, when it is a builtin, or when it is listed in the configured extra builtins. Class bodies are not visible to the functions nested inside them. Scopes that use a wildcard import are not checked.",
	nil)

// AnalyzerUnusedImport reports imports that nothing reads.
var AnalyzerUnusedImport = messageAnalyzer(analysis.UnusedImport, "unused-import", SeverityWarning,
	"Report imports whose binding is never used.\n\nThe check runs once every scope has been closed, so a use inside a function defined later in the file still counts. Imports from __future__ are never reported.",
	nil)

// AnalyzerRedefinedWhileUnused reports rebinding an import before any use.
var AnalyzerRedefinedWhileUnused = messageAnalyzer(analysis.RedefinedWhileUnused, "redefined-while-unused", SeverityWarning,
	"Report an unused import that is rebound by a later binding.\n\nThe rebinding can be another import, an assignment, a parameter, a function or class definition, a loop or comprehension target, or an except clause. Bindings in a class body do not trigger it.",
	func(m *analysis.Message) []string {
		return []string{fmt.Sprintf("'%s' was imported on line %d", m.Name, m.OrigLine)}
	})

// AnalyzerRedefinedFunction reports a function defined twice in one scope
// with no use in between.
var AnalyzerRedefinedFunction = messageAnalyzer(analysis.RedefinedFunction, "redefined-function", SeverityWarning,
	"Report a function definition that replaces an earlier, unused one.\n\nThis usually means a copy-pasted method whose name was not changed. Class bodies are checked too.",
	func(m *analysis.Message) []string {
		return []string{fmt.Sprintf("the first definition of '%s' is on line %d", m.Name, m.OrigLine)}
	})

// AnalyzerImportStarUsed reports wildcard imports.
var AnalyzerImportStarUsed = messageAnalyzer(analysis.ImportStarUsed, "import-star-used", SeverityWarning,
	"Report `from module import *`.\n\nA wildcard import makes every name potentially defined, so undefined names are no longer reported in the importing scope.",
	nil)

// AnalyzerImportShadowedByLoopVar reports a for loop target that rebinds a
// used import.
var AnalyzerImportShadowedByLoopVar = messageAnalyzer(analysis.ImportShadowedByLoopVar, "import-shadowed-by-loop-var", SeverityWarning,
	"Report a for loop variable that shadows an import already in use.\n\nCode after the loop sees the loop value instead of the module.",
	func(m *analysis.Message) []string {
		return []string{fmt.Sprintf("'%s' was imported on line %d", m.Name, m.OrigLine)}
	})

// AnalyzerDuplicateArgument reports a parameter name repeated in one
// function signature.
var AnalyzerDuplicateArgument = messageAnalyzer(analysis.DuplicateArgument, "duplicate-argument", SeverityError,
	"Report a parameter name used more than once in a function or lambda signature.",
	nil)

// AnalyzerLateFutureImport reports __future__ imports after other
// statements.
var AnalyzerLateFutureImport = messageAnalyzer(analysis.LateFutureImport, "late-future-import", SeverityError,
	"Report `from __future__ import` statements that follow other code.\n\nFuture imports must come first in a module, after the docstring and other future imports.",
	func(*analysis.Message) []string {
		return []string{"move the import to the top of the module"}
	})

// messageAnalyzer builds an analyzer that reports every checker message of
// kind. notes may be nil.
func messageAnalyzer(kind analysis.MessageKind, name string, severity Severity, doc string, notes func(*analysis.Message) []string) *Analyzer {
	return &Analyzer{
		Name:     name,
		Code:     kind.Code(),
		Doc:      doc,
		Severity: severity,
		Run: func(pass *Pass) error {
			if pass.Semantics == nil {
				return nil
			}
			for _, m := range pass.Semantics.MessagesOf(kind) {
				d := Diagnostic{
					Pos:     PositionOf(pass.Filename, m.Pos),
					Message: m.Text(),
					Event:   m,
				}
				if kind != analysis.LateFutureImport {
					d.Name = m.Name
				}
				if notes != nil {
					pass.ReportWithNotes(d, notes(m)...)
				} else {
					pass.Report(d)
				}
			}
			return nil
		},
	}
}

// DefaultAnalyzers returns the built-in set of lint checks.
func DefaultAnalyzers() []*Analyzer {
	return []*Analyzer{
		AnalyzerUndefinedName,
		AnalyzerUnusedImport,
		AnalyzerRedefinedWhileUnused,
		AnalyzerRedefinedFunction,
		AnalyzerImportStarUsed,
		AnalyzerImportShadowedByLoopVar,
		AnalyzerDuplicateArgument,
		AnalyzerLateFutureImport,
	}
}

// AnalyzerNames returns the sorted names of the built-in analyzers.
func AnalyzerNames() []string {
	var names []string
	for _, a := range DefaultAnalyzers() {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the built-in analyzers matching a name or a code.
func Lookup(nameOrCode string) []*Analyzer {
	var out []*Analyzer
	for _, a := range DefaultAnalyzers() {
		if a.Name == nameOrCode || strings.EqualFold(a.Code, nameOrCode) {
			out = append(out, a)
		}
	}
	return out
}

// Select resolves analyzer names or codes into analyzers, in default
// order and without duplicates. An empty list selects every analyzer.
func Select(names []string) ([]*Analyzer, error) {
	if len(names) == 0 {
		return DefaultAnalyzers(), nil
	}
	want := make(map[*Analyzer]bool)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		found := Lookup(n)
		if len(found) == 0 {
			return nil, fmt.Errorf("unknown check %q (available: %s)", n, strings.Join(AnalyzerNames(), ", "))
		}
		for _, a := range found {
			want[a] = true
		}
	}
	var out []*Analyzer
	for _, a := range DefaultAnalyzers() {
		if want[a] {
			out = append(out, a)
		}
	}
	return out, nil
}

// AnalyzerDoc renders the documentation for a, wrapped to width columns.
func AnalyzerDoc(a *Analyzer, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %s)\n\n", a.Name, a.Code, a.Severity)
	for i, para := range strings.Split(a.Doc, "\n\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(indent.String(wordwrap.String(para, width-2), 2))
		b.WriteString("\n")
	}
	return b.String()
}

// Summary returns the first line of the analyzer's documentation.
func (a *Analyzer) Summary() string {
	summary, _, _ := strings.Cut(a.Doc, "\n")
	return summary
}
