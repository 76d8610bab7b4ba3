// Copyright © 2024 The ELPS authors

// Package lint reports checker findings as diagnostics.
//
// The linter is modeled after go vet: each check is an independent Analyzer
// that receives a parsed file and the checker's result and reports
// diagnostics. The framework handles parsing, running analyzers, honoring
// suppression comments, collecting results, and formatting output.
package lint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/luthersystems/flakes/analysis"
	"github.com/luthersystems/flakes/ast"
	"github.com/luthersystems/flakes/parser"
	"github.com/luthersystems/flakes/trace"
)

// Severity indicates the severity level of a lint diagnostic.
type Severity int

const (
	severityUnset Severity = iota // unexported zero sentinel for default detection
	SeverityError
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the severity as a JSON string.
// An unset severity (zero value) is marshaled as "warning".
func (s Severity) MarshalJSON() ([]byte, error) {
	if s == severityUnset {
		return json.Marshal("warning")
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON deserializes a severity from a JSON string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity: %q", str)
	}
	return nil
}

// Analyzer defines a single lint check.
type Analyzer struct {
	// Name is a short identifier for this check (e.g. "unused-import").
	Name string

	// Code is the flake8 code of the check (e.g. "F401"). Several analyzers
	// may share a code.
	Code string

	// Doc is a human-readable description. The first line is a short summary.
	Doc string

	// Severity is the default severity for diagnostics from this analyzer.
	Severity Severity

	// Run executes the check. It should call pass.Report() for each finding.
	Run func(pass *Pass) error
}

// Pass provides context to a running analyzer.
type Pass struct {
	// Analyzer is the currently running check.
	Analyzer *Analyzer

	// Filename is the source file being analyzed.
	Filename string

	// File is the parsed source.
	File *parser.File

	// Semantics holds the checker's result for File.
	Semantics *analysis.Result

	diagnostics []Diagnostic
}

// Report records a diagnostic finding.
func (p *Pass) Report(d Diagnostic) {
	d.Analyzer = p.Analyzer.Name
	if d.Code == "" {
		d.Code = p.Analyzer.Code
	}
	if d.Severity == severityUnset {
		d.Severity = p.Analyzer.Severity
	}
	p.diagnostics = append(p.diagnostics, d)
}

// ReportWithNotes records a diagnostic with additional hint text.
func (p *Pass) ReportWithNotes(d Diagnostic, notes ...string) {
	d.Notes = append(d.Notes, notes...)
	p.Report(d)
}

// Reportf is a convenience for reporting a diagnostic at a position.
func (p *Pass) Reportf(pos ast.Pos, format string, args ...interface{}) {
	p.Report(Diagnostic{
		Pos:     PositionOf(p.Filename, pos),
		Message: fmt.Sprintf(format, args...),
	})
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	// Pos is the source location of the problem.
	Pos Position `json:"pos"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`

	// Analyzer is the name of the check that found this problem.
	Analyzer string `json:"analyzer"`

	// Code is the flake8 code of the check.
	Code string `json:"code"`

	// Severity is the severity level of the diagnostic.
	Severity Severity `json:"severity"`

	// Notes are optional hint text lines for the user.
	Notes []string `json:"notes,omitempty"`

	// Name is the identifier the diagnostic is about, when there is one.
	Name string `json:"name,omitempty"`

	// Event is the checker message behind the diagnostic, if any.
	Event *analysis.Message `json:"-"`
}

// Position identifies a location in source code. Line and Col are 1-based;
// a zero Col means the column is unknown.
type Position struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col,omitempty"`
}

// PositionOf converts a syntax tree position into a Position.
func PositionOf(filename string, pos ast.Pos) Position {
	return Position{File: filename, Line: pos.Line, Col: pos.Col + 1}
}

// String returns the position in file:line:col format.
func (p Position) String() string {
	if p.Line == 0 {
		return p.File
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// String returns the diagnostic in go vet style: file:line:col: message
// (analyzer) with optional note lines appended.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s (%s)", d.Pos, d.Message, d.Analyzer)
	for _, n := range d.Notes {
		s += "\n  = note: " + n
	}
	return s
}

// Plain returns the diagnostic in the classic file:line: message form.
func (d Diagnostic) Plain() string {
	return fmt.Sprintf("%s:%d: %s", d.Pos.File, d.Pos.Line, d.Message)
}

// Linter runs a set of analyzers over source files.
type Linter struct {
	Analyzers []*Analyzer

	// Builtins are extra names treated as always defined.
	Builtins []string

	// Annotator, when set, receives spans for parsing and analysis.
	Annotator trace.Annotator

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// LintFile parses, analyzes, and lints a single source file.
func (l *Linter) LintFile(source []byte, filename string) ([]Diagnostic, error) {
	return l.LintFileContext(context.Background(), source, filename)
}

// LintFileContext is LintFile with a context for cancellation and tracing.
// Source that does not parse is returned as an error, either a
// *parser.SyntaxError or a *parser.UnsupportedError.
func (l *Linter) LintFileContext(ctx context.Context, source []byte, filename string) ([]Diagnostic, error) {
	ctx, end := trace.Start(ctx, l.Annotator, "lint", trace.String("file", filename))
	defer end()

	pctx, endParse := trace.Start(ctx, l.Annotator, "parse")
	file, err := parser.Parse(pctx, source, filename)
	endParse()
	if err != nil {
		return nil, err
	}

	result, err := analysis.AnalyzeContext(ctx, file.Module, &analysis.Config{
		Filename:  filename,
		Builtins:  l.Builtins,
		Annotator: l.Annotator,
		Logger:    l.Logger,
	})
	if err != nil {
		return nil, err
	}
	return l.LintParsed(file, result)
}

// LintParsed runs the analyzers over an already parsed and analyzed file.
func (l *Linter) LintParsed(file *parser.File, semantics *analysis.Result) ([]Diagnostic, error) {
	var all []Diagnostic
	for _, analyzer := range l.Analyzers {
		pass := &Pass{
			Analyzer:  analyzer,
			Filename:  file.Filename,
			File:      file,
			Semantics: semantics,
		}
		if err := analyzer.Run(pass); err != nil {
			return nil, fmt.Errorf("%s: analyzer %s: %w", file.Filename, analyzer.Name, err)
		}
		for i := range pass.diagnostics {
			if pass.diagnostics[i].Pos.File == "" {
				pass.diagnostics[i].Pos.File = file.Filename
			}
		}
		all = append(all, pass.diagnostics...)
	}

	all = filterSuppressed(all, file)
	SortDiagnostics(all)
	return all, nil
}

// SortDiagnostics orders diagnostics by file, line and column. Ties keep
// their reported order.
func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Pos, diags[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
}

// filterSuppressed removes diagnostics on lines carrying a matching noqa or
// nolint comment.
func filterSuppressed(diags []Diagnostic, file *parser.File) []Diagnostic {
	directives := make(map[int]*Directive)
	for _, c := range file.Comments {
		if d := ParseDirective(c.Text); d != nil {
			directives[c.Line] = d
		}
	}
	if len(directives) == 0 {
		return diags
	}
	var filtered []Diagnostic
	for _, d := range diags {
		if dir, ok := directives[d.Pos.Line]; ok && dir.Suppresses(d) {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered
}

// FormatText writes diagnostics in go vet text format.
func FormatText(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String()) //nolint:errcheck // best-effort output to writer
	}
}

// FormatPlain writes diagnostics in the classic file:line: message format.
func FormatPlain(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.Plain()) //nolint:errcheck // best-effort output to writer
	}
}

// FormatJSON writes diagnostics as JSON.
func FormatJSON(w io.Writer, diags []Diagnostic) error {
	if diags == nil {
		diags = []Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}
