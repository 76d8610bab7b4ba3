// Copyright © 2024 The ELPS authors

package repl

import (
	"context"
	"sort"
	"strings"

	"github.com/luthersystems/flakes/analysis"
	"github.com/luthersystems/flakes/lint"
	"github.com/luthersystems/flakes/parser"
)

// SessionFile is the filename diagnostics report for REPL input.
const SessionFile = "<repl>"

// Session accumulates the source entered at the prompt. Every submission
// is checked in the context of everything entered before it, so a name
// defined earlier is not reported as undefined later.
type Session struct {
	linter   *lint.Linter
	lines    []string
	reported map[string]bool
	names    []string
}

// NewSession returns an empty session checked with l.
func NewSession(l *lint.Linter) *Session {
	return &Session{linter: l, reported: make(map[string]bool)}
}

// Source returns the accepted input so far.
func (s *Session) Source() string {
	if len(s.lines) == 0 {
		return ""
	}
	return strings.Join(s.lines, "\n") + "\n"
}

// Reset forgets all input.
func (s *Session) Reset() {
	s.lines = nil
	s.names = nil
	s.reported = make(map[string]bool)
}

// Names returns the module-level names bound so far, sorted.
func (s *Session) Names() []string {
	return s.names
}

// Submit checks chunk appended to the session. Input that does not parse
// is rejected and the session is left unchanged. Otherwise the chunk is
// kept and the diagnostics not returned by an earlier call are returned.
// Unused imports are left out because later input may still use them;
// Check reports them.
func (s *Session) Submit(ctx context.Context, chunk string) ([]lint.Diagnostic, error) {
	lines := append(append([]string(nil), s.lines...), strings.Split(strings.TrimRight(chunk, "\n"), "\n")...)
	diags, err := s.check(ctx, lines)
	if err != nil {
		return nil, err
	}
	s.lines = lines

	var fresh []lint.Diagnostic
	for _, d := range diags {
		if d.Analyzer == lint.AnalyzerUnusedImport.Name {
			continue
		}
		key := d.String()
		if s.reported[key] {
			continue
		}
		s.reported[key] = true
		fresh = append(fresh, d)
	}
	return fresh, nil
}

// Check returns every diagnostic for the session as it stands.
func (s *Session) Check(ctx context.Context) ([]lint.Diagnostic, error) {
	return s.check(ctx, s.lines)
}

func (s *Session) check(ctx context.Context, lines []string) ([]lint.Diagnostic, error) {
	src := ""
	if len(lines) > 0 {
		src = strings.Join(lines, "\n") + "\n"
	}
	file, err := parser.Parse(ctx, []byte(src), SessionFile)
	if err != nil {
		return nil, err
	}
	res, err := analysis.AnalyzeContext(ctx, file.Module, &analysis.Config{
		Filename:  SessionFile,
		Builtins:  s.linter.Builtins,
		Annotator: s.linter.Annotator,
		Logger:    s.linter.Logger,
	})
	if err != nil {
		return nil, err
	}
	diags, err := s.linter.LintParsed(file, res)
	if err != nil {
		return nil, err
	}
	s.names = s.names[:0]
	for _, b := range res.Module().Bindings() {
		s.names = append(s.names, b.Name)
	}
	sort.Strings(s.names)
	return diags, nil
}
