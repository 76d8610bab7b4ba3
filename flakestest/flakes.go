// Copyright © 2024 The ELPS authors

// Package flakestest runs Python snippets through the parser and checker
// for tests.
package flakestest

import (
	"context"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/luthersystems/flakes/analysis"
	"github.com/luthersystems/flakes/parser"
	"github.com/stretchr/testify/require"
)

// Check parses the dedented src and analyzes it as test.py.
func Check(t testing.TB, src string) *analysis.Result {
	t.Helper()
	f, err := parser.Parse(context.Background(), []byte(Dedent(src)), "test.py")
	require.NoError(t, err, "parse")
	res, err := analysis.Analyze(f.Module, &analysis.Config{Filename: f.Filename, Logger: Slog(t)})
	require.NoError(t, err, "analyze")
	return res
}

// Flakes checks src and asserts the kinds of the reported messages match
// want, ignoring order.
func Flakes(t testing.TB, src string, want ...analysis.MessageKind) *analysis.Result {
	t.Helper()
	res := Check(t, src)
	got := make([]analysis.MessageKind, 0, len(res.Messages))
	for _, m := range res.Messages {
		got = append(got, m.Kind)
	}
	exp := append([]analysis.MessageKind{}, want...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	sort.Slice(exp, func(i, j int) bool { return exp[i] < exp[j] })

	var rendered []string
	for _, m := range res.Messages {
		rendered = append(rendered, m.String())
	}
	require.Equal(t, exp, got, "for input:\n%s\nbut got:\n%s", src, strings.Join(rendered, "\n"))
	return res
}

// Dedent removes the indentation common to every non-blank line and a
// single leading newline, so sources can be written as indented raw
// strings.
func Dedent(src string) string {
	src = strings.TrimPrefix(src, "\n")
	lines := strings.Split(src, "\n")
	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix, first = indent, false
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}

// BenchmarkCheck returns a benchmark parsing and analyzing the file at
// path.
func BenchmarkCheck(path string) func(*testing.B) {
	return func(b *testing.B) {
		buf, err := os.ReadFile(path) //#nosec G304
		if err != nil {
			b.Fatalf("Unable to read source file %v: %v", path, err)
		}
		b.SetBytes(int64(len(buf)))
		for i := 0; i < b.N; i++ {
			f, err := parser.Parse(context.Background(), buf, path)
			if err != nil {
				b.Fatalf("Parse failure: %v", err)
			}
			if _, err := analysis.Analyze(f.Module, &analysis.Config{Filename: path}); err != nil {
				b.Fatalf("Analysis failure: %v", err)
			}
		}
	}
}
