// Copyright © 2024 The ELPS authors

package lint

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	parsec "github.com/prataprc/goparsec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/flakes/diagnostic"
	"github.com/luthersystems/flakes/parser"
)

func lintSource(t *testing.T, src string, analyzers ...*Analyzer) []Diagnostic {
	t.Helper()
	if len(analyzers) == 0 {
		analyzers = DefaultAnalyzers()
	}
	l := &Linter{Analyzers: analyzers}
	diags, err := l.LintFile([]byte(src), "test.py")
	require.NoError(t, err)
	return diags
}

func analyzerNames(diags []Diagnostic) []string {
	var names []string
	for _, d := range diags {
		names = append(names, d.Analyzer)
	}
	return names
}

func TestLintFile(t *testing.T) {
	diags := lintSource(t, "import os\nprint(undefined)\n")
	require.Len(t, diags, 2)

	assert.Equal(t, Position{File: "test.py", Line: 1, Col: 1}, diags[0].Pos)
	assert.Equal(t, "unused-import", diags[0].Analyzer)
	assert.Equal(t, "F401", diags[0].Code)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
	assert.Equal(t, "'os' imported but unused", diags[0].Message)
	require.NotNil(t, diags[0].Event)
	assert.Equal(t, "os", diags[0].Event.Name)

	assert.Equal(t, Position{File: "test.py", Line: 2, Col: 7}, diags[1].Pos)
	assert.Equal(t, "undefined-name", diags[1].Analyzer)
	assert.Equal(t, SeverityError, diags[1].Severity)
	assert.Equal(t, "test.py:2:7: undefined name 'undefined' (undefined-name)", diags[1].String())
	assert.Equal(t, "test.py:2: undefined name 'undefined'", diags[1].Plain())
}

func TestLintFileClean(t *testing.T) {
	assert.Empty(t, lintSource(t, "import os\nprint(os.sep)\n"))
}

func TestLintSortsByPosition(t *testing.T) {
	src := `import a
import b

def f():
    return c
`
	diags := lintSource(t, src)
	require.Len(t, diags, 3)
	assert.Equal(t, []int{1, 2, 5}, []int{diags[0].Pos.Line, diags[1].Pos.Line, diags[2].Pos.Line})
}

func TestLintSelectedAnalyzers(t *testing.T) {
	diags := lintSource(t, "import os\nprint(undefined)\n", AnalyzerUndefinedName)
	assert.Equal(t, []string{"undefined-name"}, analyzerNames(diags))
}

func TestLintNotes(t *testing.T) {
	diags := lintSource(t, "import os\nimport os\nos.sep\n")
	require.Len(t, diags, 1)
	assert.Equal(t, "redefined-while-unused", diags[0].Analyzer)
	assert.Equal(t, []string{"'os' was imported on line 1"}, diags[0].Notes)
	assert.Contains(t, diags[0].String(), "\n  = note: 'os' was imported on line 1")
}

func TestLintBuiltins(t *testing.T) {
	l := &Linter{Analyzers: DefaultAnalyzers(), Builtins: []string{"_", "request"}}
	diags, err := l.LintFile([]byte("print(_('hi'), request)\n"), "test.py")
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestLintSyntaxError(t *testing.T) {
	l := &Linter{Analyzers: DefaultAnalyzers()}
	_, err := l.LintFile([]byte("def f(:\n"), "bad.py")
	require.Error(t, err)
	var serr *parser.SyntaxError
	assert.True(t, errors.As(err, &serr))
	assert.Equal(t, "bad.py", serr.Filename)
}

func TestLintAnalyzerError(t *testing.T) {
	broken := &Analyzer{
		Name: "broken",
		Run:  func(*Pass) error { return errors.New("boom") },
	}
	l := &Linter{Analyzers: []*Analyzer{broken}}
	_, err := l.LintFile([]byte("x = 1\n"), "test.py")
	require.Error(t, err)
	assert.Equal(t, "test.py: analyzer broken: boom", err.Error())
}

func TestPassReportf(t *testing.T) {
	custom := &Analyzer{
		Name:     "no-assign-x",
		Severity: SeverityInfo,
		Run: func(pass *Pass) error {
			for _, b := range pass.Semantics.Module().Bindings() {
				if b.Name == "x" {
					pass.Reportf(b.Pos, "assignment to %s", b.Name)
				}
			}
			return nil
		},
	}
	diags := lintSource(t, "x = 1\n", custom)
	require.Len(t, diags, 1)
	assert.Equal(t, "test.py:1:1: assignment to x (no-assign-x)", diags[0].String())
	assert.Equal(t, SeverityInfo, diags[0].Severity)
}

func TestSuppression(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"blanket noqa", "import os  # noqa\n", nil},
		{"upper case", "import os  # NOQA\n", nil},
		{"matching code", "import os  # noqa: F401\n", nil},
		{"code prefix", "import os  # noqa:F4\n", nil},
		{"other code", "import os  # noqa: F821\n", []string{"unused-import"}},
		{"code list", "import os  # noqa: E501, F401\n", nil},
		{"nolint", "import os  # nolint\n", nil},
		{"nolint by name", "import os  # nolint:unused-import\n", nil},
		{"nolint other name", "import os  # nolint:undefined-name\n", []string{"unused-import"}},
		{"after other comment", "import os  # type: ignore # noqa\n", nil},
		{"other line", "# noqa\nimport os\n", []string{"unused-import"}},
		{"not a directive", "import os  # noqasomething\n", []string{"unused-import"}},
		{"only one of two", "import os; foo  # noqa: F821\n", []string{"unused-import"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, analyzerNames(lintSource(t, tc.src)))
		})
	}
}

func TestParseDirective(t *testing.T) {
	tests := []struct {
		comment string
		want    *Directive
	}{
		{"# noqa", &Directive{Keyword: "noqa"}},
		{"#noqa:F401", &Directive{Keyword: "noqa", Checks: []string{"F401"}}},
		{"# noqa: F401,F811", &Directive{Keyword: "noqa", Checks: []string{"F401", "F811"}}},
		{"# noqa : F401 , F811 trailing words", &Directive{Keyword: "noqa", Checks: []string{"F401", "F811"}}},
		{"# nolint:unused-import", &Directive{Keyword: "nolint", Checks: []string{"unused-import"}}},
		{"# noqa because reasons", &Directive{Keyword: "noqa"}},
		{"# pragma: no cover # NoQa", &Directive{Keyword: "noqa"}},
		{"# just a comment", nil},
		{"# noqalike", nil},
		{"# see noqa", nil},
	}
	for _, tc := range tests {
		t.Run(tc.comment, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseDirective(tc.comment))
		})
	}
}

func TestDirectiveParserYieldsDirective(t *testing.T) {
	for _, src := range []string{" noqa", " noqa: F401", " NOLINT:unused-import"} {
		root, _ := directiveParser(parsec.NewScanner([]byte(src)))
		d, ok := root.(*Directive)
		require.True(t, ok, "%q parsed to %T", src, root)
		assert.NotEmpty(t, d.Keyword)
	}
	root, _ := directiveParser(parsec.NewScanner([]byte(" type: ignore")))
	assert.Nil(t, root)
}

func TestSelect(t *testing.T) {
	all, err := Select(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalyzers(), all)

	got, err := Select([]string{"F811", "unused-import", "f401"})
	require.NoError(t, err)
	assert.Equal(t, []*Analyzer{AnalyzerUnusedImport, AnalyzerRedefinedWhileUnused, AnalyzerRedefinedFunction}, got)

	_, err = Select([]string{"no-such-check"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown check "no-such-check"`)
}

func TestAnalyzerNames(t *testing.T) {
	names := AnalyzerNames()
	assert.Len(t, names, 8)
	assert.True(t, strings.Compare(names[0], names[1]) < 0)
	assert.Contains(t, names, "late-future-import")
	for _, a := range DefaultAnalyzers() {
		assert.NotEmpty(t, a.Code, a.Name)
		assert.NotEmpty(t, a.Summary(), a.Name)
	}
}

func TestAnalyzerDoc(t *testing.T) {
	doc := AnalyzerDoc(AnalyzerUndefinedName, 40)
	lines := strings.Split(strings.TrimRight(doc, "\n"), "\n")
	assert.Equal(t, "undefined-name (F821, error)", lines[0])
	assert.Equal(t, "", lines[1])
	for _, line := range lines[2:] {
		assert.LessOrEqual(t, len(line), 40, line)
		if line != "" {
			assert.True(t, strings.HasPrefix(line, "  "), line)
		}
	}
}

func TestFormat(t *testing.T) {
	diags := lintSource(t, "import os\n")

	var text bytes.Buffer
	FormatText(&text, diags)
	assert.Equal(t, "test.py:1:1: 'os' imported but unused (unused-import)\n", text.String())

	var plain bytes.Buffer
	FormatPlain(&plain, diags)
	assert.Equal(t, "test.py:1: 'os' imported but unused\n", plain.String())

	var js bytes.Buffer
	require.NoError(t, FormatJSON(&js, diags))
	var decoded []Diagnostic
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, SeverityWarning, decoded[0].Severity)
	assert.Equal(t, "F401", decoded[0].Code)
	assert.Contains(t, js.String(), `"severity": "warning"`)

	js.Reset()
	require.NoError(t, FormatJSON(&js, nil))
	assert.Equal(t, "[]\n", js.String())
}

func TestSeverityJSON(t *testing.T) {
	b, err := json.Marshal(severityUnset)
	require.NoError(t, err)
	assert.Equal(t, `"warning"`, string(b))

	var s Severity
	require.NoError(t, json.Unmarshal([]byte(`"info"`), &s))
	assert.Equal(t, SeverityInfo, s)
	assert.Error(t, json.Unmarshal([]byte(`"fatal"`), &s))
}

func TestFormatAnnotated(t *testing.T) {
	src := "from ossify import os\nprint(nope)\n"
	diags := lintSource(t, src)
	require.Len(t, diags, 2)

	r := &diagnostic.Renderer{
		Color:        diagnostic.ColorNever,
		SourceReader: func(string) ([]byte, error) { return []byte(src), nil },
	}
	var buf bytes.Buffer
	require.NoError(t, FormatAnnotated(&buf, r, diags))
	out := buf.String()
	assert.Contains(t, out, "warning[F401]: 'os' imported but unused")
	assert.Contains(t, out, "   |  "+strings.Repeat(" ", 19)+"^^\n")
	assert.Contains(t, out, "error[F821]: undefined name 'nope'")
	assert.Contains(t, out, "found 2 problems (1 error, 1 warning)")
}
