// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"bytes"
	"strings"
	"testing"
)

// testRenderer returns a Renderer with colors disabled and a fake source reader.
func testRenderer(sources map[string]string) *Renderer {
	return &Renderer{
		Color: ColorNever,
		SourceReader: func(name string) ([]byte, error) {
			s, ok := sources[name]
			if !ok {
				return nil, &fakeErr{name}
			}
			return []byte(s), nil
		},
	}
}

type fakeErr struct{ name string }

func (e *fakeErr) Error() string { return "not found: " + e.name }

func TestRenderError(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.py": "print(undefined_thing)",
	})

	d := Diagnostic{
		Severity: SeverityError,
		Code:     "F821",
		Message:  "undefined name 'undefined_thing'",
		Spans: []Span{
			{File: "test.py", Line: 1, Col: 7, EndCol: 21, Label: "not bound in any enclosing scope"},
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	assertContains(t, got, "error[F821]: undefined name 'undefined_thing'")
	assertContains(t, got, "--> test.py:1:7")
	assertContains(t, got, "print(undefined_thing)")
	assertContains(t, got, "   |        ^^^^^^^^^^^^^^^ not bound")
	assertNotContains(t, got, "\033[")
}

func TestRenderWarning(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.py": "import os\nimport os",
	})

	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  "redefinition of unused 'os' from line 1",
		Spans: []Span{
			{File: "test.py", Line: 2, Col: 1, EndCol: 9},
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	assertContains(t, got, "warning: redefinition of unused 'os' from line 1")
	assertContains(t, got, "--> test.py:2:1")
	assertContains(t, got, " 2 |  import os")
}

func TestRenderSpanText(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.py": "from ossify import os, oslo",
	})

	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  "'os' imported but unused",
		Spans:    []Span{{File: "test.py", Line: 1, Col: 1, Text: "os"}},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}
	// The whole word "os" after "import", not the prefix of "ossify".
	assertContains(t, buf.String(), "   |  "+strings.Repeat(" ", 19)+"^^\n")
}

func TestFindIdent(t *testing.T) {
	tests := []struct {
		source, ident string
		from, want    int
	}{
		{"import os", "os", 0, 7},
		{"from ossify import os", "os", 0, 19},
		{"x = xy + x", "x", 1, 9},
		{"from .fu import *", ".fu", 0, 5},
		{"nothing here", "os", 0, -1},
		{"os", "os", 5, -1},
	}
	for _, tc := range tests {
		if got := findIdent(tc.source, tc.ident, tc.from); got != tc.want {
			t.Errorf("findIdent(%q, %q, %d) = %d, want %d", tc.source, tc.ident, tc.from, got, tc.want)
		}
	}
}

func TestRenderNoSource(t *testing.T) {
	r := testRenderer(nil)

	d := Diagnostic{
		Severity: SeverityError,
		Message:  "some error",
		Spans: []Span{
			{File: "<stdin>", Line: 5, Col: 3},
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	assertContains(t, got, "error: some error")
	assertContains(t, got, "--> <stdin>:5:3")
	assertContains(t, got, "|")
	assertNotContains(t, got, "^")
}

func TestRenderNotes(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.py": "def f(): pass\ndef f(): pass",
	})

	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  "redefinition of function 'f' from line 1",
		Spans: []Span{
			{File: "test.py", Line: 2, Col: 1, Text: "f"},
		},
		Notes: []string{
			"the first definition of 'f' is on line 1",
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	assertContains(t, buf.String(), "= note: the first definition of 'f' is on line 1")
}

func TestRenderAutoDetectEndCol(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.py": "value = compute_total(items)",
	})

	d := Diagnostic{
		Severity: SeverityError,
		Message:  "undefined name 'compute_total'",
		Spans: []Span{
			{File: "test.py", Line: 1, Col: 9}, // EndCol=0 → auto-detect
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	assertContains(t, got, strings.Repeat("^", len("compute_total"))+"\n")
	assertNotContains(t, got, strings.Repeat("^", len("compute_total")+1))
}

func TestRenderTabs(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.py": "if x:\n\tfoo()",
	})
	d := Diagnostic{
		Severity: SeverityError,
		Message:  "undefined name 'foo'",
		Spans:    []Span{{File: "test.py", Line: 2, Col: 2}},
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}
	assertContains(t, buf.String(), " 2 |      foo()")
	assertContains(t, buf.String(), "\n   |      ^^^\n")
}

func TestRenderMultipleDiagnostics(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.py": "import a\nimport b\nc",
	})

	diags := []Diagnostic{
		{
			Severity: SeverityWarning,
			Message:  "'a' imported but unused",
			Spans:    []Span{{File: "test.py", Line: 1, Col: 1, Text: "a"}},
		},
		{
			Severity: SeverityError,
			Message:  "undefined name 'c'",
			Spans:    []Span{{File: "test.py", Line: 3, Col: 1}},
		},
	}

	var buf bytes.Buffer
	if err := r.RenderAll(&buf, diags); err != nil {
		t.Fatal(err)
	}
	if err := r.RenderSummary(&buf, diags); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	parts := strings.Split(got, "\n\n")
	if len(parts) < 3 {
		t.Errorf("expected diagnostics separated by blank line, got:\n%s", got)
	}
	assertContains(t, got, "'a' imported but unused")
	assertContains(t, got, "undefined name 'c'")
	assertContains(t, got, "found 2 problems (1 error, 1 warning)")
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := testRenderer(nil).RenderSummary(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestRenderNoSpans(t *testing.T) {
	r := testRenderer(nil)

	d := Diagnostic{
		Severity: SeverityError,
		Message:  "test.py:1:7: syntax error: unexpected \":\"",
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	assertContains(t, got, "error: test.py:1:7: syntax error")
	assertNotContains(t, got, "-->")
}

func TestRenderColor(t *testing.T) {
	r := testRenderer(map[string]string{"test.py": "x"})
	r.Color = ColorAlways
	var buf bytes.Buffer
	if err := r.Render(&buf, Diagnostic{Message: "m", Spans: []Span{{File: "test.py", Line: 1, Col: 1}}}); err != nil {
		t.Fatal(err)
	}
	assertContains(t, buf.String(), "\033[1;31m")
}

func TestParseColorMode(t *testing.T) {
	for in, want := range map[string]ColorMode{"": ColorAuto, "auto": ColorAuto, "always": ColorAlways, "never": ColorNever} {
		got, err := ParseColorMode(in)
		if err != nil || got != want {
			t.Errorf("ParseColorMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseColorMode("sometimes"); err == nil {
		t.Error("expected error for invalid mode")
	}
}

func assertContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("output does not contain %q:\n%s", want, got)
	}
}

func assertNotContains(t *testing.T, got, unwanted string) {
	t.Helper()
	if strings.Contains(got, unwanted) {
		t.Errorf("output unexpectedly contains %q:\n%s", unwanted, got)
	}
}
