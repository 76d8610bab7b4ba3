// Copyright © 2024 The ELPS authors

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/flakes/lint"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

// workspace moves the test into an empty directory with no config files
// in reach and returns it.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func runCLI(t *testing.T, stdin string, opts []Option, args ...string) cliResult {
	t.Helper()
	root := NewRootCommand(opts...)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	code := run(root, args, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestLintClean(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "ok.py"), "import os\nprint(os.sep)\n")

	res := runCLI(t, "", nil, "lint", "--no-cache", "ok.py")
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Empty(t, res.stdout)
}

func TestLintPlain(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "pkg", "a.py"), "import os\n")
	writeFile(t, filepath.Join(dir, "pkg", "b.py"), "print(missing)\n")
	writeFile(t, filepath.Join(dir, "build", "gen.py"), "import sys\n")

	res := runCLI(t, "", nil, "lint", "--no-cache", "--plain", "--exclude", "build", "./...")
	assert.Equal(t, 1, res.code, res.stderr)
	assert.Equal(t,
		"pkg/a.py:1: 'os' imported but unused\npkg/b.py:1: undefined name 'missing'\n",
		res.stdout)
}

func TestLintAnnotated(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "a.py"), "import os\n")

	res := runCLI(t, "", nil, "--color", "never", "lint", "--no-cache", "a.py")
	assert.Equal(t, 1, res.code)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "warning[F401]: 'os' imported but unused")
	assert.Contains(t, res.stderr, "--> a.py:1:1")
	assert.Contains(t, res.stderr, "found 1 problem")
}

func TestLintJSON(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "a.py"), "import os\nimport os\n")

	res := runCLI(t, "", nil, "lint", "--no-cache", "--json", "a.py")
	assert.Equal(t, 1, res.code, res.stderr)

	var diags []lint.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &diags))
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	assert.ElementsMatch(t, []string{"F811", "F401"}, codes)
}

func TestLintJSONAndPlainConflict(t *testing.T) {
	workspace(t)
	res := runCLI(t, "", nil, "lint", "--json", "--plain", "-")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "mutually exclusive")
}

func TestLintStdin(t *testing.T) {
	workspace(t)
	for _, args := range [][]string{
		{"lint", "--no-cache", "--plain"},
		{"lint", "--no-cache", "--plain", "-"},
	} {
		res := runCLI(t, "print(x)\n", nil, args...)
		assert.Equal(t, 1, res.code, res.stderr)
		assert.Equal(t, "<stdin>:1: undefined name 'x'\n", res.stdout)
	}
}

func TestLintSyntaxError(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "bad.py"), "def f(:\n")
	writeFile(t, filepath.Join(dir, "good.py"), "import os\n")

	res := runCLI(t, "", nil, "lint", "--no-cache", "--plain", "bad.py", "good.py")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "bad.py:1:")
	assert.Contains(t, res.stderr, "syntax error")
	assert.Contains(t, res.stdout, "good.py:1: 'os' imported but unused")
}

func TestLintMissingPath(t *testing.T) {
	workspace(t)
	res := runCLI(t, "", nil, "lint", "--no-cache", "nope.py")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "nope.py")
}

func TestLintChecks(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "a.py"), "import os\nprint(missing)\n")

	res := runCLI(t, "", nil, "lint", "--no-cache", "--plain", "--checks", "F821", "a.py")
	assert.Equal(t, 1, res.code)
	assert.Equal(t, "a.py:2: undefined name 'missing'\n", res.stdout)

	res = runCLI(t, "", nil, "lint", "--no-cache", "--checks", "F999", "a.py")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, `unknown check "F999"`)
}

func TestLintBuiltins(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "a.py"), "print(_('hello'), request)\n")

	res := runCLI(t, "", nil, "lint", "--no-cache", "--builtins", "_,request", "a.py")
	assert.Equal(t, 0, res.code, res.stdout+res.stderr)

	res = runCLI(t, "", []Option{WithBuiltins("_", "request")}, "lint", "--no-cache", "a.py")
	assert.Equal(t, 0, res.code, res.stdout+res.stderr)
}

func TestLintPyprojectSettings(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "pyproject.toml"), `
[project]
name = "demo"

[tool.flakes]
builtins = ["_"]
exclude = ["vendor"]
`)
	writeFile(t, filepath.Join(dir, "a.py"), "print(_('hi'))\n")
	writeFile(t, filepath.Join(dir, "vendor", "v.py"), "import os\n")

	res := runCLI(t, "", nil, "lint", "--no-cache", "./...")
	assert.Equal(t, 0, res.code, res.stdout+res.stderr)
}

func TestLintEnvironmentSettings(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "a.py"), "import os\nprint(missing)\n")
	t.Setenv("FLAKES_CHECKS", "F401")

	res := runCLI(t, "", nil, "lint", "--no-cache", "--plain", "a.py")
	assert.Equal(t, 1, res.code)
	assert.Equal(t, "a.py:1: 'os' imported but unused\n", res.stdout)
}

func TestLintCacheAndMetrics(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "a.py"), "import os\n")
	cacheDir := filepath.Join(dir, ".cache")
	metricsFile := filepath.Join(dir, "lint.prom")

	for i := 0; i < 2; i++ {
		res := runCLI(t, "", nil, "lint", "--plain", "--cache", cacheDir, "--metrics-file", metricsFile, "a.py")
		assert.Equal(t, 1, res.code, res.stderr)
		assert.Equal(t, "a.py:1: 'os' imported but unused\n", res.stdout)
	}
	assert.FileExists(t, filepath.Join(cacheDir, "results.db"))

	data, err := os.ReadFile(metricsFile) //nolint:gosec // test output
	require.NoError(t, err)
	assert.Contains(t, string(data), `flakes_cache_lookups_total{outcome="hit"} 1`)
	assert.Contains(t, string(data), `flakes_files_checked_total{result="findings"} 1`)
}

func TestLintTraceOpenCensus(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "a.py"), "x = 1\n")

	res := runCLI(t, "", nil, "--log-level", "debug", "lint", "--no-cache", "--trace", "opencensus", "a.py")
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "span finished")
}

func TestLintInvalidTrace(t *testing.T) {
	workspace(t)
	res := runCLI(t, "x = 1\n", nil, "lint", "--trace", "zipkin")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "invalid trace mode")
}

func TestLintList(t *testing.T) {
	workspace(t)
	res := runCLI(t, "", nil, "lint", "--list")
	assert.Equal(t, 0, res.code)
	for _, a := range lint.DefaultAnalyzers() {
		assert.Contains(t, res.stdout, a.Name)
		assert.Contains(t, res.stdout, a.Code)
	}
}

func TestLintWithAnalyzers(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "a.py"), "x = 1\n")
	custom := &lint.Analyzer{
		Name:     "always",
		Code:     "X100",
		Doc:      "Report every file.",
		Severity: lint.SeverityWarning,
		Run: func(pass *lint.Pass) error {
			pass.Report(lint.Diagnostic{Pos: lint.Position{File: pass.Filename, Line: 1}, Message: "checked"})
			return nil
		},
	}

	res := runCLI(t, "", []Option{WithAnalyzers(custom)}, "lint", "--no-cache", "--plain", "a.py")
	assert.Equal(t, 1, res.code, res.stderr)
	assert.Equal(t, "a.py:1: checked\n", res.stdout)
}

func TestGlobalFlagErrors(t *testing.T) {
	workspace(t)
	for _, args := range [][]string{
		{"--color", "sometimes", "version"},
		{"--log-level", "loud", "version"},
		{"lint", "--no-such-flag"},
		{"frobnicate"},
	} {
		res := runCLI(t, "", nil, args...)
		assert.Equal(t, 2, res.code, strings.Join(args, " "))
		assert.Contains(t, res.stderr, "flakes:")
	}
}

func TestMissingConfigFile(t *testing.T) {
	workspace(t)
	res := runCLI(t, "", nil, "--config", "missing.yaml", "version")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "config")
}

func TestDoc(t *testing.T) {
	workspace(t)
	res := runCLI(t, "", nil, "doc", "F401")
	assert.Equal(t, 0, res.code)
	assert.True(t, strings.HasPrefix(res.stdout, "unused-import (F401, warning)"), res.stdout)

	res = runCLI(t, "", nil, "doc")
	assert.Equal(t, 0, res.code)
	for _, name := range lint.AnalyzerNames() {
		assert.Contains(t, res.stdout, name)
	}

	res = runCLI(t, "", nil, "doc", "--guide")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "# noqa: F401")

	res = runCLI(t, "", nil, "doc", "nope")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, `unknown check "nope"`)
}

func TestVersion(t *testing.T) {
	workspace(t)
	res := runCLI(t, "", nil, "version")
	assert.Equal(t, 0, res.code)
	assert.True(t, strings.HasPrefix(res.stdout, "flakes "), res.stdout)
}

func TestExisting(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "a.py"), "")
	assert.Equal(t, []string{filepath.Join(dir, "a.py")},
		existing([]string{filepath.Join(dir, "a.py"), filepath.Join(dir, "gone.py")}))
}
