// Copyright © 2024 The ELPS authors

package runner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/flakes/cache"
	"github.com/luthersystems/flakes/lint"
	"github.com/luthersystems/flakes/metrics"
	"github.com/luthersystems/flakes/parser"
)

func newRunner() *Runner {
	return &Runner{Linter: &lint.Linter{Analyzers: lint.DefaultAnalyzers()}, Jobs: 2}
}

func TestRun(t *testing.T) {
	root := makeTree(t, map[string]string{
		"a.py":     "import os\n",
		"b.py":     "import sys\nprint(sys.argv)\n",
		"c/d.py":   "print(missing)\n",
		"c/bad.py": "def f(:\n",
	})
	r := newRunner()
	r.Metrics = metrics.New()

	res, err := r.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Files)
	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, "unused-import", res.Diagnostics[0].Analyzer)
	assert.Equal(t, filepath.Join(root, "a.py"), res.Diagnostics[0].Pos.File)
	assert.Equal(t, "undefined-name", res.Diagnostics[1].Analyzer)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, filepath.Join(root, "c", "bad.py"), res.Errors[0].Path)
	var serr *parser.SyntaxError
	assert.True(t, errors.As(res.Errors[0], &serr))
	assert.Equal(t, 2, res.ExitCode())

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.FilesChecked.WithLabelValues(metrics.ResultClean)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Metrics.FilesChecked.WithLabelValues(metrics.ResultFindings)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.FilesChecked.WithLabelValues(metrics.ResultError)))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, (&Result{}).ExitCode())
	assert.Equal(t, 1, (&Result{Diagnostics: []lint.Diagnostic{{}}}).ExitCode())
	assert.Equal(t, 2, (&Result{Diagnostics: []lint.Diagnostic{{}}, Errors: []*FileError{{}}}).ExitCode())
}

func TestFileError(t *testing.T) {
	e := &FileError{Path: "a.py", Err: errors.New("boom")}
	assert.Equal(t, "a.py: boom", e.Error())
	e = &FileError{Path: "a.py", Err: &parser.SyntaxError{Filename: "a.py", Msg: "invalid syntax"}}
	assert.Equal(t, e.Err.Error(), e.Error())
}

func TestCheckSourceCache(t *testing.T) {
	ctx := context.Background()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	r := newRunner()
	r.Cache = c
	r.Metrics = metrics.New()

	src := []byte("import os\n")
	first, err := r.CheckSource(ctx, src, "<stdin>")
	require.NoError(t, err)
	second, err := r.CheckSource(ctx, src, "<stdin>")
	require.NoError(t, err)
	assert.Equal(t, first[0].Message, second[0].Message)
	assert.Equal(t, first[0].Pos, second[0].Pos)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.CacheLookups.WithLabelValues("miss")))

	// A different selection of checks must not reuse the entry.
	r.Linter = &lint.Linter{Analyzers: []*lint.Analyzer{lint.AnalyzerUndefinedName}}
	third, err := r.CheckSource(ctx, src, "<stdin>")
	require.NoError(t, err)
	assert.Empty(t, third)
}

func TestFingerprint(t *testing.T) {
	r := &Runner{Linter: &lint.Linter{
		Analyzers: []*lint.Analyzer{lint.AnalyzerUnusedImport, lint.AnalyzerUndefinedName},
		Builtins:  []string{"_"},
	}}
	assert.Equal(t, "checks=unused-import,undefined-name;builtins=_", r.Fingerprint())
}

func TestRunCancelled(t *testing.T) {
	root := makeTree(t, map[string]string{"a.py": "x = 1\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRunner().Run(ctx, []string{root})
	assert.ErrorIs(t, err, context.Canceled)
}
