// Copyright © 2024 The ELPS authors

// Package runner checks sets of files: it expands arguments, applies
// excludes, consults the result cache and records metrics around the
// linter.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/luthersystems/flakes/cache"
	"github.com/luthersystems/flakes/lint"
	"github.com/luthersystems/flakes/metrics"
	"github.com/luthersystems/flakes/trace"
)

// Runner checks files with a Linter. Only Linter is required.
type Runner struct {
	Linter *lint.Linter

	// Cache, when set, stores results keyed by content and settings.
	Cache *cache.Cache

	// Metrics, when set, records per-file results.
	Metrics *metrics.Metrics

	// Excludes filters expanded paths.
	Excludes *Excludes

	// Jobs bounds the number of files checked at once. Zero means
	// GOMAXPROCS.
	Jobs int

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// FileError is a file that could not be checked.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if strings.HasPrefix(e.Err.Error(), e.Path+":") {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Result is the outcome of a run.
type Result struct {
	Files       int
	Diagnostics []lint.Diagnostic
	Errors      []*FileError
}

// ExitCode maps the result to the process exit status: 2 when a file
// could not be checked, 1 when there are findings, else 0.
func (r *Result) ExitCode() int {
	switch {
	case len(r.Errors) > 0:
		return 2
	case len(r.Diagnostics) > 0:
		return 1
	default:
		return 0
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run expands args and checks every resulting file. Per-file failures are
// collected in the result; the error is for failures that stop the run,
// such as a missing argument or a cancelled context.
func (r *Runner) Run(ctx context.Context, args []string) (*Result, error) {
	files, err := ExpandArgs(args, r.Excludes)
	if err != nil {
		return nil, err
	}
	return r.RunFiles(ctx, files)
}

// RunFiles checks the given files without expansion.
func (r *Runner) RunFiles(ctx context.Context, files []string) (*Result, error) {
	ctx, end := trace.Start(ctx, r.Linter.Annotator, "run", trace.Int("files", len(files)))
	defer end()

	type outcome struct {
		diags []lint.Diagnostic
		err   error
	}
	outcomes := make([]outcome, len(files))

	jobs := r.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	sem := make(chan struct{}, jobs)
	var wg sync.WaitGroup
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			diags, err := r.CheckFile(ctx, path)
			outcomes[i] = outcome{diags: diags, err: err}
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Files: len(files)}
	for i, o := range outcomes {
		if o.err != nil {
			res.Errors = append(res.Errors, &FileError{Path: files[i], Err: o.err})
			continue
		}
		res.Diagnostics = append(res.Diagnostics, o.diags...)
	}
	lint.SortDiagnostics(res.Diagnostics)
	r.logger().DebugContext(ctx, "run complete",
		"files", res.Files, "diagnostics", len(res.Diagnostics), "errors", len(res.Errors))
	return res, nil
}

// CheckFile reads and checks one file.
func (r *Runner) CheckFile(ctx context.Context, path string) ([]lint.Diagnostic, error) {
	src, err := os.ReadFile(path) //nolint:gosec // CLI tool reads user-specified files
	if err != nil {
		r.Metrics.ObserveFile(metrics.ResultError, 0)
		return nil, err
	}
	return r.CheckSource(ctx, src, path)
}

// CheckSource checks src as the file filename, using the cache when one is
// configured.
func (r *Runner) CheckSource(ctx context.Context, src []byte, filename string) ([]lint.Diagnostic, error) {
	start := time.Now()
	key := ""
	if r.Cache != nil {
		key = cache.Key(filename, src, r.Fingerprint())
		diags, ok, err := r.Cache.Get(ctx, key)
		if err != nil {
			r.logger().WarnContext(ctx, "cache lookup failed", "file", filename, "error", err)
		}
		r.Metrics.ObserveCache(ok)
		if ok {
			r.observe(diags, nil, time.Since(start))
			return diags, nil
		}
	}

	diags, err := r.Linter.LintFileContext(ctx, src, filename)
	r.observe(diags, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	if r.Cache != nil {
		if err := r.Cache.Put(ctx, key, filename, diags); err != nil {
			r.logger().WarnContext(ctx, "cache store failed", "file", filename, "error", err)
		}
	}
	return diags, nil
}

func (r *Runner) observe(diags []lint.Diagnostic, err error, elapsed time.Duration) {
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		r.Metrics.ObserveFile(metrics.ResultError, elapsed)
	case len(diags) > 0:
		r.Metrics.ObserveFile(metrics.ResultFindings, elapsed)
	default:
		r.Metrics.ObserveFile(metrics.ResultClean, elapsed)
	}
	for _, d := range diags {
		r.Metrics.ObserveDiagnostic(d.Analyzer)
	}
}

// Fingerprint summarizes the settings that change results: the selected
// analyzers and the extra builtins.
func (r *Runner) Fingerprint() string {
	var b strings.Builder
	b.WriteString("checks=")
	for i, a := range r.Linter.Analyzers {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Name)
	}
	b.WriteString(";builtins=")
	b.WriteString(strings.Join(r.Linter.Builtins, ","))
	return b.String()
}
