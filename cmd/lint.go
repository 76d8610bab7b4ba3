// Copyright © 2024 The ELPS authors

package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/luthersystems/flakes/cache"
	"github.com/luthersystems/flakes/config"
	"github.com/luthersystems/flakes/lint"
	"github.com/luthersystems/flakes/metrics"
	"github.com/luthersystems/flakes/parser"
	"github.com/luthersystems/flakes/runner"
)

// stdinName is the filename reported for source read from stdin.
const stdinName = "<stdin>"

// checkerFlags maps setting keys to the flags shared by the commands that
// check files.
var checkerFlags = map[string]string{
	config.KeyChecks:   "checks",
	config.KeyBuiltins: "builtins",
	config.KeyExclude:  "exclude",
}

func addCheckerFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("checks", nil,
		"Comma-separated checks to run, by name or code (default: all).")
	cmd.Flags().StringSlice("builtins", nil,
		"Extra names to treat as always defined.")
	cmd.Flags().StringArray("exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
}

type lintOptions struct {
	json        bool
	plain       bool
	list        bool
	jobs        int
	metricsFile string
	traceMode   string
	otlpAddr    string
}

func lintCommand(g *globals, cfg *cmdConfig) *cobra.Command {
	var o lintOptions
	cmd := &cobra.Command{
		Use:   "lint [flags] [paths...]",
		Short: "Check Python source files for binding mistakes",
		Long: `Check Python source files for binding mistakes.

Directories are searched for .py files; "./..." checks the working directory
recursively. With no paths, or with "-", source is read from stdin.

Findings are printed as annotated source snippets on stderr. --plain prints
the classic "file:line: message" lines on stdout and --json prints a JSON
array on stdout.

Exit codes:
  0  No problems found
  1  One or more problems were reported
  2  Bad invocation, or a file could not be read or parsed

To suppress findings on a line, add a comment:
  import os  # noqa
  import os  # noqa: F401

Results are cached by file content and settings in a SQLite database under
the user cache directory; --no-cache disables the cache.

Available checks (use --checks to select specific ones):
` + checkList() + `
Examples:
  flakes lint app.py                       # Check a single file
  flakes lint ./...                        # Check a whole tree
  flakes lint --plain src                  # file:line: message output
  flakes lint --checks=F401,F811 src       # Run only specific checks
  flakes lint --exclude='build' ./...      # Skip a directory
  flakes lint --builtins=_ src             # Treat _ as defined
  cat app.py | flakes lint                 # Check stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.list {
				_, err := io.WriteString(cmd.OutOrStdout(), checkList())
				return err
			}
			if o.json && o.plain {
				return usageError(errors.New("--json and --plain are mutually exclusive"))
			}
			return runLint(cmd, g, cfg, &o, args)
		},
	}

	addCheckerFlags(cmd)
	cmd.Flags().BoolVar(&o.json, "json", false, "Output diagnostics as JSON.")
	cmd.Flags().BoolVar(&o.plain, "plain", false, "Output diagnostics as file:line: message lines.")
	cmd.Flags().BoolVar(&o.list, "list", false, "List available checks and exit.")
	cmd.Flags().IntVarP(&o.jobs, "jobs", "j", 0, "Files to check at once (default: number of CPUs).")
	cmd.Flags().String("cache", "", "Directory holding the result cache.")
	cmd.Flags().Bool("no-cache", false, "Do not read or write the result cache.")
	cmd.Flags().StringVar(&o.metricsFile, "metrics-file", "",
		"Write Prometheus metrics for the run to this file.")
	cmd.Flags().StringVar(&o.traceMode, "trace", "none",
		`Record spans for parsing and analysis: "none", "otel" or "opencensus".`)
	cmd.Flags().StringVar(&o.otlpAddr, "otlp-endpoint", "localhost:4317",
		"OTLP/gRPC collector address for --trace=otel.")
	return cmd
}

func checkList() string {
	var out string
	for _, a := range lint.DefaultAnalyzers() {
		out += fmt.Sprintf("  %s  %-28s %s\n", a.Code, a.Name, a.Summary())
	}
	return out
}

func (o *lintOptions) format() outputFormat {
	switch {
	case o.json:
		return formatJSON
	case o.plain:
		return formatPlain
	default:
		return formatAnnotated
	}
}

func runLint(cmd *cobra.Command, g *globals, cfg *cmdConfig, o *lintOptions, args []string) error {
	ctx := cmd.Context()
	flags := map[string]string{config.KeyCacheDir: "cache", config.KeyNoCache: "no-cache"}
	for k, v := range checkerFlags {
		flags[k] = v
	}
	settings, err := g.settings(cmd, flags)
	if err != nil {
		return err
	}
	l, err := cfg.linter(settings.Checks, settings.Builtins)
	if err != nil {
		return err
	}
	l.Logger = g.logger
	excludes, err := runner.NewExcludes(settings.Exclude)
	if err != nil {
		return usageError(err)
	}

	annotator, closeTrace, err := g.annotator(ctx, o.traceMode, o.otlpAddr)
	if err != nil {
		return err
	}
	defer closeTrace()
	l.Annotator = annotator

	r := &runner.Runner{Linter: l, Excludes: excludes, Jobs: o.jobs, Logger: g.logger}
	if !settings.NoCache {
		c, err := openCache(settings.CacheDir)
		if err != nil {
			g.logger.Warn("result cache disabled", "error", err)
		} else {
			defer c.Close() //nolint:errcheck // read-mostly cache
			r.Cache = c
		}
	}
	if o.metricsFile != "" {
		r.Metrics = metrics.New()
		defer func() {
			if err := r.Metrics.WriteTextfile(o.metricsFile); err != nil {
				g.logger.Error("failed to write metrics", "path", o.metricsFile, "error", err)
			}
		}()
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	var res *runner.Result
	if len(args) == 0 || len(args) == 1 && args[0] == "-" {
		res, err = lintStdin(cmd, r)
	} else {
		res, err = r.Run(ctx, args)
	}
	if err != nil {
		return usageError(err)
	}

	for _, fe := range res.Errors {
		reportFileError(stderr, fe)
	}
	if err := g.writeDiagnostics(stdout, stderr, o.format(), res.Diagnostics); err != nil {
		return usageError(err)
	}
	g.logger.Debug("lint finished", "files", res.Files, "diagnostics", len(res.Diagnostics), "errors", len(res.Errors))
	if code := res.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func lintStdin(cmd *cobra.Command, r *runner.Runner) (*runner.Result, error) {
	src, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	res := &runner.Result{Files: 1}
	diags, err := r.CheckSource(cmd.Context(), src, stdinName)
	if err != nil {
		res.Errors = append(res.Errors, &runner.FileError{Path: stdinName, Err: err})
		return res, nil
	}
	res.Diagnostics = diags
	return res, nil
}

// reportFileError prints why a file could not be checked. Source that does
// not parse is reported as file:line:col: syntax error.
func reportFileError(w io.Writer, fe *runner.FileError) {
	var syntax *parser.SyntaxError
	var unsupported *parser.UnsupportedError
	switch {
	case errors.As(fe.Err, &syntax), errors.As(fe.Err, &unsupported):
		fmt.Fprintln(w, fe.Err) //nolint:errcheck // best-effort error display
	default:
		fmt.Fprintf(w, "flakes: %v\n", fe) //nolint:errcheck // best-effort error display
	}
}

func openCache(dir string) (*cache.Cache, error) {
	path := filepath.Join(dir, "results.db")
	if dir == "" {
		var err error
		if path, err = cache.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return cache.Open(path)
}
