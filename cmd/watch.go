// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luthersystems/flakes/metrics"
	"github.com/luthersystems/flakes/runner"
	"github.com/luthersystems/flakes/watch"
)

func watchCommand(g *globals, cfg *cmdConfig) *cobra.Command {
	var (
		metricsAddr string
		plain       bool
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [flags] [dirs...]",
		Short: "Re-check Python files whenever they change",
		Long: `Check every Python file below the given directories (default: the working
directory), then keep watching them and re-check files as they are written.

With --metrics-addr, Prometheus metrics for checked files, findings and
file system events are served at http://ADDR/metrics.

Examples:
  flakes watch                          Watch the working directory
  flakes watch --plain src tests        Watch two trees, plain output
  flakes watch --metrics-addr :9464 .   Also serve metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			settings, err := g.settings(cmd, checkerFlags)
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			if metricsAddr != "" {
				srv := metrics.NewServer(metricsAddr, m)
				if err := srv.Start(ctx); err != nil {
					return err
				}
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Stop(sctx)
				}()
			}

			format := formatAnnotated
			if plain {
				format = formatPlain
			}
			r := &runner.Runner{Linter: l, Excludes: excludes, Metrics: m, Logger: g.logger}
			report := func(res *runner.Result) {
				stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
				for _, fe := range res.Errors {
					reportFileError(stderr, fe)
				}
				if err := g.writeDiagnostics(stdout, stderr, format, res.Diagnostics); err != nil {
					g.logger.Error("failed to write diagnostics", "error", err)
				}
				printWatchStatus(stderr, res)
			}

			res, err := r.Run(ctx, args)
			if err != nil {
				return usageError(err)
			}
			report(res)

			w, err := watch.New(watch.Options{
				Debounce: debounce,
				Excludes: excludes,
				Metrics:  m,
				Logger:   g.logger,
				OnChange: func(ctx context.Context, paths []string) {
					g.logger.Info("detected changes", "count", len(paths))
					res, err := r.RunFiles(ctx, existing(paths))
					if err != nil {
						g.logger.Error("re-check failed", "error", err)
						return
					}
					report(res)
				},
			})
			if err != nil {
				return err
			}
			if err := w.Add(args...); err != nil {
				_ = w.Close()
				return usageError(err)
			}
			g.logger.Info("watching", "dirs", len(w.WatchList()))
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	addCheckerFlags(cmd)
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address (for example :9464).")
	cmd.Flags().BoolVar(&plain, "plain", false, "Output diagnostics as file:line: message lines.")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce,
		"Quiet period before changed files are re-checked.")
	return cmd
}

// existing drops paths that were removed since the change was seen.
func existing(paths []string) []string {
	out := paths[:0:0]
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func printWatchStatus(w io.Writer, res *runner.Result) {
	fmt.Fprintf(w, "[%s] checked %d files: %d problems, %d errors\n", //nolint:errcheck // best-effort status line
		time.Now().Format("15:04:05"), res.Files, len(res.Diagnostics), len(res.Errors))
}
