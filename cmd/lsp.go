// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luthersystems/flakes/lsp"
	"github.com/luthersystems/flakes/runner"
)

func lspCommand(g *globals, cfg *cmdConfig) *cobra.Command {
	var (
		stdio bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the flakes Language Server Protocol server",
		Long: `Start an LSP server for Python source files.

The language server publishes diagnostics as documents change and provides
hover, go-to-definition, find references, completion, document and
workspace symbols, rename, and quick fixes for suppressing a finding or
removing an unused import.

Settings are resolved once at startup from the working directory, the same
way "flakes lint" resolves them.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Examples:
  flakes lsp                         Start with stdio transport
  flakes lsp --port 7998             Start with TCP on port 7998

Editor configuration (VS Code):
  Install a generic LSP client extension and configure it to run
  "flakes lsp --stdio" for .py files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := g.settings(cmd, checkerFlags)
			if err != nil {
				return err
			}
			l, err := cfg.linter(settings.Checks, settings.Builtins)
			if err != nil {
				return err
			}
			excludes, err := runner.NewExcludes(settings.Exclude)
			if err != nil {
				return usageError(err)
			}

			srv := lsp.New(
				lsp.WithLinter(l),
				lsp.WithExcludes(excludes),
				lsp.WithLogger(g.logger),
			)

			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				g.logger.Info("flakes LSP server listening", "addr", addr)
				if err := srv.RunTCP(addr); err != nil {
					return fmt.Errorf("lsp server: %w", err)
				}
				return nil
			}
			if err := srv.RunStdio(); err != nil {
				return fmt.Errorf("lsp server: %w", err)
			}
			return nil
		},
	}

	addCheckerFlags(cmd)
	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior)")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for LSP server (use instead of --stdio)")

	return cmd
}
