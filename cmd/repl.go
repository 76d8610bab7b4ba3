// Copyright © 2024 The ELPS authors

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/luthersystems/flakes/repl"
)

func replCommand(g *globals, cfg *cmdConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Check Python source interactively",
		Long: `Start an interactive session that checks Python source as it is entered.

Each input is checked together with everything entered before it, so names
defined earlier are known later. Only problems an input introduces are
printed. Unused imports are held back until :check, since a later input may
still use them. Nothing is executed.

Lines ending in ':' or with unclosed brackets start a block; an empty line
ends it. Line editing, history (~/.flakes_history) and name completion are
supported. Use Ctrl-D to exit.

Example session:
  >>> import os
  >>> def cwd():
  ...     return os.getcwd()
  ...
  >>> print(cwd(), home)
  error[F821]: undefined name 'home'
  >>> :check
  >>> :help`,
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
			l.Logger = g.logger
			return repl.RunRepl(">>> ",
				repl.WithLinter(l),
				repl.WithColor(g.color),
				repl.WithStderr(cmd.ErrOrStderr()),
			)
		},
	}
	addCheckerFlags(cmd)
	return cmd
}
