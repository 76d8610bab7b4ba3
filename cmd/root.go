// Copyright © 2024 The ELPS authors

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luthersystems/flakes/config"
	"github.com/luthersystems/flakes/diagnostic"
)

// ExitError carries a process exit status out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// usageError marks err as a bad invocation.
func usageError(err error) error {
	return &ExitError{Code: 2, Err: err}
}

// globals holds the state the root command's persistent flags resolve to.
type globals struct {
	cfgFile   string
	logLevel  string
	colorFlag string

	viper  *viper.Viper
	logger *slog.Logger
	color  diagnostic.ColorMode
}

func (g *globals) setup(cmd *cobra.Command) error {
	color, err := diagnostic.ParseColorMode(g.colorFlag)
	if err != nil {
		return usageError(err)
	}
	g.color = color

	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return usageError(fmt.Errorf("invalid log level %q", g.logLevel))
	}
	g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	v, err := config.NewViper(g.cfgFile)
	if err != nil {
		return usageError(err)
	}
	g.viper = v
	if v.ConfigFileUsed() != "" {
		g.logger.Debug("using config file", "path", v.ConfigFileUsed())
	}
	return nil
}

// settings resolves checker settings for a run in the working directory.
// flags maps setting keys to the command flags that override them.
func (g *globals) settings(cmd *cobra.Command, flags map[string]string) (*config.Settings, error) {
	for key, name := range flags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := g.viper.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	s, err := config.Load(g.viper, dir)
	if err != nil {
		return nil, usageError(err)
	}
	if s.Source != "" {
		g.logger.Debug("using pyproject settings", "path", s.Source)
	}
	return s, nil
}

// NewRootCommand builds the flakes command tree. Embedders can pass options
// to add builtins or analyzers to every command that checks source.
func NewRootCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	g := &globals{}

	root := &cobra.Command{
		Use:   "flakes",
		Short: "flakes: find binding mistakes in Python source",
		Long: `flakes checks Python source for names that are used but never defined,
imports that are never used, redefinitions that shadow an unused binding,
duplicate arguments and misplaced __future__ imports.

It never runs the code it checks and it does not report style issues.

Getting started:
  flakes lint app.py             Check a file
  flakes lint ./...              Check every .py file below the current directory
  flakes lint --list             List the available checks
  flakes doc unused-import       Explain a check
  flakes repl                    Check source interactively
  flakes watch src               Re-check files as they change
  flakes lsp                     Serve diagnostics to an editor

Settings are read from the [tool.flakes] table of the nearest pyproject.toml,
from .flakes.yaml in the working or home directory, and from FLAKES_*
environment variables. Flags take precedence.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.setup(cmd)
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	root.PersistentFlags().StringVar(&g.cfgFile, "config", "",
		"config file (default is ./.flakes.yaml or $HOME/.flakes.yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn",
		`Log level: "debug", "info", "warn" or "error".`)
	root.PersistentFlags().StringVar(&g.colorFlag, "color", "auto",
		`Control colored output: "auto", "always", or "never".`)

	root.AddCommand(
		lintCommand(g, cfg),
		lspCommand(g, cfg),
		replCommand(g, cfg),
		watchCommand(g, cfg),
		docCommand(cfg),
		versionCommand(),
	)
	return root
}

// Execute runs the command tree and exits with its status. It is called
// by main.main().
func Execute() {
	os.Exit(run(NewRootCommand(), os.Args[1:], os.Stderr))
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		if exit.Err != nil {
			fmt.Fprintf(stderr, "flakes: %v\n", exit.Err) //nolint:errcheck // best-effort error display
		}
		return exit.Code
	}
	fmt.Fprintf(stderr, "flakes: %v\n", err) //nolint:errcheck // best-effort error display
	if strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}
