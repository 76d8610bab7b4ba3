// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luthersystems/flakes/docs"
	"github.com/luthersystems/flakes/lint"
)

// docWidth is the column the check documentation is wrapped to.
const docWidth = 78

func docCommand(cfg *cmdConfig) *cobra.Command {
	var guide bool
	cmd := &cobra.Command{
		Use:   "doc [check]",
		Short: "Show documentation for checks",
		Long: `Show what a check reports and why.

A check is named by its name or its code. With no argument, every check is
documented. --guide prints the user guide instead.

Examples:
  flakes doc                   Document every check
  flakes doc unused-import     Document one check by name
  flakes doc F811              Document every check reporting F811
  flakes doc --guide           Print the user guide`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if guide {
				_, err := io.WriteString(cmd.OutOrStdout(), docs.Guide)
				return err
			}
			analyzers := append(lint.DefaultAnalyzers(), cfg.analyzers...)
			if len(args) == 1 {
				analyzers = lookupAnalyzers(analyzers, args[0])
				if len(analyzers) == 0 {
					return usageError(fmt.Errorf("unknown check %q (available: %s)",
						args[0], strings.Join(lint.AnalyzerNames(), ", ")))
				}
			}
			return writeDocs(cmd.OutOrStdout(), analyzers)
		},
	}
	cmd.Flags().BoolVar(&guide, "guide", false, "Print the user guide.")
	return cmd
}

func lookupAnalyzers(analyzers []*lint.Analyzer, nameOrCode string) []*lint.Analyzer {
	var out []*lint.Analyzer
	for _, a := range analyzers {
		if a.Name == nameOrCode || strings.EqualFold(a.Code, nameOrCode) {
			out = append(out, a)
		}
	}
	return out
}

func writeDocs(w io.Writer, analyzers []*lint.Analyzer) error {
	for i, a := range analyzers {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, lint.AnalyzerDoc(a, docWidth)); err != nil {
			return err
		}
	}
	return nil
}
