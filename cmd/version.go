// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/luthersystems/flakes/lsp"
)

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the flakes version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "flakes %s %s/%s\n", lsp.Version, runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
