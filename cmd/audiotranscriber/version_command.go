package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/audiotranscriber/version"
)

func newVersionCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				return writeJSON(cmd, version.Get())
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build information as JSON")
	return cmd
}
