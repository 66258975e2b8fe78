package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var envFileFlag string

	ctx := newCommandContext(&configFlag, &envFileFlag)

	rootCmd := &cobra.Command{
		Use:           "audiotranscriber",
		Short:         "Transcribe audio records into text",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Environment file loaded before AUDIO_TRANSCRIBER_* variables")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newDeadLettersCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
