package main

import (
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the transcription service until interrupted",
		Long: `Run the transcription service until SIGINT or SIGTERM.

Records arrive from the configured pipeline.source: a Kafka consumer group
(kafka) or POST /v1/records (http). Results go to the configured sink.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.validateServe(); err != nil {
				return err
			}
			a, err := wire(cfg, wireOptions{serve: true, stdout: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			return a.app.Run(cmd.Context())
		},
	}
}
