package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/server/middleware"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for the ingest API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			auth := cfg.Server.Auth
			if !auth.Enabled {
				return errors.Configuration("server.auth is disabled")
			}
			if ttl <= 0 {
				return errors.InvalidInput("ttl", "must be positive")
			}
			token, err := middleware.SignToken(auth, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject, used for per-caller rate limits")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
