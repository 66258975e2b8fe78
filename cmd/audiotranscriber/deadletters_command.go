package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kbukum/audiotranscriber/bootstrap"
	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/database"
	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/record"
)

func newDeadLettersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deadletters",
		Aliases: []string{"dlq"},
		Short:   "Inspect and replay records in the dead letter ledger",
	}
	cmd.AddCommand(newDeadLettersListCommand(ctx))
	cmd.AddCommand(newDeadLettersRemoveCommand(ctx))
	cmd.AddCommand(newDeadLettersReplayCommand(ctx))
	return cmd
}

// withLedger opens the ledger for the duration of fn.
func withLedger(ctx context.Context, cfg *AppConfig, fn func(*database.Ledger) error) error {
	if !cfg.Database.Enabled {
		return errors.Configuration("database is disabled; dead letters are not stored")
	}
	log := logger.New(&cfg.Logging, cfg.Name)
	db := database.NewComponent(cfg.Database, log)
	if err := db.Start(ctx); err != nil {
		return err
	}
	defer db.Stop(context.WithoutCancel(ctx))
	return fn(db.Ledger())
}

func newDeadLettersListCommand(ctx *commandContext) *cobra.Command {
	var kind string
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored dead letters, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return withLedger(cmd.Context(), cfg, func(l *database.Ledger) error {
				entries, err := l.List(cmd.Context(), database.ListOptions{Kind: errors.ErrorCode(kind), Limit: limit})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, deadLetterViews(entries))
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No dead letters")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDeadLetters(entries))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only entries with this error kind, e.g. TRANSCRIPTION_ERROR")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to list, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func newDeadLettersRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Delete dead letters by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return errors.InvalidInput("id", fmt.Sprintf("%q is not a dead letter id", arg))
				}
				ids = append(ids, id)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return withLedger(cmd.Context(), cfg, func(l *database.Ledger) error {
				for _, id := range ids {
					if err := l.Remove(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
				}
				return nil
			})
		},
	}
}

func newDeadLettersReplayCommand(ctx *commandContext) *cobra.Command {
	var kind string
	var limit int
	var output string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run stored dead letters through the pipeline again",
		Long: `Run stored dead letters through the pipeline again. Replayed entries are
removed from the ledger; records that fail again are stored as new entries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled {
				return errors.Configuration("database is disabled; dead letters are not stored")
			}
			cfg.Logging.Output = "stderr"
			report, err := replayDeadLetters(cmd.Context(), cfg, database.ListOptions{Kind: errors.ErrorCode(kind), Limit: limit}, wireOptions{
				stdout:     cmd.OutOrStdout(),
				appOptions: []bootstrap.Option{bootstrap.WithoutSummary()},
			})
			if err != nil {
				return err
			}
			if len(report.Outcomes) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No dead letters to replay")
				return nil
			}
			return writeReport(cmd.ErrOrStderr(), report, output)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only replay entries with this error kind")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to replay, 0 for all")
	cmd.Flags().StringVarP(&output, "output", "o", outputAuto, "Report format: auto, table or json")
	return cmd
}

// replayDeadLetters reprocesses ledger entries as one batch. An entry is
// removed once its record reached a final state, unless the pipeline refused
// it outright.
func replayDeadLetters(ctx context.Context, cfg *AppConfig, opts database.ListOptions, o wireOptions) (coordinator.BatchReport, error) {
	var report coordinator.BatchReport
	a, err := wire(cfg, o)
	if err != nil {
		return report, err
	}
	err = a.app.RunTask(ctx, func(ctx context.Context) error {
		ledger := a.database.Ledger()
		entries, err := ledger.List(ctx, opts)
		if err != nil {
			return err
		}
		recs := make([]*record.Record, 0, len(entries))
		for _, e := range entries {
			letter, err := e.Letter(cfg.binaryFields()...)
			if err != nil {
				return fmt.Errorf("dead letter %s: %w", e.ID, err)
			}
			recs = append(recs, letter.Record)
		}
		if len(recs) == 0 {
			return nil
		}

		report = a.pipeline.ProcessBatch(ctx, recs)
		for _, out := range report.Outcomes {
			if out.State == coordinator.Dropped && out.Kind == errors.ErrCodeServiceUnavailable {
				continue
			}
			if err := ledger.Remove(ctx, entries[out.Index].ID); err != nil {
				return err
			}
		}
		return nil
	})
	return report, err
}

type deadLetterView struct {
	ID       string    `json:"id"`
	Tag      string    `json:"tag"`
	AudioID  string    `json:"audio_id"`
	Kind     string    `json:"kind"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

func deadLetterViews(entries []database.DeadLetterEntry) []deadLetterView {
	views := make([]deadLetterView, 0, len(entries))
	for _, e := range entries {
		views = append(views, deadLetterView{
			ID:       e.ID.String(),
			Tag:      e.Tag,
			AudioID:  e.AudioID,
			Kind:     e.Kind,
			Reason:   e.Reason,
			FailedAt: e.FailedAt,
		})
	}
	return views
}

func renderDeadLetters(entries []database.DeadLetterEntry) string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.ID.String(),
			e.FailedAt.Local().Format(time.DateTime),
			e.AudioID,
			e.Kind,
			truncate(e.Reason, 60),
		})
	}
	return renderTable(
		[]string{"#", "ID", "Failed", "Audio", "Kind", "Reason"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
