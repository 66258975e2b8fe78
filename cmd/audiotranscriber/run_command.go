package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kbukum/audiotranscriber/bootstrap"
	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/record"
	"github.com/kbukum/audiotranscriber/server"
)

// Report formats.
const (
	outputAuto  = "auto"
	outputTable = "table"
	outputJSON  = "json"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var output string
	var workers int
	cmd := &cobra.Command{
		Use:   "run [audio files...]",
		Short: "Transcribe audio files or JSON records once and exit",
		Long: `Transcribe the given audio files, or JSON records read from stdin when no
files are given. Each file becomes a record {"path": <file>}. Stdin holds one
JSON object or an array of objects; content fields are base64.

Emitted records go to the configured sink, stdout for the log sink. The
per-record report goes to stderr, as a table on a terminal and JSON lines
otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case outputAuto, outputTable, outputJSON:
			default:
				return errors.InvalidInput("output", "must be auto, table or json")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Pipeline.Workers = workers
			}
			cfg.Logging.Output = "stderr"

			recs, err := readRecords(cmd.InOrStdin(), args, cfg)
			if err != nil {
				return err
			}
			report, err := runOnce(cmd.Context(), cfg, recs, wireOptions{
				stdout:     cmd.OutOrStdout(),
				appOptions: []bootstrap.Option{bootstrap.WithoutSummary()},
			})
			if err != nil {
				return err
			}
			if err := writeReport(cmd.ErrOrStderr(), report, output); err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d records failed", report.Failed, len(report.Outcomes))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputAuto, "Report format: auto, table or json")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker pool size, overriding pipeline.workers")
	return cmd
}

// readRecords builds one record per file argument, or decodes stdin when
// there are none.
func readRecords(stdin io.Reader, files []string, cfg *AppConfig) ([]*record.Record, error) {
	if len(files) > 0 {
		recs := make([]*record.Record, 0, len(files))
		for _, f := range files {
			abs, err := filepath.Abs(f)
			if err != nil {
				return nil, errors.InvalidInput("path", err.Error())
			}
			recs = append(recs, record.FromPairs(cfg.Pipeline.InputPath, abs))
		}
		return recs, nil
	}
	if isTerminal(stdin) {
		return nil, errors.InvalidInput("input", "no audio files given and stdin is a terminal")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	recs, err := record.DecodeJSONBatch(data, cfg.binaryFields()...)
	if err != nil {
		return nil, errors.InvalidInput("stdin", err.Error())
	}
	return recs, nil
}

// runOnce starts the components, processes recs as one batch and stops.
func runOnce(ctx context.Context, cfg *AppConfig, recs []*record.Record, o wireOptions) (coordinator.BatchReport, error) {
	var report coordinator.BatchReport
	a, err := wire(cfg, o)
	if err != nil {
		return report, err
	}
	err = a.app.RunTask(ctx, func(ctx context.Context) error {
		report = a.pipeline.ProcessBatch(ctx, recs)
		return nil
	})
	return report, err
}

func writeReport(w io.Writer, report coordinator.BatchReport, output string) error {
	resp := server.NewBatchResponse(report)
	if output == outputTable || (output == outputAuto && isTerminal(w)) {
		rows := make([][]string, 0, len(resp.Outcomes))
		for _, o := range resp.Outcomes {
			detail := o.Kind
			if detail == "" {
				detail = o.Reason
			}
			rows = append(rows, []string{
				strconv.Itoa(o.Index),
				o.AudioID,
				o.State,
				detail,
				strconv.FormatInt(o.ElapsedMs, 10),
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"#", "Audio", "State", "Detail", "ms"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
		))
		fmt.Fprintf(w, "%d emitted, %d skipped, %d failed\n", resp.Emitted, resp.Skipped, resp.Failed)
		return nil
	}
	enc := json.NewEncoder(w)
	for _, o := range resp.Outcomes {
		if err := enc.Encode(o); err != nil {
			return err
		}
	}
	return nil
}
