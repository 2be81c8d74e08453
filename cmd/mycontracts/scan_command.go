package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felix-dieterle/mycontracts/internal/api"
	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/daemonrun"
	"github.com/felix-dieterle/mycontracts/internal/logging"
	"github.com/felix-dieterle/mycontracts/internal/records"
	"github.com/felix-dieterle/mycontracts/internal/watcher"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one reconciliation cycle and print every record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store records.Store) error {
				logger, err := logging.New(logging.Options{
					Level:            cfg.Logging.Level,
					Format:           cfg.Logging.Format,
					OutputPaths:      []string{"stderr"},
					ErrorOutputPaths: []string{"stderr"},
				})
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				w, err := daemonrun.NewWatcher(cfg, store, nil, logger)
				if err != nil {
					return err
				}
				report, recs, err := w.ScanOnce(cmd.Context())
				if errors.Is(err, watcher.ErrDisabled) {
					return fmt.Errorf("scan: %s", w.Status().DisabledReason)
				}
				if err != nil {
					return fmt.Errorf("scan: %w", err)
				}

				if jsonOutput {
					return writeJSON(cmd, api.ScanResponse{
						Cycle:   api.FromCycleReport(report),
						Records: api.FromRecords(recs),
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cycle %s: discovered %d, matched %d, retried %d, failed %d, skipped %d, errors %d (%s)\n",
					report.ID, report.Discovered, report.Matched, report.Retried, report.Failed, report.Skipped, report.Errors,
					report.Duration().Round(time.Millisecond))
				fmt.Fprintln(out, renderRecordTable(recs))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
