package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felix-dieterle/mycontracts/internal/api"
	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/records"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List OCR records",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(_ *config.Config, store records.Store) error {
				recs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return fmt.Errorf("list records: %w", err)
				}
				if jsonOutput {
					return writeJSON(cmd, api.RecordListResponse{Records: api.FromRecords(recs)})
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No records")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderRecordTable(recs))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (pending, matched, failed)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func parseStatuses(values []string) ([]records.Status, error) {
	statuses := make([]records.Status, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := records.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q (valid: pending, matched, failed)", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func renderRecordTable(recs []*records.OcrRecord) string {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		matched := "-"
		if rec.MatchedFileID != nil {
			matched = strconv.FormatInt(*rec.MatchedFileID, 10)
		}
		last := "-"
		if rec.LastAttempt != nil {
			last = formatTimestamp(*rec.LastAttempt)
		}
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			statusLabel(rec.Status),
			rec.Path,
			matched,
			strconv.Itoa(rec.RetryCount),
			last,
		})
	}
	return renderTable(
		[]string{"ID", "Status", "Artifact", "File", "Attempts", "Last Attempt"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}
