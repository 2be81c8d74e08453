package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/preflight"
	"github.com/felix-dieterle/mycontracts/internal/records"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show directory access, record store health, and record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store records.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				lines := make([]string, 0, 24)

				lines = append(lines, renderSectionHeader("Directories", colorize)...)
				for _, result := range preflight.RunAll(cmd.Context(), cfg) {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Record Store", colorize)...)
				health, err := store.CheckHealth(cmd.Context())
				switch {
				case err != nil:
					lines = append(lines, renderStatusLine("Database", statusError, err.Error(), colorize))
				case !health.Reachable:
					lines = append(lines, renderStatusLine("Database", statusError, health.Error, colorize))
				default:
					lines = append(lines, renderStatusLine("Database", statusOK,
						fmt.Sprintf("%s (%s)", health.Location, health.Driver), colorize))
					lines = append(lines, renderStatusLine("Stored files", statusInfo,
						fmt.Sprintf("%d", health.FileRows), colorize))
				}

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Records", colorize)...)
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return fmt.Errorf("record stats: %w", err)
				}
				for _, status := range records.AllStatuses() {
					kind := statusInfo
					if status == records.StatusFailed && stats[status] > 0 {
						kind = statusWarn
					}
					lines = append(lines, renderStatusLine(statusLabel(status), kind, fmt.Sprintf("%d", stats[status]), colorize))
				}
				lines = append(lines, renderStatusLine("Total", statusInfo, fmt.Sprintf("%d", stats.Total()), colorize))

				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return nil
			})
		},
	}
}
