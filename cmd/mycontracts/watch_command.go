package main

import (
	"github.com/spf13/cobra"

	"github.com/felix-dieterle/mycontracts/internal/daemonrun"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the ingestion daemon in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg)
		},
	}
}
