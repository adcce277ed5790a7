package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipflow/internal/discovery"
	"clipflow/internal/logging"
	"clipflow/internal/media"
	"clipflow/internal/queue"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List the configured channel and track new videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ytdlp := media.NewYtDlp(media.WithYtDlpBinary(cfg.YtDlpBinary()))
			scanner := discovery.NewScanner(cfg, store, ytdlp, logging.NewNop())

			result, err := scanner.Scan(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "listed %d videos: %d new, %d priority refreshed\n",
				result.Listed, result.Discovered, result.Refreshed)
			return nil
		},
	}
}
