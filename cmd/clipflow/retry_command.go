package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipflow/internal/queue"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [item-id...]",
		Short: "Reset failed items so the next run picks them up",
		Long: `Retry moves failed items back to the furthest stage their recorded
progress supports and clears the retry counter. With no arguments every
failed item is reset.`,
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

			reset, err := store.RetryFailed(cmd.Context(), args...)
			if err != nil {
				return err
			}

			if reset == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no failed items to retry")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d failed item(s)\n", reset)
			return nil
		},
	}
}
