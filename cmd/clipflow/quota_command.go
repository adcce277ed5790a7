package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipflow/internal/queue"
	"clipflow/internal/quota"
)

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show today's publish quota consumption",
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

			ledger, err := quota.NewLedger(cfg, store)
			if err != nil {
				return err
			}

			usage, err := ledger.Usage(cmd.Context())
			if err != nil {
				return err
			}

			remaining := usage.DailyBudget - usage.ConsumedUnits
			if remaining < 0 {
				remaining = 0
			}
			publishes := int64(0)
			if cfg.Publish.CostUnits > 0 {
				publishes = remaining / cfg.Publish.CostUnits
			}

			rows := [][]string{
				{"Date", usage.Date},
				{"Consumed", strconv.FormatInt(usage.ConsumedUnits, 10)},
				{"Budget", strconv.FormatInt(usage.DailyBudget, 10)},
				{"Remaining", strconv.FormatInt(remaining, 10)},
				{"Publishes left", strconv.FormatInt(publishes, 10)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"FIELD", "VALUE"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
