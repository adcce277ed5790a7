package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"clipflow/internal/logging"
	"clipflow/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var maxItems int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline pass: discover, advance, publish",
		Long: `Run performs a single stateless pipeline pass and exits. Intended to be
invoked from cron. Exit codes: 0 when at least one stage advancement was
committed, 3 when nothing was eligible, 1 on fatal error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if maxItems > 0 {
				cfg.Scheduler.MaxItemsPerRun = maxItems
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "clipflow.log")},
			})
			if err != nil {
				return err
			}

			outcome, err := runner.Run(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("pipeline run %s: %w", outcome.RunID, err)
			}

			summary := outcome.Summary
			fmt.Fprintf(cmd.OutOrStdout(),
				"run %s: listed %d, discovered %d, advanced %d, published %d, completed %d, failed %d\n",
				outcome.RunID,
				outcome.Scan.Listed,
				outcome.Scan.Discovered,
				summary.Advanced,
				summary.Published,
				summary.Completed,
				summary.Failed,
			)
			if summary.QuotaExhausted {
				fmt.Fprintln(cmd.OutOrStdout(), "daily publish quota exhausted; backlog waits for the next window")
			}

			if outcome.ExitCode != runner.ExitAdvanced {
				return exitStatus(outcome.ExitCode)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "override the per-run stage advancement cap")
	return cmd
}
