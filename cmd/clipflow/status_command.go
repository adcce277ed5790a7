package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipflow/internal/queue"
)

const titleColumnWidth = 40

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the tracked work items",
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

			items, listErr := store.List(cmd.Context())
			if listErr != nil && items == nil {
				return listErr
			}

			if statusFilter != "" {
				wanted, ok := queue.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				filtered := items[:0]
				for _, item := range items {
					if item.Status == wanted {
						filtered = append(filtered, item)
					}
				}
				items = filtered
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "no tracked items")
			} else {
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						truncate(item.Title, titleColumnWidth),
						string(item.Status),
						strconv.FormatInt(item.Priority, 10),
						fmt.Sprintf("%d/%d", len(item.PublishedRefs), len(item.Segments)),
						strconv.Itoa(item.RetryCount),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "TITLE", "STATUS", "PRIORITY", "PUBLISHED", "RETRIES"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				fmt.Fprintln(out, renderStatusCounts(items))
			}

			if listErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: corrupt records excluded: %v\n", listErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show items with this status")
	return cmd
}

func renderStatusCounts(items []*queue.Item) string {
	counts := make(map[queue.Status]int)
	for _, item := range items {
		counts[item.Status]++
	}

	parts := make([]string, 0, len(counts))
	for _, status := range queue.AllStatuses() {
		if counts[status] > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", status, counts[status]))
		}
	}
	return strings.Join(parts, ", ")
}

func truncate(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
