package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quire/internal/api"
	"quire/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show scheduler and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *apiClient, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				if client == nil {
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					if asJSON {
						return writeJSON(cmd, map[string]any{
							"running": false,
							"stats":   api.FromStats(stats),
						})
					}
					fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
					printStatsLines(cmd, api.FromStats(stats), colorize)
					return nil
				}

				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}

				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "running", colorize))
				fmt.Fprintln(out, renderStatusLine("Poller", statusInfo, status.PollerState, colorize))
				if status.ProcessorID != "" {
					fmt.Fprintln(out, renderStatusLine("Processor", statusInfo, status.ProcessorID, colorize))
				}
				if status.LastError != "" {
					fmt.Fprintln(out, renderStatusLine("Last error", statusError, status.LastError, colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Task queue", statusInfo,
					fmt.Sprintf("%d queued, %d in flight", status.QueueDepth, status.InFlight), colorize))
				printStatsLines(cmd, status.Stats, colorize)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func printStatsLines(cmd *cobra.Command, stats api.QueueStats, colorize bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderStatusLine("Records", statusInfo,
		fmt.Sprintf("%d total", stats.Total), colorize))
	if stats.Pending > 0 || stats.Retrying > 0 {
		fmt.Fprintln(out, renderStatusLine("Waiting", statusInfo,
			fmt.Sprintf("%d pending, %d retrying", stats.Pending, stats.Retrying), colorize))
	}
	if stats.InProgress > 0 {
		fmt.Fprintln(out, renderStatusLine("In progress", statusInfo,
			fmt.Sprintf("%d", stats.InProgress), colorize))
	}
	if stats.Failed > 0 {
		fmt.Fprintln(out, renderStatusLine("Failed", statusError,
			fmt.Sprintf("%d", stats.Failed), colorize))
	}
}
