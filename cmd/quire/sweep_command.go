package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quire/internal/logging"
	"quire/internal/queue"
	"quire/internal/workflow"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Recover records stuck in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			return ctx.withQueue(func(client *apiClient, store *queue.Store) error {
				var reset, failed int
				if client != nil {
					resp, err := client.Sweep(cmd.Context())
					if err != nil {
						return err
					}
					reset, failed = resp.Reset, resp.Failed
				} else {
					reclaimer := workflow.NewReclaimer(cfg, store, logging.NewNop())
					var err error
					reset, failed, err = reclaimer.Sweep(cmd.Context())
					if err != nil {
						return err
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d records, failed %d records\n", reset, failed)
				return nil
			})
		},
	}
}
