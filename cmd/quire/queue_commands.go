package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"quire/internal/api"
	"quire/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the durable work queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueCancelCommand(ctx))
	queueCmd.AddCommand(newQueueSkipCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func parseStatusFilters(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue records",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilters(listStatuses)
			if err != nil {
				return err
			}

			return ctx.withQueue(func(client *apiClient, store *queue.Store) error {
				var records []api.QueueRecord
				if client != nil {
					records, err = client.List(cmd.Context(), listStatuses)
					if err != nil {
						return err
					}
				} else {
					stored, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					records = api.FromRecords(stored)
				}

				if asJSON {
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(queueListHeaders, buildQueueListRows(records), queueListAligns))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by record status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <recordID>",
		Short: "Show one queue record in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]

			return ctx.withQueue(func(client *apiClient, store *queue.Store) error {
				var record *api.QueueRecord
				if client != nil {
					record, err = client.Describe(cmd.Context(), id)
					if err != nil {
						return err
					}
				} else {
					stored, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if stored != nil {
						dto := api.FromRecord(stored)
						record = &dto
					}
				}

				if record == nil {
					if asJSON {
						return writeJSON(cmd, map[string]string{"error": "not_found"})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Record %d not found\n", id)
					return nil
				}
				if asJSON {
					return writeJSON(cmd, record)
				}
				fmt.Fprint(cmd.OutOrStdout(), printQueueRecordDetail(*record))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue record counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *apiClient, store *queue.Store) error {
				var stats api.QueueStats
				var err error
				if client != nil {
					stats, err = client.Stats(cmd.Context())
				} else {
					var stored queue.Stats
					stored, err = store.Stats(cmd.Context())
					if err == nil {
						stats = api.FromStats(stored)
					}
				}
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd, stats)
				}
				rows := buildQueueStatsRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var nameFlag string
	var priorityFlag int
	var maxRetriesFlag int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "add <documentID>",
		Short: "Enqueue a document for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.EnqueueRequest{
				DocumentID:  args[0],
				Kind:        kindFlag,
				DisplayName: nameFlag,
			}
			if cmd.Flags().Changed("priority") {
				req.Priority = &priorityFlag
			}
			if cmd.Flags().Changed("max-retries") {
				req.MaxRetries = &maxRetriesFlag
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			return ctx.withQueue(func(client *apiClient, store *queue.Store) error {
				var record *api.QueueRecord
				if client != nil {
					record, err = client.Enqueue(cmd.Context(), req)
				} else {
					record, err = api.NewQueueActions(store, cfg).Enqueue(cmd.Context(), req)
				}
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd, record)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued record %d for document %s (%s)\n",
					record.ID, record.DocumentID, record.Kind)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Work kind (text_extraction, classification, summarization)")
	cmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Display name for the record")
	cmd.Flags().IntVar(&priorityFlag, "priority", 0, "Scheduling priority, higher first")
	cmd.Flags().IntVar(&maxRetriesFlag, "max-retries", 0, "Retry budget for the record")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [recordID...]",
		Short: "Retry failed queue records",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueue(func(client *apiClient, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					var updated int64
					var err error
					if client != nil {
						updated, err = client.RetryAll(cmd.Context())
					} else {
						updated, err = store.RetryFailed(cmd.Context())
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed records\n", updated)
					return nil
				}

				for _, id := range ids {
					var updated int64
					var err error
					if client != nil {
						updated, err = client.Retry(cmd.Context(), id)
						if err != nil {
							fmt.Fprintf(out, "Record %d is not in a failed state\n", id)
							continue
						}
					} else {
						updated, err = store.RetryFailed(cmd.Context(), id)
						if err != nil {
							return err
						}
					}
					if updated > 0 {
						fmt.Fprintf(out, "Record %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Record %d is not in a failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueCancelCommand(ctx *commandContext) *cobra.Command {
	return newWaitingTransitionCommand(ctx, "cancel", "Cancel a waiting queue record",
		func(client *apiClient) transitionFunc { return client.Cancel },
		func(store *queue.Store) storeTransitionFunc { return store.Cancel },
		"cancelled")
}

func newQueueSkipCommand(ctx *commandContext) *cobra.Command {
	return newWaitingTransitionCommand(ctx, "skip", "Skip a waiting queue record",
		func(client *apiClient) transitionFunc { return client.Skip },
		func(store *queue.Store) storeTransitionFunc { return store.Skip },
		"skipped")
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <recordID>",
		Short: "Delete a queue record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]

			return ctx.withQueue(func(client *apiClient, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					if err := client.Remove(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(out, "Record %d removed\n", id)
					return nil
				}
				removed, err := store.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(out, "Record %d not found\n", id)
					return nil
				}
				fmt.Fprintf(out, "Record %d removed\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue records in bulk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			scope := api.ClearScopeAll
			label := "queue records"
			switch {
			case clearCompleted:
				scope = api.ClearScopeCompleted
				label = "completed records"
			case clearFailed:
				scope = api.ClearScopeFailed
				label = "failed records"
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			return ctx.withQueue(func(client *apiClient, store *queue.Store) error {
				var removed int64
				if client != nil {
					removed, err = client.Clear(cmd.Context(), scope)
				} else {
					removed, err = api.NewQueueActions(store, cfg).Clear(cmd.Context(), scope)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed records")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed records")
	return cmd
}

type transitionFunc func(ctx context.Context, id int64) error

type storeTransitionFunc func(ctx context.Context, id int64) (bool, error)

func newWaitingTransitionCommand(
	ctx *commandContext,
	verb, short string,
	clientOp func(*apiClient) transitionFunc,
	storeOp func(*queue.Store) storeTransitionFunc,
	pastTense string,
) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <recordID>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]

			return ctx.withQueue(func(client *apiClient, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					if err := clientOp(client)(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(out, "Record %d %s\n", id, pastTense)
					return nil
				}
				ok, err := storeOp(store)(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(out, "Record %d is not in a waiting state\n", id)
					return nil
				}
				fmt.Fprintf(out, "Record %d %s\n", id, pastTense)
				return nil
			})
		},
	}
}
