package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/remora-run/remora/pkg/cmd"
	"github.com/remora-run/remora/pkg/log"
	"github.com/remora-run/remora/pkg/models"
	"github.com/remora-run/remora/pkg/persistence"
	"github.com/remora-run/remora/pkg/scheduler"
)

func openStore(ctx context.Context, command *cli.Command) persistence.ExecutionStore {
	logger := log.WithModule("remora-admin")

	return cmd.NewPersistence(ctx, logger, command.String("database-url"))
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

// NewListCommand lists execution summaries matching the given filters.
func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List executions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workflow-id", Usage: "Filter by workflow id"},
			&cli.StringSliceFlag{Name: "status", Usage: "Filter by status (repeatable)"},
			&cli.BoolFlag{Name: "finished", Usage: "Only finished executions"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum results", Value: 50},
			&cli.StringFlag{Name: "after-id", Usage: "Cursor: only ids after this one"},
			&cli.StringFlag{Name: "before-id", Usage: "Cursor: only ids before this one"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			store := openStore(ctx, command)
			defer func() { _ = store.Close(ctx) }()

			filter := models.ExecutionFilter{WorkflowID: command.String("workflow-id")}

			for _, status := range command.StringSlice("status") {
				filter.Statuses = append(filter.Statuses, models.ExecutionStatus(status))
			}

			if command.IsSet("finished") {
				finished := command.Bool("finished")
				filter.Finished = &finished
			}

			summaries, err := store.SearchExecutions(ctx, filter, models.Cursor{
				Limit:    command.Int("limit"),
				AfterID:  command.String("after-id"),
				BeforeID: command.String("before-id"),
			}, nil)
			if err != nil {
				return err
			}

			return printJSON(summaries)
		},
	}
}

// NewShowCommand prints one execution, optionally with its stored data.
func NewShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one execution",
		ArgsUsage: "<execution-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "with-snapshot", Usage: "Include the workflow snapshot"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return fmt.Errorf("%w: execution id argument is required", persistence.ErrInvalidRequest)
			}

			store := openStore(ctx, command)
			defer func() { _ = store.Close(ctx) }()

			execution, data, err := store.ExecutionByID(ctx, id, models.GetOptions{
				IncludeWorkflowSnapshot: command.Bool("with-snapshot"),
			})
			if err != nil {
				return err
			}

			out := map[string]any{"execution": execution}
			if data != nil && data.WorkflowData != nil {
				out["workflow_snapshot"] = data.WorkflowData
			}

			return printJSON(out)
		},
	}
}

// NewStopCommand cancels a waiting execution.
func NewStopCommand() *cli.Command {
	return &cli.Command{
		Name:      "stop",
		Usage:     "Cancel a waiting execution",
		ArgsUsage: "<execution-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return fmt.Errorf("%w: execution id argument is required", persistence.ErrInvalidRequest)
			}

			store := openStore(ctx, command)
			defer func() { _ = store.Close(ctx) }()

			// A standalone scheduler instance shares no timers with a running
			// waiter, but the conditional store-level cancel is what matters:
			// the waiter's timer will lose its claim and skip the resume.
			sched := scheduler.NewWaitScheduler(store, nil, nil, nil,
				log.WithModule("remora-admin"), nil, scheduler.Config{})

			summary, err := sched.StopExecution(ctx, id)
			if err != nil {
				return err
			}

			return printJSON(summary)
		},
	}
}

// NewDeleteCommand deletes executions by id or age.
func NewDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete executions by id or age",
		ArgsUsage: "[execution-id...]",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "older-than", Usage: "Delete executions started before now minus this duration"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			store := openStore(ctx, command)
			defer func() { _ = store.Close(ctx) }()

			req := models.DeleteRequest{IDs: command.Args().Slice()}

			if command.IsSet("older-than") {
				cutoff := time.Now().UTC().Add(-command.Duration("older-than"))
				req.DeleteBefore = &cutoff
			}

			deleted, err := store.DeleteExecutions(ctx, req, nil)
			if err != nil {
				return err
			}

			return printJSON(map[string]int{"deleted": deleted})
		},
	}
}
