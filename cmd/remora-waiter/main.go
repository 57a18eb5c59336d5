package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/remora-run/remora/pkg/cmd"
	"github.com/remora-run/remora/pkg/log"
	"github.com/remora-run/remora/pkg/persistence/postgresql"
)

func main() {
	command := &cli.Command{
		Name:                  "remora-waiter",
		EnableShellCompletion: true,
		Usage:                 "Resume suspended executions when their wait time is due",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "waiter-id",
				Aliases: []string{"id"},
				Usage:   "Custom waiter ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WAITER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.DurationFlag{
				Name:    "sweep-interval",
				Usage:   "How often the reconciliation sweep runs",
				Value:   60 * time.Second,
				Sources: cli.EnvVars("SWEEP_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "lookahead",
				Usage:   "How far past now a sweep looks for due executions",
				Value:   70 * time.Second,
				Sources: cli.EnvVars("SWEEP_LOOKAHEAD"),
			},
			&cli.StringFlag{
				Name:    "default-owner",
				Usage:   "Acting identity attached to resume requests",
				Value:   "system",
				Sources: cli.EnvVars("DEFAULT_OWNER"),
			},
			&cli.BoolFlag{
				Name:    "mark-crashed",
				Usage:   "Flag stale new/running executions as crashed on startup",
				Value:   true,
				Sources: cli.EnvVars("MARK_CRASHED"),
			},
			&cli.BoolFlag{
				Name:    "retention",
				Usage:   "Enable periodic pruning of old terminal executions",
				Value:   false,
				Sources: cli.EnvVars("RETENTION_ENABLED"),
			},
			&cli.DurationFlag{
				Name:    "retention-max-age",
				Usage:   "How long terminal executions are kept",
				Value:   14 * 24 * time.Hour,
				Sources: cli.EnvVars("RETENTION_MAX_AGE"),
			},
			&cli.BoolFlag{
				Name:    "metadata-filtering",
				Usage:   "Enable metadata key/value predicates in search filters",
				Value:   false,
				Sources: cli.EnvVars("METADATA_FILTERING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			waiterID := command.String("waiter-id")
			if waiterID == "" {
				waiterID = "waiter-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("remora-waiter").With("waiterId", waiterID)

			logger.InfoContext(ctx, "Initializing Remora Waiter")

			var storeOpts []postgresql.Option
			if command.Bool("metadata-filtering") {
				storeOpts = append(storeOpts, postgresql.WithMetadataFiltering())
			}

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"), storeOpts...)
			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			waiter := NewWaiterManager(waiterID, store, logger, WaiterOptions{
				EventBusType:    command.String("event-bus"),
				SweepInterval:   command.Duration("sweep-interval"),
				Lookahead:       command.Duration("lookahead"),
				DefaultOwner:    command.String("default-owner"),
				MarkCrashed:     command.Bool("mark-crashed"),
				Retention:       command.Bool("retention"),
				RetentionMaxAge: command.Duration("retention-max-age"),
			})

			err := waiter.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start waiter", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
