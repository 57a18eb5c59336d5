package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/remora-run/remora/pkg/cmd"
	"github.com/remora-run/remora/pkg/eventbus"
	"github.com/remora-run/remora/pkg/events"
	"github.com/remora-run/remora/pkg/persistence"
	"github.com/remora-run/remora/pkg/retention"
	"github.com/remora-run/remora/pkg/scheduler"
)

// WaiterOptions configures one waiter process.
type WaiterOptions struct {
	EventBusType    string
	SweepInterval   time.Duration
	Lookahead       time.Duration
	DefaultOwner    string
	MarkCrashed     bool
	Retention       bool
	RetentionMaxAge time.Duration
}

// WaiterManager wires the execution store, wait scheduler, event bus, and
// optional retention pruner for one process.
type WaiterManager struct {
	id     string
	store  persistence.ExecutionStore
	logger *slog.Logger
	opts   WaiterOptions
}

func NewWaiterManager(id string, store persistence.ExecutionStore, logger *slog.Logger, opts WaiterOptions) *WaiterManager {
	return &WaiterManager{
		id:     id,
		store:  store,
		logger: logger,
		opts:   opts,
	}
}

// Start runs the waiter until SIGINT/SIGTERM.
func (w *WaiterManager) Start(ctx context.Context) error {
	var bus eventbus.EventBus

	if w.opts.EventBusType != "none" {
		bus = cmd.NewEventBus(w.opts.EventBusType, w.logger)
		defer func() {
			err := bus.Close()
			if err != nil {
				w.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
			}
		}()
	}

	if w.opts.MarkCrashed {
		// Anything still new/running from before this process started must
		// have died with its previous process life.
		crashed, err := w.store.MarkStaleCrashed(ctx, time.Now().UTC())
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to mark stale executions as crashed", "error", err)
		} else if crashed > 0 {
			w.logger.InfoContext(ctx, "Marked stale executions as crashed", "count", crashed)
		}
	}

	var publisher events.Publisher
	if bus != nil {
		publisher = bus
	}

	sched := scheduler.NewWaitScheduler(
		w.store,
		&busRunner{publisher: publisher, logger: w.logger},
		staticOwnerResolver(w.opts.DefaultOwner),
		publisher,
		w.logger,
		nil,
		scheduler.Config{
			SweepInterval: w.opts.SweepInterval,
			Lookahead:     w.opts.Lookahead,
		},
	)

	err := sched.Start(ctx)
	if err != nil {
		return err
	}

	defer func() {
		err := sched.Stop(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to stop scheduler", "error", err)
		}
	}()

	if w.opts.Retention {
		pruner := retention.NewPruner(w.store, w.logger, nil, retention.Config{
			MaxAge: w.opts.RetentionMaxAge,
		})

		err := pruner.Start(ctx)
		if err != nil {
			return err
		}

		defer func() {
			err := pruner.Stop(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Failed to stop retention pruner", "error", err)
			}
		}()
	}

	w.logger.InfoContext(ctx, "Waiter started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		w.logger.InfoContext(ctx, "Shutting down waiter...")
	case <-ctx.Done():
	}

	return nil
}

// busRunner hands resume requests to out-of-process interpreter workers via
// the event bus. With no bus configured it only logs, which is enough for a
// single-binary development setup.
type busRunner struct {
	publisher events.Publisher
	logger    *slog.Logger
}

func (r *busRunner) Run(ctx context.Context, resume *scheduler.ResumeData) error {
	if r.publisher == nil {
		r.logger.InfoContext(ctx, "Execution due for resume (no event bus configured)",
			"execution_id", resume.Execution.ID, "workflow_id", resume.Execution.WorkflowID)

		return nil
	}

	event := events.NewExecutionResumeRequested(resume.Execution, resume.Owner)

	return r.publisher.Publish(ctx, resume.Execution.ID, event)
}

// staticOwnerResolver attributes every resume to one configured identity.
type staticOwnerResolver string

func (r staticOwnerResolver) ResolveOwner(ctx context.Context, workflowID string) (string, error) {
	return string(r), nil
}
