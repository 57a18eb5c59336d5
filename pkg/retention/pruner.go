// Package retention removes old terminal executions on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/remora-run/remora/pkg/models"
	"github.com/remora-run/remora/pkg/persistence"
)

// DefaultSchedule runs the pruner once an hour.
const DefaultSchedule = "@hourly"

// DefaultMaxAge keeps two weeks of terminal executions.
const DefaultMaxAge = 14 * 24 * time.Hour

// terminalStatuses are the states retention is allowed to touch. Waiting and
// running executions are never pruned regardless of age.
var terminalStatuses = []models.ExecutionStatus{
	models.ExecutionStatusSuccess,
	models.ExecutionStatusError,
	models.ExecutionStatusCanceled,
	models.ExecutionStatusCrashed,
}

// Config holds the pruner tuning knobs. Zero values fall back to defaults.
type Config struct {
	Schedule string
	MaxAge   time.Duration
}

// Pruner bulk-deletes terminal executions older than the retention cutoff.
// It runs as a trusted internal caller, so no access scope applies.
type Pruner struct {
	store  persistence.ExecutionStore
	logger *slog.Logger
	clock  clockwork.Clock
	cron   *cron.Cron

	schedule string
	maxAge   time.Duration
}

// NewPruner creates a retention pruner. The clock is injectable for tests.
func NewPruner(store persistence.ExecutionStore, logger *slog.Logger, clock clockwork.Clock, cfg Config) *Pruner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}

	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}

	return &Pruner{
		store:    store,
		logger:   logger,
		clock:    clock,
		schedule: cfg.Schedule,
		maxAge:   cfg.MaxAge,
	}
}

// Start schedules the pruning job and runs it until Stop.
func (p *Pruner) Start(ctx context.Context) error {
	p.cron = cron.New()

	_, err := p.cron.AddFunc(p.schedule, func() {
		p.Prune(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention pruning: %w", err)
	}

	p.cron.Start()
	p.logger.InfoContext(ctx, "Retention pruner started",
		"schedule", p.schedule, "max_age", p.maxAge)

	return nil
}

// Stop halts the schedule; an in-flight prune finishes.
func (p *Pruner) Stop(ctx context.Context) error {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}

	p.logger.InfoContext(ctx, "Retention pruner stopped")

	return nil
}

// Prune deletes terminal executions that started before the retention
// cutoff and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) int {
	cutoff := p.clock.Now().UTC().Add(-p.maxAge)

	deleted, err := p.store.DeleteExecutions(ctx, models.DeleteRequest{
		DeleteBefore: &cutoff,
		Filter:       &models.ExecutionFilter{Statuses: terminalStatuses},
	}, nil)
	if err != nil {
		p.logger.ErrorContext(ctx, "Retention pruning failed", "error", err)

		return 0
	}

	if deleted > 0 {
		p.logger.InfoContext(ctx, "Pruned old executions",
			"deleted", deleted, "cutoff", cutoff)
	}

	return deleted
}
