// Package scheduler reconciles an in-memory timer registry against the
// durable wait_till timestamps in the execution store and triggers resumption
// or cancellation of suspended executions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/remora-run/remora/pkg/events"
	"github.com/remora-run/remora/pkg/models"
	"github.com/remora-run/remora/pkg/otelhelper"
	"github.com/remora-run/remora/pkg/persistence"
	"github.com/remora-run/remora/pkg/rundata"
)

const (
	// DefaultSweepInterval is how often the reconciliation sweep runs.
	DefaultSweepInterval = 60 * time.Second

	// DefaultLookahead is how far past now a sweep looks for due executions.
	// It exceeds the sweep interval so no execution falls through the gap
	// between two sweeps.
	DefaultLookahead = 70 * time.Second
)

// Config holds the scheduler tuning knobs. Zero values fall back to the
// defaults above.
type Config struct {
	SweepInterval time.Duration
	Lookahead     time.Duration
}

// WaitScheduler owns a process-local map from execution id to an armed timer
// handle. The map is a cache derived from the store, never authoritative: it
// is rebuilt by the sweep on every process start and reconciled periodically,
// which is the whole crash-recovery story.
type WaitScheduler struct {
	store     persistence.ExecutionStore
	runner    Runner
	owners    OwnerResolver
	publisher events.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	clock     clockwork.Clock

	sweepInterval time.Duration
	lookahead     time.Duration

	mu      sync.Mutex
	timers  map[string]clockwork.Timer
	started bool
	done    chan struct{}
}

// NewWaitScheduler creates a scheduler. The publisher may be nil to disable
// lifecycle events; the clock is injectable so reconciliation is testable
// without a real clock.
func NewWaitScheduler(
	store persistence.ExecutionStore,
	runner Runner,
	owners OwnerResolver,
	publisher events.Publisher,
	logger *slog.Logger,
	clock clockwork.Clock,
	cfg Config,
) *WaitScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	if cfg.Lookahead <= cfg.SweepInterval {
		cfg.Lookahead = cfg.SweepInterval + 10*time.Second
	}

	return &WaitScheduler{
		store:         store,
		runner:        runner,
		owners:        owners,
		publisher:     publisher,
		logger:        logger,
		tracer:        otel.Tracer("remora/scheduler"),
		clock:         clock,
		sweepInterval: cfg.SweepInterval,
		lookahead:     cfg.Lookahead,
		timers:        make(map[string]clockwork.Timer),
	}
}

// Start begins the reconciliation loop: one sweep immediately, then one per
// sweep interval until Stop or context cancellation.
func (s *WaitScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.started = true
	s.done = make(chan struct{})

	s.logger.InfoContext(ctx, "Starting wait scheduler",
		"sweep_interval", s.sweepInterval, "lookahead", s.lookahead)

	go s.run(ctx)

	return nil
}

// Stop shuts the scheduler down and disarms every local timer. The durable
// wait_till timestamps are untouched; the next process life re-arms from them.
func (s *WaitScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	close(s.done)
	s.started = false

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}

	s.logger.InfoContext(ctx, "Wait scheduler stopped")

	return nil
}

func (s *WaitScheduler) run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := s.clock.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep(ctx)
		}
	}
}

// Sweep queries the store for waiting executions due within the lookahead
// window and arms a timer for each one not already tracked. A sweep failure
// is logged and retried on the next tick, never fatal.
func (s *WaitScheduler) Sweep(ctx context.Context) {
	until := s.clock.Now().Add(s.lookahead)

	waiting, err := s.store.WaitingExecutions(ctx, until)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query waiting executions", "error", err)

		return
	}

	armed := 0

	for _, execution := range waiting {
		if execution.WaitTill == nil {
			continue
		}

		if s.arm(ctx, execution.ID, *execution.WaitTill) {
			armed++
		}
	}

	if armed > 0 {
		s.logger.InfoContext(ctx, "Reconciliation sweep armed timers",
			"armed", armed, "due", len(waiting))
	}
}

// arm registers a timer for the execution unless one is already armed.
// Reports whether a new timer was created.
func (s *WaitScheduler) arm(ctx context.Context, id string, waitTill time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return false
	}

	if _, armed := s.timers[id]; armed {
		return false
	}

	delay := waitTill.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.timers[id] = s.clock.AfterFunc(delay, func() {
		s.fire(ctx, id)
	})

	return true
}

// disarm stops and forgets the timer for the execution, if any. Reports
// whether a timer was armed.
func (s *WaitScheduler) disarm(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, armed := s.timers[id]
	if !armed {
		return false
	}

	timer.Stop()
	delete(s.timers, id)

	return true
}

// IsArmed reports whether a local timer is currently armed for the execution.
func (s *WaitScheduler) IsArmed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, armed := s.timers[id]

	return armed
}

// fire handles a due timer. The map entry is removed first, so a sweep
// running concurrently cannot double-arm the execution, then the resume runs
// asynchronously off the timer goroutine.
func (s *WaitScheduler) fire(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()

	go s.resume(ctx, id)
}

// resume claims the execution, loads its full state, and hands it to the
// Runner. Every failure here is terminal for this attempt: it is recorded on
// the span and logged, never propagated into the sweep loop and never
// retried.
func (s *WaitScheduler) resume(ctx context.Context, id string) {
	ctx, span := s.tracer.Start(ctx, "execution.resume",
		trace.WithAttributes(attribute.String(otelhelper.ExecutionIDKey, id)))
	defer span.End()

	claimed, err := s.store.ClaimForResume(ctx, id)
	if err != nil {
		s.reportResumeFailure(ctx, span, id, fmt.Errorf("failed to claim execution: %w", err))

		return
	}

	if !claimed {
		// Another scheduler instance won the claim, or the execution left
		// the waiting state in the meantime.
		s.logger.DebugContext(ctx, "Execution no longer claimable, skipping resume", "execution_id", id)

		return
	}

	execution, data, err := s.store.ExecutionByID(ctx, id, models.GetOptions{
		IncludeData:             true,
		IncludeWorkflowSnapshot: true,
	})
	if err != nil {
		s.reportResumeFailure(ctx, span, id, fmt.Errorf("failed to load execution: %w", err))

		return
	}

	if data.WorkflowData == nil || data.WorkflowData.ID == "" {
		s.reportResumeFailure(ctx, span, id,
			fmt.Errorf("workflow snapshot has no persisted id, cannot resume execution %s", id))

		return
	}

	owner, err := s.owners.ResolveOwner(ctx, execution.WorkflowID)
	if err != nil {
		s.reportResumeFailure(ctx, span, id, fmt.Errorf("failed to resolve workflow owner: %w", err))

		return
	}

	s.logger.InfoContext(ctx, "Resuming execution",
		"execution_id", id, "workflow_id", execution.WorkflowID)

	err = s.runner.Run(ctx, &ResumeData{
		Execution: execution,
		Data:      data,
		Owner:     owner,
	})
	if err != nil {
		s.reportResumeFailure(ctx, span, id, fmt.Errorf("runner failed: %w", err))

		return
	}

	s.publish(ctx, events.NewExecutionResumed(execution))
}

func (s *WaitScheduler) reportResumeFailure(ctx context.Context, span trace.Span, id string, err error) {
	otelhelper.SetError(span, id, err)
	s.logger.ErrorContext(ctx, "Failed to resume execution", "execution_id", id, "error", err)
}

// StopExecution cancels a waiting execution: the local timer is disarmed, a
// cancellation error is attached to the stored run-data graph, and the record
// is conditionally moved to canceled. An execution with no wait_till has
// nothing to cancel and fails with ErrExecutionNotFound.
func (s *WaitScheduler) StopExecution(ctx context.Context, id string) (*models.ExecutionSummary, error) {
	s.disarm(id)

	execution, data, err := s.store.ExecutionByID(ctx, id, models.GetOptions{IncludeData: true})
	if err != nil {
		return nil, err
	}

	if execution.WaitTill == nil {
		return nil, &persistence.ExecutionError{
			Op:          "Stop",
			ExecutionID: id,
			Err:         persistence.ErrExecutionNotFound,
			Message:     "execution is not waiting, nothing to cancel",
		}
	}

	now := s.clock.Now().UTC()
	data.Data = rundata.AttachCancellation(data.Data, "execution canceled before resume", now)
	data.WorkflowData = nil

	canceled, err := s.store.CancelIfWaiting(ctx, id, now, data)
	if err != nil {
		return nil, err
	}

	if !canceled {
		// Lost the race against a concurrent resume or completion; the later
		// writer won and the record reflects it.
		return nil, &persistence.ExecutionError{
			Op:          "Stop",
			ExecutionID: id,
			Err:         persistence.ErrExecutionNotFound,
			Message:     "execution left the waiting state, nothing to cancel",
		}
	}

	execution.Status = models.ExecutionStatusCanceled
	execution.WaitTill = nil
	execution.StoppedAt = &now

	s.publish(ctx, events.NewExecutionCanceled(execution))

	return execution.Summary(), nil
}

func (s *WaitScheduler) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, event.GetExecutionID(), event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish execution event",
			"event_type", event.GetType(), "error", err)
	}
}
