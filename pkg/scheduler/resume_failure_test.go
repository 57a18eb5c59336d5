package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/remora-run/remora/pkg/mocks"
	"github.com/remora-run/remora/pkg/models"
	"github.com/remora-run/remora/pkg/scheduler"
	"github.com/remora-run/remora/pkg/testutil"
)

func newMockFixture(t *testing.T, store *mocks.MockExecutionStore) (*scheduler.WaitScheduler, *fakeRunner, *clockwork.FakeClock) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	runner := &fakeRunner{}
	clock := clockwork.NewFakeClock()

	s := scheduler.NewWaitScheduler(store, runner, &fakeOwners{owner: "owner-1"}, nil, logger, clock, scheduler.Config{
		SweepInterval: 60 * time.Second,
		Lookahead:     70 * time.Second,
	})

	t.Cleanup(func() {
		err := s.Stop(context.Background())
		require.NoError(t, err)
	})

	return s, runner, clock
}

func TestWaitScheduler_ResumeAbortsOnMissingSnapshot(t *testing.T) {
	execution := testutil.CreateTestExecution(testutil.WithID("exec-1"))
	waitTill := time.Now().Add(time.Second)
	execution.Status = models.ExecutionStatusWaiting
	execution.WaitTill = &waitTill

	store := &mocks.MockExecutionStore{}
	store.On("WaitingExecutions", mock.Anything, mock.Anything).
		Return([]*models.Execution{execution}, nil)
	store.On("ClaimForResume", mock.Anything, "exec-1").Return(true, nil)

	loaded := make(chan struct{}, 1)

	// A snapshot that was never persisted with an id cannot be resumed.
	store.On("ExecutionByID", mock.Anything, "exec-1", mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}).
		Return(execution, &models.ExecutionData{ExecutionID: "exec-1"}, nil)

	s, runner, clock := newMockFixture(t, store)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool {
		return s.IsArmed("exec-1")
	}, 2*time.Second, 10*time.Millisecond)

	clock.Advance(2 * time.Second)

	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("execution was never loaded for resume")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runner.count())
}

func TestWaitScheduler_ResumeAbortsOnClaimError(t *testing.T) {
	execution := testutil.CreateTestExecution(testutil.WithID("exec-2"))
	waitTill := time.Now().Add(time.Second)
	execution.Status = models.ExecutionStatusWaiting
	execution.WaitTill = &waitTill

	store := &mocks.MockExecutionStore{}
	store.On("WaitingExecutions", mock.Anything, mock.Anything).
		Return([]*models.Execution{execution}, nil)
	claimed := make(chan struct{}, 1)

	store.On("ClaimForResume", mock.Anything, "exec-2").
		Run(func(mock.Arguments) {
			select {
			case claimed <- struct{}{}:
			default:
			}
		}).
		Return(false, errors.New("connection refused"))

	s, runner, clock := newMockFixture(t, store)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool {
		return s.IsArmed("exec-2")
	}, 2*time.Second, 10*time.Millisecond)

	clock.Advance(2 * time.Second)

	select {
	case <-claimed:
	case <-time.After(2 * time.Second):
		t.Fatal("claim was never attempted")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runner.count())
	store.AssertNotCalled(t, "ExecutionByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestWaitScheduler_SweepToleratesStoreErrors(t *testing.T) {
	store := &mocks.MockExecutionStore{}
	store.On("WaitingExecutions", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	s, runner, _ := newMockFixture(t, store)

	// A failing sweep is logged and retried next tick, never fatal.
	s.Sweep(context.Background())
	s.Sweep(context.Background())

	assert.Zero(t, runner.count())
}
