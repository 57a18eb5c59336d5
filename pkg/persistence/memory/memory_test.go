package memory_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remora-run/remora/pkg/models"
	"github.com/remora-run/remora/pkg/persistence"
	"github.com/remora-run/remora/pkg/persistence/memory"
	"github.com/remora-run/remora/pkg/testutil"
)

func newStore(t *testing.T) *memory.Persistence {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	return memory.NewPersistence(logger, nil, false)
}

func create(ctx context.Context, t *testing.T, store *memory.Persistence, overrides ...func(*models.Execution)) *models.Execution {
	t.Helper()

	execution := testutil.CreateTestExecution(overrides...)

	_, err := store.CreateExecution(ctx, execution, testutil.CreateTestExecutionData(execution.WorkflowID))
	require.NoError(t, err)

	return execution
}

func TestMemoryPersistence_CreateAndGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	execution := create(ctx, t, store)

	retrieved, data, err := store.ExecutionByID(ctx, execution.ID, models.GetOptions{IncludeData: true, IncludeWorkflowSnapshot: true})
	require.NoError(t, err)
	assert.Equal(t, execution.WorkflowID, retrieved.WorkflowID)
	require.NotNil(t, data.Data)
	assert.Equal(t, execution.WorkflowID, data.WorkflowData.ID)

	_, _, err = store.ExecutionByID(ctx, "missing", models.GetOptions{})
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestMemoryPersistence_UpdateEnforcesWaitTillInvariant(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	execution := create(ctx, t, store)
	waiting := models.ExecutionStatusWaiting

	err := store.UpdateExecution(ctx, execution.ID, models.UpdateExecutionParams{Status: &waiting})
	require.Error(t, err)
	assert.True(t, persistence.IsInvalidRequest(err))

	waitTill := time.Now().UTC().Add(time.Hour)

	err = store.UpdateExecution(ctx, execution.ID, models.UpdateExecutionParams{WaitTill: &waitTill})
	require.Error(t, err)
	assert.True(t, persistence.IsInvalidRequest(err))

	err = store.UpdateExecution(ctx, execution.ID, models.UpdateExecutionParams{
		Status:   &waiting,
		WaitTill: &waitTill,
	})
	require.NoError(t, err)

	success := models.ExecutionStatusSuccess

	err = store.UpdateExecution(ctx, execution.ID, models.UpdateExecutionParams{Status: &success})
	require.NoError(t, err)

	retrieved, _, err := store.ExecutionByID(ctx, execution.ID, models.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, retrieved.WaitTill)
}

func TestMemoryPersistence_RejectedUpdateLeavesRecordUntouched(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	execution := create(ctx, t, store)
	waiting := models.ExecutionStatusWaiting

	err := store.UpdateExecution(ctx, execution.ID, models.UpdateExecutionParams{Status: &waiting})
	require.Error(t, err)
	assert.True(t, persistence.IsInvalidRequest(err))

	retrieved, _, err := store.ExecutionByID(ctx, execution.ID, models.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, retrieved.Status)
	assert.Nil(t, retrieved.WaitTill)

	stoppedAt := time.Now().UTC()
	waitTill := time.Now().UTC().Add(time.Hour)

	err = store.UpdateExecution(ctx, execution.ID, models.UpdateExecutionParams{
		StoppedAt: &stoppedAt,
		WaitTill:  &waitTill,
	})
	require.Error(t, err)
	assert.True(t, persistence.IsInvalidRequest(err))

	retrieved, _, err = store.ExecutionByID(ctx, execution.ID, models.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, retrieved.Status)
	assert.Nil(t, retrieved.StoppedAt)
	assert.Nil(t, retrieved.WaitTill)
}

func TestMemoryPersistence_ClaimForResume(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	execution := create(ctx, t, store, testutil.WithWaiting(time.Now().Add(time.Minute)))

	claimed, err := store.ClaimForResume(ctx, execution.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.ClaimForResume(ctx, execution.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	retrieved, _, err := store.ExecutionByID(ctx, execution.ID, models.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, retrieved.Status)
	assert.Nil(t, retrieved.WaitTill)
}

func TestMemoryPersistence_CancelIfWaiting(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	waiting := create(ctx, t, store, testutil.WithWaiting(time.Now().Add(time.Hour)))
	running := create(ctx, t, store)

	canceled, err := store.CancelIfWaiting(ctx, waiting.ID, time.Now().UTC(), nil)
	require.NoError(t, err)
	assert.True(t, canceled)

	canceled, err = store.CancelIfWaiting(ctx, running.ID, time.Now().UTC(), nil)
	require.NoError(t, err)
	assert.False(t, canceled)
}

func TestMemoryPersistence_SearchScope(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first := create(ctx, t, store)
	create(ctx, t, store)

	all, err := store.SearchExecutions(ctx, models.ExecutionFilter{}, models.Cursor{}, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := store.SearchExecutions(ctx, models.ExecutionFilter{}, models.Cursor{}, []string{first.WorkflowID})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, first.ID, scoped[0].ID)

	none, err := store.SearchExecutions(ctx, models.ExecutionFilter{}, models.Cursor{}, []string{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryPersistence_WaitingExecutions(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	now := time.Now().UTC()

	due := create(ctx, t, store, testutil.WithWaiting(now.Add(-time.Minute)))
	create(ctx, t, store, testutil.WithWaiting(now.Add(time.Hour)))

	waiting, err := store.WaitingExecutions(ctx, now)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, due.ID, waiting[0].ID)
}
