package retention_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remora-run/remora/pkg/models"
	"github.com/remora-run/remora/pkg/persistence/memory"
	"github.com/remora-run/remora/pkg/retention"
	"github.com/remora-run/remora/pkg/testutil"
)

func newPrunerFixture(t *testing.T, maxAge time.Duration) (*retention.Pruner, *memory.Persistence, *clockwork.FakeClock) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := memory.NewPersistence(logger, nil, false)
	clock := clockwork.NewFakeClock()

	pruner := retention.NewPruner(store, logger, clock, retention.Config{MaxAge: maxAge})

	return pruner, store, clock
}

func createExecution(t *testing.T, store *memory.Persistence, overrides ...func(*models.Execution)) *models.Execution {
	t.Helper()

	execution := testutil.CreateTestExecution(overrides...)

	_, err := store.CreateExecution(context.Background(), execution, testutil.CreateTestExecutionData(execution.WorkflowID))
	require.NoError(t, err)

	return execution
}

func TestPruner_RemovesOldTerminalExecutions(t *testing.T) {
	pruner, store, clock := newPrunerFixture(t, 24*time.Hour)
	ctx := context.Background()

	old := clock.Now().UTC().Add(-48 * time.Hour)

	expired := createExecution(t, store,
		testutil.WithStartedAt(old),
		testutil.WithStatus(models.ExecutionStatusSuccess))
	alsoExpired := createExecution(t, store,
		testutil.WithStartedAt(old),
		testutil.WithStatus(models.ExecutionStatusCrashed))
	recent := createExecution(t, store,
		testutil.WithStartedAt(clock.Now().UTC()),
		testutil.WithStatus(models.ExecutionStatusSuccess))

	deleted := pruner.Prune(ctx)
	assert.Equal(t, 2, deleted)

	for _, id := range []string{expired.ID, alsoExpired.ID} {
		_, _, err := store.ExecutionByID(ctx, id, models.GetOptions{})
		assert.Error(t, err)
	}

	_, _, err := store.ExecutionByID(ctx, recent.ID, models.GetOptions{})
	assert.NoError(t, err)
}

func TestPruner_SparesNonTerminalExecutions(t *testing.T) {
	pruner, store, clock := newPrunerFixture(t, 24*time.Hour)
	ctx := context.Background()

	old := clock.Now().UTC().Add(-72 * time.Hour)

	running := createExecution(t, store, testutil.WithStartedAt(old))
	waiting := createExecution(t, store,
		testutil.WithStartedAt(old),
		testutil.WithWaiting(clock.Now().Add(time.Hour)))

	deleted := pruner.Prune(ctx)
	assert.Zero(t, deleted)

	for _, id := range []string{running.ID, waiting.ID} {
		_, _, err := store.ExecutionByID(ctx, id, models.GetOptions{})
		assert.NoError(t, err)
	}
}

func TestPruner_CutoffTracksClock(t *testing.T) {
	pruner, store, clock := newPrunerFixture(t, time.Hour)
	ctx := context.Background()

	execution := createExecution(t, store,
		testutil.WithStartedAt(clock.Now().UTC()),
		testutil.WithStatus(models.ExecutionStatusError))

	assert.Zero(t, pruner.Prune(ctx))

	// Once the clock moves past the retention window the same execution goes.
	clock.Advance(2 * time.Hour)

	assert.Equal(t, 1, pruner.Prune(ctx))

	_, _, err := store.ExecutionByID(ctx, execution.ID, models.GetOptions{})
	assert.Error(t, err)
}
