// Package persistence provides the data storage abstraction layer for
// resumable executions.
package persistence

import (
	"context"
	"time"

	"github.com/remora-run/remora/pkg/models"
)

// ExecutionStore is the sole reader and writer of execution records, their
// 1:1 data records, and their metadata entries. Implementations enforce the
// data-model invariants: record and data row are written together, and
// wait_till is set exactly while the status is waiting.
type ExecutionStore interface {
	// CreateExecution inserts the record and its data record in one
	// transaction and returns the generated execution id.
	CreateExecution(ctx context.Context, execution *models.Execution, data *models.ExecutionData) (string, error)

	// ExecutionByID returns one execution. The large data and workflow
	// snapshot columns are fetched only when the options ask for them.
	ExecutionByID(ctx context.Context, id string, opts models.GetOptions) (*models.Execution, *models.ExecutionData, error)

	// UpdateExecution applies a partial update transactionally. Updating an
	// unknown id fails with ErrExecutionNotFound.
	UpdateExecution(ctx context.Context, id string, params models.UpdateExecutionParams) error

	// SearchExecutions lists execution summaries matching the filter,
	// restricted to the caller-visible workflow ids. An empty non-nil
	// access scope returns an empty list without querying the store; a nil
	// scope marks a trusted internal caller with no restriction.
	SearchExecutions(ctx context.Context, filter models.ExecutionFilter, cursor models.Cursor, accessScope []string) ([]*models.ExecutionSummary, error)

	// DeleteExecution removes one execution, its data record, and its
	// metadata, after requesting best-effort binary payload cleanup.
	DeleteExecution(ctx context.Context, id string) error

	// DeleteExecutions is the bulk variant; the request must carry a cutoff
	// timestamp or an explicit id list.
	DeleteExecutions(ctx context.Context, req models.DeleteRequest, accessScope []string) (int, error)

	// WaitingExecutions returns all waiting executions due at or before the
	// given instant, excluding crashed ones. Feeds the scheduler sweep.
	WaitingExecutions(ctx context.Context, until time.Time) ([]*models.Execution, error)

	// ClaimForResume conditionally transitions waiting -> running and
	// reports whether this caller won the claim. The affected-row count is
	// the single-winner signal when several schedulers race on one store.
	ClaimForResume(ctx context.Context, id string) (bool, error)

	// CancelIfWaiting conditionally transitions waiting -> canceled, writing
	// the stopped timestamp and the updated run data in one transaction.
	// Reports false when the execution already left the waiting state.
	CancelIfWaiting(ctx context.Context, id string, stoppedAt time.Time, data *models.ExecutionData) (bool, error)

	// MarkStaleCrashed flags executions left in new or running from a
	// previous process life as crashed and returns how many were flagged.
	MarkStaleCrashed(ctx context.Context, olderThan time.Time) (int, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
