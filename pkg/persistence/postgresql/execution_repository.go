package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/remora-run/remora/pkg/models"
	"github.com/remora-run/remora/pkg/persistence"
	"github.com/remora-run/remora/pkg/rundata"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

var validate = validator.New()

// ExecutionRepository handles execution-related database operations. It is
// the sole writer of the executions, execution_data, and execution_metadata
// tables.
type ExecutionRepository struct {
	db                *sql.DB
	logger            *slog.Logger
	binaryData        persistence.BinaryDataStore
	metadataFiltering bool
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger, binaryData persistence.BinaryDataStore, metadataFiltering bool) *ExecutionRepository {
	return &ExecutionRepository{
		db:                db,
		logger:            logger,
		binaryData:        binaryData,
		metadataFiltering: metadataFiltering,
	}
}

// Create inserts an execution and its 1:1 data record in one transaction and
// returns the execution id. UUIDv7 ids keep the id ordering monotonic, which
// the search cursor relies on.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution, data *models.ExecutionData) (string, error) {
	if data == nil {
		return "", persistence.NewExecutionError("Create", execution.ID, persistence.ErrInvalidRequest)
	}

	if execution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate execution ID: %w", err)
		}

		execution.ID = id.String()
	}

	now := time.Now().UTC()
	if execution.StartedAt.IsZero() {
		execution.StartedAt = now
	}

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	if err := validate.Struct(execution); err != nil {
		return "", persistence.NewExecutionError("Create", execution.ID,
			fmt.Errorf("%w: %s", persistence.ErrInvalidRequest, err.Error()))
	}

	if err := models.ValidateWorkflowSnapshot(data.WorkflowData); err != nil {
		return "", persistence.NewExecutionError("Create", execution.ID,
			fmt.Errorf("%w: %s", persistence.ErrInvalidRequest, err.Error()))
	}

	dataBytes, err := rundata.Encode(data.Data)
	if err != nil {
		return "", fmt.Errorf("failed to encode run data: %w", err)
	}

	workflowJSON, err := json.Marshal(data.WorkflowData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow snapshot: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	executionQuery := `
		INSERT INTO executions (id, workflow_id, mode, status, started_at, stopped_at,
			wait_till, finished, retry_of, retry_success_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = tx.ExecContext(ctx, executionQuery,
		execution.ID,
		execution.WorkflowID,
		execution.Mode,
		execution.Status,
		execution.StartedAt,
		execution.StoppedAt,
		execution.WaitTill,
		execution.Finished,
		execution.RetryOf,
		execution.RetrySuccessID,
		execution.CreatedAt,
	)
	if err != nil {
		return "", persistence.NewExecutionError("Create", execution.ID,
			fmt.Errorf("%w: %s", persistence.ErrPersistence, err.Error()))
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO execution_data (execution_id, data, workflow_data) VALUES ($1, $2, $3)",
		execution.ID, dataBytes, workflowJSON,
	)
	if err != nil {
		return "", persistence.NewExecutionError("Create", execution.ID,
			fmt.Errorf("%w: %s", persistence.ErrPersistence, err.Error()))
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return execution.ID, nil
}

// GetByID returns one execution. The data and workflow snapshot columns are
// only queried when the options ask for them; a requested-but-missing data
// row is a data integrity failure, never a partial result.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string, opts models.GetOptions) (*models.Execution, *models.ExecutionData, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , mode
		  , status
		  , started_at
		  , stopped_at
		  , wait_till
		  , finished
		  , retry_of
		  , retry_success_id
		  , created_at
		FROM executions
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	execution, err := r.scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, persistence.NewExecutionError("Get", id, persistence.ErrExecutionNotFound)
		}

		return nil, nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	if !opts.IncludeData && !opts.IncludeWorkflowSnapshot {
		return execution, nil, nil
	}

	data, err := r.loadExecutionData(ctx, id, opts)
	if err != nil {
		return nil, nil, err
	}

	return execution, data, nil
}

func (r *ExecutionRepository) loadExecutionData(ctx context.Context, id string, opts models.GetOptions) (*models.ExecutionData, error) {
	var (
		dataBytes    []byte
		workflowJSON []byte
		err          error
	)

	switch {
	case opts.IncludeData && opts.IncludeWorkflowSnapshot:
		err = r.db.QueryRowContext(ctx,
			"SELECT data, workflow_data FROM execution_data WHERE execution_id = $1", id).
			Scan(&dataBytes, &workflowJSON)
	case opts.IncludeData:
		err = r.db.QueryRowContext(ctx,
			"SELECT data FROM execution_data WHERE execution_id = $1", id).
			Scan(&dataBytes)
	default:
		err = r.db.QueryRowContext(ctx,
			"SELECT workflow_data FROM execution_data WHERE execution_id = $1", id).
			Scan(&workflowJSON)
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("Get", id, persistence.ErrDataIntegrity)
		}

		return nil, fmt.Errorf("failed to query execution data: %w", err)
	}

	data := &models.ExecutionData{ExecutionID: id}

	if opts.IncludeData {
		data.Data, err = rundata.Decode(dataBytes)
		if err != nil {
			return nil, persistence.NewExecutionError("Get", id, err)
		}
	}

	if opts.IncludeWorkflowSnapshot {
		var snapshot models.WorkflowSnapshot

		err = json.Unmarshal(workflowJSON, &snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow snapshot: %w", err)
		}

		data.WorkflowData = &snapshot
	}

	return data, nil
}

// Update applies a partial update. Status, timestamps, data, and metadata
// changes commit in one transaction or not at all. The row is locked first,
// which both yields a clean not-found signal and strictly orders concurrent
// transitions of the same execution.
func (r *ExecutionRepository) Update(ctx context.Context, id string, params models.UpdateExecutionParams) error {
	if params.IsEmpty() {
		return persistence.NewExecutionError("Update", id,
			fmt.Errorf("%w: empty update", persistence.ErrInvalidRequest))
	}

	if err := validate.Struct(&params); err != nil {
		return persistence.NewExecutionError("Update", id,
			fmt.Errorf("%w: %s", persistence.ErrInvalidRequest, err.Error()))
	}

	if params.Status != nil && *params.Status == models.ExecutionStatusWaiting {
		if params.WaitTill == nil {
			return persistence.NewExecutionError("Update", id,
				fmt.Errorf("%w: waiting status requires wait_till", persistence.ErrInvalidRequest))
		}
	} else if params.WaitTill != nil {
		return persistence.NewExecutionError("Update", id,
			fmt.Errorf("%w: wait_till is only valid with waiting status", persistence.ErrInvalidRequest))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists bool

	err = tx.QueryRowContext(ctx, "SELECT TRUE FROM executions WHERE id = $1 FOR UPDATE", id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.NewExecutionError("Update", id, persistence.ErrExecutionNotFound)
		} else {
			err = fmt.Errorf("failed to lock execution: %w", err)
		}

		return err
	}

	err = r.applyExecutionUpdate(ctx, tx, id, params)
	if err != nil {
		return err
	}

	if params.Data != nil {
		err = r.applyDataUpdate(ctx, tx, id, params.Data)
		if err != nil {
			return err
		}
	}

	if len(params.Metadata) > 0 {
		err = r.applyMetadataUpdate(ctx, tx, id, params.Metadata)
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) applyExecutionUpdate(ctx context.Context, tx *sql.Tx, id string, params models.UpdateExecutionParams) error {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Status != nil {
		addSet("status", *params.Status)

		if *params.Status == models.ExecutionStatusWaiting {
			addSet("wait_till", *params.WaitTill)
		} else {
			// Any transition out of waiting clears the resume timestamp.
			sets = append(sets, "wait_till = NULL")
		}
	} else if params.ClearWaitTill {
		sets = append(sets, "wait_till = NULL")
	}

	if params.StoppedAt != nil {
		addSet("stopped_at", *params.StoppedAt)
	}

	if params.Finished != nil {
		addSet("finished", *params.Finished)
	}

	if params.RetrySuccessID != nil {
		addSet("retry_success_id", *params.RetrySuccessID)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE executions SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	_, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return persistence.NewExecutionError("Update", id,
			fmt.Errorf("%w: %s", persistence.ErrPersistence, err.Error()))
	}

	return nil
}

func (r *ExecutionRepository) applyDataUpdate(ctx context.Context, tx *sql.Tx, id string, data *models.ExecutionData) error {
	dataBytes, err := rundata.Encode(data.Data)
	if err != nil {
		return fmt.Errorf("failed to encode run data: %w", err)
	}

	var result sql.Result

	if data.WorkflowData != nil {
		var workflowJSON []byte

		workflowJSON, err = json.Marshal(data.WorkflowData)
		if err != nil {
			return fmt.Errorf("failed to marshal workflow snapshot: %w", err)
		}

		result, err = tx.ExecContext(ctx,
			"UPDATE execution_data SET data = $1, workflow_data = $2 WHERE execution_id = $3",
			dataBytes, workflowJSON, id)
	} else {
		result, err = tx.ExecContext(ctx,
			"UPDATE execution_data SET data = $1 WHERE execution_id = $2", dataBytes, id)
	}

	if err != nil {
		return persistence.NewExecutionError("Update", id,
			fmt.Errorf("%w: %s", persistence.ErrPersistence, err.Error()))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewExecutionError("Update", id, persistence.ErrDataIntegrity)
	}

	return nil
}

func (r *ExecutionRepository) applyMetadataUpdate(ctx context.Context, tx *sql.Tx, id string, metadata map[string]string) error {
	query := `
		INSERT INTO execution_metadata (execution_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (execution_id, key) DO UPDATE SET value = EXCLUDED.value
	`

	for key, value := range metadata {
		_, err := tx.ExecContext(ctx, query, id, key, value)
		if err != nil {
			return persistence.NewExecutionError("Update", id,
				fmt.Errorf("%w: %s", persistence.ErrPersistence, err.Error()))
		}
	}

	return nil
}

// Search lists execution summaries matching the filter, newest start first.
// The access scope is enforced here at the store boundary: an empty scope
// short-circuits to an empty result without touching the database.
func (r *ExecutionRepository) Search(ctx context.Context, filter models.ExecutionFilter, cursor models.Cursor, accessScope []string) ([]*models.ExecutionSummary, error) {
	if accessScope != nil && len(accessScope) == 0 {
		return []*models.ExecutionSummary{}, nil
	}

	if err := validate.Struct(&cursor); err != nil {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidRequest, err.Error())
	}

	var (
		args  []any
		conds []string
	)

	// A nil scope means an internal caller with no visibility restriction;
	// an empty non-nil scope short-circuited above.
	if accessScope != nil {
		args = append(args, pq.Array(accessScope))
		conds = append(conds, fmt.Sprintf("workflow_id = ANY($%d)", len(args)))
	} else {
		conds = append(conds, "TRUE")
	}

	conds, args, err := r.appendFilterConditions(filter, conds, args)
	if err != nil {
		return nil, err
	}

	if cursor.BeforeID != "" {
		args = append(args, cursor.BeforeID)
		conds = append(conds, fmt.Sprintf("id < $%d", len(args)))
	}

	if cursor.AfterID != "" {
		args = append(args, cursor.AfterID)
		conds = append(conds, fmt.Sprintf("id > $%d", len(args)))
	}

	limit := cursor.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT id, workflow_id, mode, status, started_at, stopped_at, wait_till, finished
		FROM executions
		WHERE %s
		ORDER BY started_at DESC, id DESC
		LIMIT $%d
	`, strings.Join(conds, " AND "), len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	summaries := make([]*models.ExecutionSummary, 0)

	for rows.Next() {
		var summary models.ExecutionSummary

		err := rows.Scan(
			&summary.ID,
			&summary.WorkflowID,
			&summary.Mode,
			&summary.Status,
			&summary.StartedAt,
			&summary.StoppedAt,
			&summary.WaitTill,
			&summary.Finished,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution summary: %w", err)
		}

		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return summaries, nil
}

func (r *ExecutionRepository) appendFilterConditions(filter models.ExecutionFilter, conds []string, args []any) ([]string, []any, error) {
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}

		args = append(args, pq.Array(statuses))
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	if filter.Finished != nil {
		args = append(args, *filter.Finished)
		conds = append(conds, fmt.Sprintf("finished = $%d", len(args)))
	}

	if filter.WorkflowID != "" {
		args = append(args, filter.WorkflowID)
		conds = append(conds, fmt.Sprintf("workflow_id = $%d", len(args)))
	}

	if filter.StartedAfter != nil {
		args = append(args, *filter.StartedAfter)
		conds = append(conds, fmt.Sprintf("started_at >= $%d", len(args)))
	}

	if filter.StartedBefore != nil {
		args = append(args, *filter.StartedBefore)
		conds = append(conds, fmt.Sprintf("started_at <= $%d", len(args)))
	}

	if len(filter.Metadata) > 0 {
		if !r.metadataFiltering {
			return nil, nil, fmt.Errorf("%w: metadata filtering is not enabled", persistence.ErrInvalidRequest)
		}

		for key, value := range filter.Metadata {
			args = append(args, key, value)
			conds = append(conds, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM execution_metadata m WHERE m.execution_id = executions.id AND m.key = $%d AND m.value = $%d)",
				len(args)-1, len(args)))
		}
	}

	return conds, args, nil
}

// Delete removes one execution and, via cascade, its data record and
// metadata. Binary payload cleanup runs first and is best-effort: a failure
// there is logged, not fatal to the delete.
func (r *ExecutionRepository) Delete(ctx context.Context, id string) error {
	var exists bool

	err := r.db.QueryRowContext(ctx, "SELECT TRUE FROM executions WHERE id = $1", id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NewExecutionError("Delete", id, persistence.ErrExecutionNotFound)
		}

		return fmt.Errorf("failed to query execution: %w", err)
	}

	r.cleanupBinaryData(ctx, id)

	_, err = r.db.ExecContext(ctx, "DELETE FROM executions WHERE id = $1", id)
	if err != nil {
		return persistence.NewExecutionError("Delete", id,
			fmt.Errorf("%w: %s", persistence.ErrPersistence, err.Error()))
	}

	return nil
}

// DeleteMany removes all executions matched by an explicit id list or a
// cutoff-plus-filter, restricted to the access scope, and returns how many
// rows went away.
func (r *ExecutionRepository) DeleteMany(ctx context.Context, req models.DeleteRequest, accessScope []string) (int, error) {
	if req.DeleteBefore == nil && len(req.IDs) == 0 {
		return 0, fmt.Errorf("%w: bulk delete requires a cutoff timestamp or an id list", persistence.ErrInvalidRequest)
	}

	if accessScope != nil && len(accessScope) == 0 {
		return 0, nil
	}

	var (
		args  []any
		conds []string
	)

	if accessScope != nil {
		args = append(args, pq.Array(accessScope))
		conds = append(conds, fmt.Sprintf("workflow_id = ANY($%d)", len(args)))
	} else {
		conds = append(conds, "TRUE")
	}

	if len(req.IDs) > 0 {
		args = append(args, pq.Array(req.IDs))
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}

	if req.DeleteBefore != nil {
		args = append(args, *req.DeleteBefore)
		conds = append(conds, fmt.Sprintf("started_at < $%d", len(args)))
	}

	if req.Filter != nil {
		var err error

		conds, args, err = r.appendFilterConditions(*req.Filter, conds, args)
		if err != nil {
			return 0, err
		}
	}

	query := fmt.Sprintf("SELECT id FROM executions WHERE %s", strings.Join(conds, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to query executions for deletion: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var ids []string

	for rows.Next() {
		var id string

		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to scan execution id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating executions: %w", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	for _, id := range ids {
		r.cleanupBinaryData(ctx, id)
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM executions WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", persistence.ErrPersistence, err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

func (r *ExecutionRepository) cleanupBinaryData(ctx context.Context, id string) {
	err := r.binaryData.DeleteByExecutionID(ctx, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to delete binary data for execution",
			"execution_id", id, "error", err)
	}
}

// Waiting returns all waiting executions due at or before the given instant,
// soonest first. Crashed executions never carry wait_till, so the status
// predicate alone excludes them.
func (r *ExecutionRepository) Waiting(ctx context.Context, until time.Time) ([]*models.Execution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , mode
		  , status
		  , started_at
		  , stopped_at
		  , wait_till
		  , finished
		  , retry_of
		  , retry_success_id
		  , created_at
		FROM executions
		WHERE status = 'waiting' AND wait_till <= $1
		ORDER BY wait_till ASC
	`

	rows, err := r.db.QueryContext(ctx, query, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query waiting executions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := r.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waiting executions: %w", err)
	}

	return executions, nil
}

// ClaimForResume conditionally moves an execution from waiting to running.
// The affected-row count is the single-winner signal when multiple scheduler
// processes race on the same store.
func (r *ExecutionRepository) ClaimForResume(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE executions SET status = 'running', wait_till = NULL WHERE id = $1 AND status = 'waiting'", id)
	if err != nil {
		return false, persistence.NewExecutionError("Claim", id,
			fmt.Errorf("%w: %s", persistence.ErrPersistence, err.Error()))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// CancelIfWaiting conditionally moves an execution from waiting to canceled
// and writes the updated run data in the same transaction. Reports false when
// the execution already left the waiting state, so a cancel can never clobber
// a just-completed run.
func (r *ExecutionRepository) CancelIfWaiting(ctx context.Context, id string, stoppedAt time.Time, data *models.ExecutionData) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE executions
		SET status = 'canceled', wait_till = NULL, stopped_at = $2, finished = FALSE
		WHERE id = $1 AND status = 'waiting'
	`, id, stoppedAt)
	if err != nil {
		return false, persistence.NewExecutionError("Cancel", id,
			fmt.Errorf("%w: %s", persistence.ErrPersistence, err.Error()))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		_ = tx.Rollback()

		return false, nil
	}

	if data != nil {
		err = r.applyDataUpdate(ctx, tx, id, data)
		if err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// MarkStaleCrashed flags executions left in new or running before the cutoff
// as crashed. Run once on scheduler startup to account for a previous process
// life that died mid-run.
func (r *ExecutionRepository) MarkStaleCrashed(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE executions
		SET status = 'crashed', wait_till = NULL, stopped_at = NOW()
		WHERE status IN ('new', 'running') AND started_at < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", persistence.ErrPersistence, err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

func (r *ExecutionRepository) scanExecution(scanner interface {
	Scan(dest ...any) error
}) (*models.Execution, error) {
	var execution models.Execution

	err := scanner.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.Mode,
		&execution.Status,
		&execution.StartedAt,
		&execution.StoppedAt,
		&execution.WaitTill,
		&execution.Finished,
		&execution.RetryOf,
		&execution.RetrySuccessID,
		&execution.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &execution, nil
}
