// Package memory provides an in-memory execution store for tests and local
// development. It mirrors the PostgreSQL implementation's semantics,
// including the wait_till invariant and conditional transitions, without a
// database.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/remora-run/remora/pkg/models"
	"github.com/remora-run/remora/pkg/persistence"
	"github.com/remora-run/remora/pkg/rundata"
)

type record struct {
	execution models.Execution
	dataBytes []byte
	snapshot  *models.WorkflowSnapshot
	metadata  map[string]string
}

// Persistence implements persistence.ExecutionStore in process memory.
type Persistence struct {
	logger            *slog.Logger
	binaryData        persistence.BinaryDataStore
	metadataFiltering bool

	mu      sync.RWMutex
	records map[string]*record
}

// NewPersistence creates an empty in-memory store.
func NewPersistence(logger *slog.Logger, binaryData persistence.BinaryDataStore, metadataFiltering bool) *Persistence {
	if binaryData == nil {
		binaryData = persistence.NoopBinaryDataStore{}
	}

	return &Persistence{
		logger:            logger,
		binaryData:        binaryData,
		metadataFiltering: metadataFiltering,
		records:           make(map[string]*record),
	}
}

func (p *Persistence) CreateExecution(ctx context.Context, execution *models.Execution, data *models.ExecutionData) (string, error) {
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

	dataBytes, err := rundata.Encode(data.Data)
	if err != nil {
		return "", fmt.Errorf("failed to encode run data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.records[execution.ID]; exists {
		return "", persistence.NewExecutionError("Create", execution.ID, persistence.ErrPersistence)
	}

	p.records[execution.ID] = &record{
		execution: *execution,
		dataBytes: dataBytes,
		snapshot:  data.WorkflowData,
		metadata:  make(map[string]string),
	}

	return execution.ID, nil
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string, opts models.GetOptions) (*models.Execution, *models.ExecutionData, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, exists := p.records[id]
	if !exists {
		return nil, nil, persistence.NewExecutionError("Get", id, persistence.ErrExecutionNotFound)
	}

	execution := rec.execution

	if !opts.IncludeData && !opts.IncludeWorkflowSnapshot {
		return &execution, nil, nil
	}

	data := &models.ExecutionData{ExecutionID: id}

	if opts.IncludeData {
		graph, err := rundata.Decode(rec.dataBytes)
		if err != nil {
			return nil, nil, persistence.NewExecutionError("Get", id, err)
		}

		data.Data = graph
	}

	if opts.IncludeWorkflowSnapshot {
		data.WorkflowData = rec.snapshot
	}

	return &execution, data, nil
}

// UpdateExecution applies a partial update. Validation and encoding happen
// before the record is touched, so a rejected request leaves the record
// exactly as it was.
func (p *Persistence) UpdateExecution(ctx context.Context, id string, params models.UpdateExecutionParams) error {
	if params.IsEmpty() {
		return persistence.NewExecutionError("Update", id,
			fmt.Errorf("%w: empty update", persistence.ErrInvalidRequest))
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

	var dataBytes []byte

	if params.Data != nil {
		var err error

		dataBytes, err = rundata.Encode(params.Data.Data)
		if err != nil {
			return fmt.Errorf("failed to encode run data: %w", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, exists := p.records[id]
	if !exists {
		return persistence.NewExecutionError("Update", id, persistence.ErrExecutionNotFound)
	}

	if params.Status != nil {
		rec.execution.Status = *params.Status

		if *params.Status == models.ExecutionStatusWaiting {
			rec.execution.WaitTill = params.WaitTill
		} else {
			rec.execution.WaitTill = nil
		}
	} else if params.ClearWaitTill {
		rec.execution.WaitTill = nil
	}

	if params.StoppedAt != nil {
		rec.execution.StoppedAt = params.StoppedAt
	}

	if params.Finished != nil {
		rec.execution.Finished = *params.Finished
	}

	if params.RetrySuccessID != nil {
		rec.execution.RetrySuccessID = params.RetrySuccessID
	}

	if params.Data != nil {
		rec.dataBytes = dataBytes

		if params.Data.WorkflowData != nil {
			rec.snapshot = params.Data.WorkflowData
		}
	}

	for key, value := range params.Metadata {
		rec.metadata[key] = value
	}

	return nil
}

func (p *Persistence) SearchExecutions(ctx context.Context, filter models.ExecutionFilter, cursor models.Cursor, accessScope []string) ([]*models.ExecutionSummary, error) {
	if accessScope != nil && len(accessScope) == 0 {
		return []*models.ExecutionSummary{}, nil
	}

	if len(filter.Metadata) > 0 && !p.metadataFiltering {
		return nil, fmt.Errorf("%w: metadata filtering is not enabled", persistence.ErrInvalidRequest)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	summaries := make([]*models.ExecutionSummary, 0)

	for _, rec := range p.records {
		if !p.matches(rec, filter, cursor, accessScope) {
			continue
		}

		summaries = append(summaries, rec.execution.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].StartedAt.Equal(summaries[j].StartedAt) {
			return summaries[i].ID > summaries[j].ID
		}

		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})

	limit := cursor.Limit
	if limit <= 0 {
		limit = 50
	}

	if limit > 500 {
		limit = 500
	}

	if len(summaries) > limit {
		summaries = summaries[:limit]
	}

	return summaries, nil
}

func (p *Persistence) matches(rec *record, filter models.ExecutionFilter, cursor models.Cursor, accessScope []string) bool {
	execution := &rec.execution

	if accessScope != nil {
		inScope := false

		for _, workflowID := range accessScope {
			if execution.WorkflowID == workflowID {
				inScope = true

				break
			}
		}

		if !inScope {
			return false
		}
	}

	if len(filter.Statuses) > 0 {
		matched := false

		for _, status := range filter.Statuses {
			if execution.Status == status {
				matched = true

				break
			}
		}

		if !matched {
			return false
		}
	}

	if filter.Finished != nil && execution.Finished != *filter.Finished {
		return false
	}

	if filter.WorkflowID != "" && execution.WorkflowID != filter.WorkflowID {
		return false
	}

	if filter.StartedAfter != nil && execution.StartedAt.Before(*filter.StartedAfter) {
		return false
	}

	if filter.StartedBefore != nil && execution.StartedAt.After(*filter.StartedBefore) {
		return false
	}

	for key, value := range filter.Metadata {
		if rec.metadata[key] != value {
			return false
		}
	}

	if cursor.BeforeID != "" && execution.ID >= cursor.BeforeID {
		return false
	}

	if cursor.AfterID != "" && execution.ID <= cursor.AfterID {
		return false
	}

	return true
}

func (p *Persistence) DeleteExecution(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.records[id]; !exists {
		return persistence.NewExecutionError("Delete", id, persistence.ErrExecutionNotFound)
	}

	p.cleanupBinaryData(ctx, id)
	delete(p.records, id)

	return nil
}

func (p *Persistence) DeleteExecutions(ctx context.Context, req models.DeleteRequest, accessScope []string) (int, error) {
	if req.DeleteBefore == nil && len(req.IDs) == 0 {
		return 0, fmt.Errorf("%w: bulk delete requires a cutoff timestamp or an id list", persistence.ErrInvalidRequest)
	}

	if accessScope != nil && len(accessScope) == 0 {
		return 0, nil
	}

	filter := models.ExecutionFilter{}
	if req.Filter != nil {
		filter = *req.Filter
	}

	if req.DeleteBefore != nil {
		filter.StartedBefore = req.DeleteBefore
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var ids []string

	for id, rec := range p.records {
		if len(req.IDs) > 0 && !contains(req.IDs, id) {
			continue
		}

		if !p.matches(rec, filter, models.Cursor{}, accessScope) {
			continue
		}

		ids = append(ids, id)
	}

	for _, id := range ids {
		p.cleanupBinaryData(ctx, id)
		delete(p.records, id)
	}

	return len(ids), nil
}

func (p *Persistence) WaitingExecutions(ctx context.Context, until time.Time) ([]*models.Execution, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	executions := make([]*models.Execution, 0)

	for _, rec := range p.records {
		if rec.execution.Status != models.ExecutionStatusWaiting || rec.execution.WaitTill == nil {
			continue
		}

		if rec.execution.WaitTill.After(until) {
			continue
		}

		execution := rec.execution
		executions = append(executions, &execution)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].WaitTill.Before(*executions[j].WaitTill)
	})

	return executions, nil
}

func (p *Persistence) ClaimForResume(ctx context.Context, id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, exists := p.records[id]
	if !exists || rec.execution.Status != models.ExecutionStatusWaiting {
		return false, nil
	}

	rec.execution.Status = models.ExecutionStatusRunning
	rec.execution.WaitTill = nil

	return true, nil
}

func (p *Persistence) CancelIfWaiting(ctx context.Context, id string, stoppedAt time.Time, data *models.ExecutionData) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, exists := p.records[id]
	if !exists || rec.execution.Status != models.ExecutionStatusWaiting {
		return false, nil
	}

	rec.execution.Status = models.ExecutionStatusCanceled
	rec.execution.WaitTill = nil
	rec.execution.StoppedAt = &stoppedAt
	rec.execution.Finished = false

	if data != nil {
		dataBytes, err := rundata.Encode(data.Data)
		if err != nil {
			return false, fmt.Errorf("failed to encode run data: %w", err)
		}

		rec.dataBytes = dataBytes
	}

	return true, nil
}

func (p *Persistence) MarkStaleCrashed(ctx context.Context, olderThan time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	crashed := 0

	for _, rec := range p.records {
		status := rec.execution.Status
		if status != models.ExecutionStatusNew && status != models.ExecutionStatusRunning {
			continue
		}

		if !rec.execution.StartedAt.Before(olderThan) {
			continue
		}

		rec.execution.Status = models.ExecutionStatusCrashed
		rec.execution.WaitTill = nil
		rec.execution.StoppedAt = &now
		crashed++
	}

	return crashed, nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return nil
}

func (p *Persistence) Close(ctx context.Context) error {
	return nil
}

func (p *Persistence) cleanupBinaryData(ctx context.Context, id string) {
	err := p.binaryData.DeleteByExecutionID(ctx, id)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to delete binary data for execution",
			"execution_id", id, "error", err)
	}
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}

	return false
}

var _ persistence.ExecutionStore = (*Persistence)(nil)
