package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/remora-run/remora/pkg/models"
)

// MockExecutionStore is a mock implementation of persistence.ExecutionStore interface.
type MockExecutionStore struct {
	mock.Mock
}

func (m *MockExecutionStore) CreateExecution(ctx context.Context, execution *models.Execution, data *models.ExecutionData) (string, error) {
	args := m.Called(ctx, execution, data)

	return args.String(0), args.Error(1)
}

func (m *MockExecutionStore) ExecutionByID(ctx context.Context, id string, opts models.GetOptions) (*models.Execution, *models.ExecutionData, error) {
	args := m.Called(ctx, id, opts)

	var (
		execution *models.Execution
		data      *models.ExecutionData
	)

	if args.Get(0) != nil {
		execution = args.Get(0).(*models.Execution)
	}

	if args.Get(1) != nil {
		data = args.Get(1).(*models.ExecutionData)
	}

	return execution, data, args.Error(2)
}

func (m *MockExecutionStore) UpdateExecution(ctx context.Context, id string, params models.UpdateExecutionParams) error {
	args := m.Called(ctx, id, params)

	return args.Error(0)
}

func (m *MockExecutionStore) SearchExecutions(ctx context.Context, filter models.ExecutionFilter, cursor models.Cursor, accessScope []string) ([]*models.ExecutionSummary, error) {
	args := m.Called(ctx, filter, cursor, accessScope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ExecutionSummary), args.Error(1)
}

func (m *MockExecutionStore) DeleteExecution(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockExecutionStore) DeleteExecutions(ctx context.Context, req models.DeleteRequest, accessScope []string) (int, error) {
	args := m.Called(ctx, req, accessScope)

	return args.Int(0), args.Error(1)
}

func (m *MockExecutionStore) WaitingExecutions(ctx context.Context, until time.Time) ([]*models.Execution, error) {
	args := m.Called(ctx, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Execution), args.Error(1)
}

func (m *MockExecutionStore) ClaimForResume(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)

	return args.Bool(0), args.Error(1)
}

func (m *MockExecutionStore) CancelIfWaiting(ctx context.Context, id string, stoppedAt time.Time, data *models.ExecutionData) (bool, error) {
	args := m.Called(ctx, id, stoppedAt, data)

	return args.Bool(0), args.Error(1)
}

func (m *MockExecutionStore) MarkStaleCrashed(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)

	return args.Int(0), args.Error(1)
}

func (m *MockExecutionStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockExecutionStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
