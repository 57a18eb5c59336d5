// Package postgresql provides the PostgreSQL persistence implementation for
// resumable executions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/remora-run/remora/pkg/models"
	"github.com/remora-run/remora/pkg/persistence"
	"github.com/remora-run/remora/pkg/persistence/sqlbase"
)

// Persistence implements persistence.ExecutionStore on PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	executionRepo *ExecutionRepository
}

// Option configures optional store behavior.
type Option func(*config)

type config struct {
	binaryData        persistence.BinaryDataStore
	metadataFiltering bool
}

// WithBinaryDataStore sets the external binary payload store whose deletion
// hook runs before execution rows are removed.
func WithBinaryDataStore(store persistence.BinaryDataStore) Option {
	return func(c *config) {
		c.binaryData = store
	}
}

// WithMetadataFiltering enables metadata key/value predicates in search and
// bulk-delete filters.
func WithMetadataFiltering() Option {
	return func(c *config) {
		c.metadataFiltering = true
	}
}

// NewPersistence creates a new PostgreSQL persistence layer and runs schema
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, opts ...Option) (*Persistence, error) {
	cfg := config{binaryData: persistence.NoopBinaryDataStore{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	executionRepo := NewExecutionRepository(database, logger, cfg.binaryData, cfg.metadataFiltering)

	postgres := &Persistence{
		db:            database,
		logger:        logger,
		executionRepo: executionRepo,
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// ExecutionRepository exposes the underlying repository, mainly for tests.
func (p *Persistence) ExecutionRepository() *ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) CreateExecution(ctx context.Context, execution *models.Execution, data *models.ExecutionData) (string, error) {
	return p.executionRepo.Create(ctx, execution, data)
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string, opts models.GetOptions) (*models.Execution, *models.ExecutionData, error) {
	return p.executionRepo.GetByID(ctx, id, opts)
}

func (p *Persistence) UpdateExecution(ctx context.Context, id string, params models.UpdateExecutionParams) error {
	return p.executionRepo.Update(ctx, id, params)
}

func (p *Persistence) SearchExecutions(ctx context.Context, filter models.ExecutionFilter, cursor models.Cursor, accessScope []string) ([]*models.ExecutionSummary, error) {
	return p.executionRepo.Search(ctx, filter, cursor, accessScope)
}

func (p *Persistence) DeleteExecution(ctx context.Context, id string) error {
	return p.executionRepo.Delete(ctx, id)
}

func (p *Persistence) DeleteExecutions(ctx context.Context, req models.DeleteRequest, accessScope []string) (int, error) {
	return p.executionRepo.DeleteMany(ctx, req, accessScope)
}

func (p *Persistence) WaitingExecutions(ctx context.Context, until time.Time) ([]*models.Execution, error) {
	return p.executionRepo.Waiting(ctx, until)
}

func (p *Persistence) ClaimForResume(ctx context.Context, id string) (bool, error) {
	return p.executionRepo.ClaimForResume(ctx, id)
}

func (p *Persistence) CancelIfWaiting(ctx context.Context, id string, stoppedAt time.Time, data *models.ExecutionData) (bool, error) {
	return p.executionRepo.CancelIfWaiting(ctx, id, stoppedAt, data)
}

func (p *Persistence) MarkStaleCrashed(ctx context.Context, olderThan time.Time) (int, error) {
	return p.executionRepo.MarkStaleCrashed(ctx, olderThan)
}

var _ persistence.ExecutionStore = (*Persistence)(nil)
