package persistence

import "context"

// BinaryDataStore is the external binary payload storage collaborator. Only
// its deletion hook is consumed here: the store calls it before removing an
// execution's rows, best-effort.
type BinaryDataStore interface {
	DeleteByExecutionID(ctx context.Context, executionID string) error
}

// NoopBinaryDataStore satisfies BinaryDataStore for deployments without
// external binary storage and for tests.
type NoopBinaryDataStore struct{}

func (NoopBinaryDataStore) DeleteByExecutionID(ctx context.Context, executionID string) error {
	return nil
}
