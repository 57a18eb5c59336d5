// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"context"
	"log/slog"

	"github.com/remora-run/remora/pkg/persistence"
	"github.com/remora-run/remora/pkg/persistence/postgresql"
)

// NewPersistence creates the execution store for the given database URL.
// PostgreSQL is the only supported backend; anything else is a startup
// configuration error.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, opts ...postgresql.Option) persistence.ExecutionStore {
	store, err := postgresql.NewPersistence(ctx, logger, databaseURL, opts...)
	if err != nil {
		panic(err)
	}

	return store
}
