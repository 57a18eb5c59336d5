package persistence_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/remora-run/remora/pkg/persistence"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error constants are available", func(t *testing.T) {
		assert.NotNil(t, persistence.ErrExecutionNotFound)
		assert.NotNil(t, persistence.ErrInvalidRequest)
		assert.NotNil(t, persistence.ErrPersistence)
		assert.NotNil(t, persistence.ErrDataIntegrity)
	})

	t.Run("error checking functions work correctly", func(t *testing.T) {
		notFoundErr := persistence.NewExecutionError("Get", "exec-123", persistence.ErrExecutionNotFound)
		integrityErr := persistence.NewExecutionError("Get", "exec-456", persistence.ErrDataIntegrity)

		assert.True(t, persistence.IsExecutionNotFound(notFoundErr))
		assert.True(t, persistence.IsDataIntegrity(integrityErr))
		assert.False(t, persistence.IsInvalidRequest(notFoundErr))

		// Test error unwrapping
		assert.True(t, errors.Is(notFoundErr, persistence.ErrExecutionNotFound))
		assert.True(t, errors.Is(integrityErr, persistence.ErrDataIntegrity))
	})

	t.Run("execution error contains context", func(t *testing.T) {
		err := persistence.NewExecutionError("Update", "exec-123", persistence.ErrExecutionNotFound)

		assert.Contains(t, err.Error(), "Update")
		assert.Contains(t, err.Error(), "exec-123")
		assert.Contains(t, err.Error(), "execution not found")
	})

	t.Run("execution error message is included", func(t *testing.T) {
		err := &persistence.ExecutionError{
			Op:          "Stop",
			ExecutionID: "exec-789",
			Err:         persistence.ErrExecutionNotFound,
			Message:     "execution is not waiting, nothing to cancel",
		}

		assert.Contains(t, err.Error(), "Stop")
		assert.Contains(t, err.Error(), "exec-789")
		assert.Contains(t, err.Error(), "nothing to cancel")
		assert.True(t, errors.Is(err, persistence.ErrExecutionNotFound))
	})
}
