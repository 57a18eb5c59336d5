// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrExecutionNotFound indicates no execution exists for the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrInvalidRequest indicates a malformed request, e.g. a bulk delete
	// carrying neither a cutoff timestamp nor an id list.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrPersistence indicates the underlying store rejected a write.
	ErrPersistence = errors.New("persistence failure")

	// ErrDataIntegrity indicates an execution record whose 1:1 data record
	// is missing.
	ErrDataIntegrity = errors.New("execution data record missing")
)

// ExecutionError wraps execution-related errors with additional context.
type ExecutionError struct {
	Op          string // Operation being performed (e.g., "Create", "Update", "Delete")
	ExecutionID string // Execution ID if applicable
	Err         error  // Underlying error
	Message     string // Additional context message
}

func (e *ExecutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for execution %s: %s (%v)", e.Op, e.ExecutionID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for execution errors.
func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates a new execution error with context.
func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{
		Op:          op,
		ExecutionID: executionID,
		Err:         err,
	}
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsInvalidRequest checks if an error indicates a malformed request.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsDataIntegrity checks if an error indicates a missing data record.
func IsDataIntegrity(err error) bool {
	return errors.Is(err, ErrDataIntegrity)
}
