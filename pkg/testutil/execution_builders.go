// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/remora-run/remora/pkg/models"
	"github.com/remora-run/remora/pkg/rundata"
)

// CreateTestExecution creates a test Execution with default values that can be
// overridden.
func CreateTestExecution(overrides ...func(*models.Execution)) *models.Execution {
	now := time.Now().UTC().Truncate(time.Millisecond)

	execution := &models.Execution{
		WorkflowID: uuid.New().String(),
		Mode:       models.ExecutionModeManual,
		Status:     models.ExecutionStatusRunning,
		StartedAt:  now,
		CreatedAt:  now,
	}

	for _, override := range overrides {
		override(execution)
	}

	return execution
}

// WithID sets the execution ID.
func WithID(id string) func(*models.Execution) {
	return func(e *models.Execution) {
		e.ID = id
	}
}

// WithWorkflowID sets the workflow the execution belongs to.
func WithWorkflowID(workflowID string) func(*models.Execution) {
	return func(e *models.Execution) {
		e.WorkflowID = workflowID
	}
}

// WithMode sets how the execution was triggered.
func WithMode(mode models.ExecutionMode) func(*models.Execution) {
	return func(e *models.Execution) {
		e.Mode = mode
	}
}

// WithStatus sets the execution status.
func WithStatus(status models.ExecutionStatus) func(*models.Execution) {
	return func(e *models.Execution) {
		e.Status = status

		if status != models.ExecutionStatusWaiting {
			e.WaitTill = nil
		}
	}
}

// WithWaiting puts the execution into the waiting state until the given time.
func WithWaiting(waitTill time.Time) func(*models.Execution) {
	return func(e *models.Execution) {
		e.Status = models.ExecutionStatusWaiting
		e.WaitTill = &waitTill
	}
}

// WithStartedAt sets the execution start time.
func WithStartedAt(startedAt time.Time) func(*models.Execution) {
	return func(e *models.Execution) {
		e.StartedAt = startedAt
	}
}

// WithFinished marks the execution as finished.
func WithFinished(finished bool) func(*models.Execution) {
	return func(e *models.Execution) {
		e.Finished = finished
	}
}

// CreateTestExecutionData creates a companion data record with a small run
// data graph and a valid workflow snapshot for the given workflow.
func CreateTestExecutionData(workflowID string) *models.ExecutionData {
	root := rundata.Object().Set("resultData",
		rundata.Object().Set("lastNodeExecuted", rundata.String("node-1")))

	return &models.ExecutionData{
		Data:         root,
		WorkflowData: CreateTestSnapshot(workflowID),
	}
}

// CreateTestSnapshot creates a minimal valid workflow snapshot.
func CreateTestSnapshot(workflowID string) *models.WorkflowSnapshot {
	return &models.WorkflowSnapshot{
		ID:     workflowID,
		Name:   "Test Workflow",
		Nodes:  json.RawMessage(`[{"id":"node-1","type":"wait"}]`),
		Wiring: json.RawMessage(`[]`),
	}
}

// CreateTestRunData creates a run data graph containing shared references: the
// same child object is reachable from two keys of the root.
func CreateTestRunData() *rundata.Value {
	shared := rundata.Object().Set("value", rundata.Number(42))

	root := rundata.Object()
	root.Set("first", shared)
	root.Set("second", shared)

	return root
}
