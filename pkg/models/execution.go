// Package models defines the core domain models for resumable workflow executions.
package models

import (
	"time"

	"github.com/remora-run/remora/pkg/rundata"
)

// ExecutionStatus represents the lifecycle state of an execution.
type ExecutionStatus string

const (
	ExecutionStatusNew      ExecutionStatus = "new"
	ExecutionStatusRunning  ExecutionStatus = "running"
	ExecutionStatusSuccess  ExecutionStatus = "success"
	ExecutionStatusError    ExecutionStatus = "error"
	ExecutionStatusCanceled ExecutionStatus = "canceled"
	ExecutionStatusCrashed  ExecutionStatus = "crashed"
	ExecutionStatusWaiting  ExecutionStatus = "waiting"
)

// IsTerminal reports whether the status is a final state for the run.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSuccess, ExecutionStatusError, ExecutionStatusCanceled, ExecutionStatusCrashed:
		return true
	default:
		return false
	}
}

// ExecutionMode represents how an execution was triggered.
type ExecutionMode string

const (
	ExecutionModeManual   ExecutionMode = "manual"
	ExecutionModeTrigger  ExecutionMode = "trigger"
	ExecutionModeWebhook  ExecutionMode = "webhook"
	ExecutionModeRetry    ExecutionMode = "retry"
	ExecutionModeInternal ExecutionMode = "internal"
)

// Execution is one attempt to run a workflow. WaitTill is set exactly while
// the execution is in ExecutionStatusWaiting; every transition out of waiting
// clears it.
type Execution struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"    validate:"required"`
	Mode           ExecutionMode   `json:"mode"           validate:"required,oneof=manual trigger webhook retry internal"`
	Status         ExecutionStatus `json:"status"         validate:"required,oneof=new running success error canceled crashed waiting"`
	StartedAt      time.Time       `json:"started_at"`
	StoppedAt      *time.Time      `json:"stopped_at,omitempty"`
	WaitTill       *time.Time      `json:"wait_till,omitempty"`
	Finished       bool            `json:"finished"`
	RetryOf        *string         `json:"retry_of,omitempty"`
	RetrySuccessID *string         `json:"retry_success_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ExecutionData is the 1:1 companion of an Execution: the interpreter's
// working state plus a snapshot of the workflow definition taken when the run
// started, so later edits to the workflow cannot change a run in flight.
type ExecutionData struct {
	ExecutionID  string            `json:"execution_id"`
	Data         *rundata.Value    `json:"data"`
	WorkflowData *WorkflowSnapshot `json:"workflow_data"`
}

// ExecutionMetadataEntry is a free-form key/value pair attached to an
// execution by the interpreter for later filtering.
type ExecutionMetadataEntry struct {
	ExecutionID string `json:"execution_id"`
	Key         string `json:"key"   validate:"required,max=255"`
	Value       string `json:"value" validate:"max=1024"`
}

// ExecutionSummary is the listing projection of an Execution: everything but
// the large data columns.
type ExecutionSummary struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflow_id"`
	Mode       ExecutionMode   `json:"mode"`
	Status     ExecutionStatus `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	StoppedAt  *time.Time      `json:"stopped_at,omitempty"`
	WaitTill   *time.Time      `json:"wait_till,omitempty"`
	Finished   bool            `json:"finished"`
}

// Summary returns the listing projection of the execution.
func (e *Execution) Summary() *ExecutionSummary {
	return &ExecutionSummary{
		ID:         e.ID,
		WorkflowID: e.WorkflowID,
		Mode:       e.Mode,
		Status:     e.Status,
		StartedAt:  e.StartedAt,
		StoppedAt:  e.StoppedAt,
		WaitTill:   e.WaitTill,
		Finished:   e.Finished,
	}
}
