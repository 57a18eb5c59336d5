// Package events defines event types and structures for execution lifecycle
// notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/remora-run/remora/pkg/models"
)

type EventType string

// Topic is the stream executions lifecycle events are published to.
const Topic = "remora.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent         EventType = "execution.started"
	ExecutionWaitingEvent         EventType = "execution.waiting"
	ExecutionResumeRequestedEvent EventType = "execution.resume.requested"
	ExecutionResumedEvent         EventType = "execution.resumed"
	ExecutionCanceledEvent        EventType = "execution.canceled"
	ExecutionCrashedEvent         EventType = "execution.crashed"
	ExecutionDeletedEvent         EventType = "execution.deleted"
)

// Event is implemented by every execution lifecycle event.
type Event interface {
	GetType() EventType
	GetExecutionID() string
}

// Publisher publishes lifecycle events, best-effort. The scheduler and the
// retention pruner tolerate a nil Publisher and a failing one equally.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
}

func (b BaseEvent) GetType() EventType {
	return b.Type
}

func (b BaseEvent) GetExecutionID() string {
	return b.ExecutionID
}

func newBaseEvent(eventType EventType, executionID, workflowID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: executionID,
		WorkflowID:  workflowID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	Mode models.ExecutionMode `json:"mode"`
}

func NewExecutionStarted(execution *models.Execution) *ExecutionStarted {
	return &ExecutionStarted{
		BaseEvent: newBaseEvent(ExecutionStartedEvent, execution.ID, execution.WorkflowID),
		Mode:      execution.Mode,
	}
}

type ExecutionWaiting struct {
	BaseEvent

	WaitTill time.Time `json:"wait_till"`
}

func NewExecutionWaiting(execution *models.Execution, waitTill time.Time) *ExecutionWaiting {
	return &ExecutionWaiting{
		BaseEvent: newBaseEvent(ExecutionWaitingEvent, execution.ID, execution.WorkflowID),
		WaitTill:  waitTill,
	}
}

// ExecutionResumeRequested asks an interpreter worker to re-enter a claimed
// execution at its suspension point. Published by the waiter's runner when
// interpretation happens out of process.
type ExecutionResumeRequested struct {
	BaseEvent

	Mode  models.ExecutionMode `json:"mode"`
	Owner string               `json:"owner"`
}

func NewExecutionResumeRequested(execution *models.Execution, owner string) *ExecutionResumeRequested {
	return &ExecutionResumeRequested{
		BaseEvent: newBaseEvent(ExecutionResumeRequestedEvent, execution.ID, execution.WorkflowID),
		Mode:      execution.Mode,
		Owner:     owner,
	}
}

type ExecutionResumed struct {
	BaseEvent
}

func NewExecutionResumed(execution *models.Execution) *ExecutionResumed {
	return &ExecutionResumed{
		BaseEvent: newBaseEvent(ExecutionResumedEvent, execution.ID, execution.WorkflowID),
	}
}

type ExecutionCanceled struct {
	BaseEvent

	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

func NewExecutionCanceled(execution *models.Execution) *ExecutionCanceled {
	return &ExecutionCanceled{
		BaseEvent: newBaseEvent(ExecutionCanceledEvent, execution.ID, execution.WorkflowID),
		StoppedAt: execution.StoppedAt,
	}
}

type ExecutionCrashed struct {
	BaseEvent
}

func NewExecutionCrashed(execution *models.Execution) *ExecutionCrashed {
	return &ExecutionCrashed{
		BaseEvent: newBaseEvent(ExecutionCrashedEvent, execution.ID, execution.WorkflowID),
	}
}

type ExecutionDeleted struct {
	BaseEvent
}

func NewExecutionDeleted(executionID, workflowID string) *ExecutionDeleted {
	return &ExecutionDeleted{
		BaseEvent: newBaseEvent(ExecutionDeletedEvent, executionID, workflowID),
	}
}
