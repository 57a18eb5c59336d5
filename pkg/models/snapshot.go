package models

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// WorkflowSnapshot is the immutable copy of a workflow definition stored with
// each execution. Only the fields the scheduler needs are typed; the node
// graph itself is carried opaquely.
type WorkflowSnapshot struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Nodes  json.RawMessage `json:"nodes,omitempty"`
	Wiring json.RawMessage `json:"connections,omitempty"`
}

// workflowSnapshotSchema validates the stored shape of a workflow snapshot.
// Executions written with a malformed snapshot cannot be resumed, so the
// store rejects them up front.
const workflowSnapshotSchema = `{
	"type": "object",
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string"},
		"nodes": {"type": "array"},
		"connections": {"type": "array"}
	},
	"required": ["id"],
	"additionalProperties": true
}`

// ValidateWorkflowSnapshot checks a snapshot document against the snapshot
// schema and returns a descriptive error for the first violation.
func ValidateWorkflowSnapshot(snapshot *WorkflowSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow snapshot: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(workflowSnapshotSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to validate workflow snapshot: %w", err)
	}

	if !result.Valid() {
		return fmt.Errorf("invalid workflow snapshot: %s", result.Errors()[0].String())
	}

	return nil
}
