package models

import "time"

// ExecutionFilter narrows search and bulk-delete queries. All set predicates
// are combined with AND.
type ExecutionFilter struct {
	Statuses      []ExecutionStatus `json:"statuses,omitempty"       validate:"dive,oneof=new running success error canceled crashed waiting"`
	Finished      *bool             `json:"finished,omitempty"`
	WorkflowID    string            `json:"workflow_id,omitempty"`
	StartedAfter  *time.Time        `json:"started_after,omitempty"`
	StartedBefore *time.Time        `json:"started_before,omitempty"`

	// Metadata matches executions carrying every listed key/value pair.
	// Only honored when the store was built with metadata filtering enabled.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Cursor pages over the strictly monotonic execution id ordering. Narrowing
// by id range instead of offsets keeps pages stable under concurrent deletes.
type Cursor struct {
	BeforeID string `json:"before_id,omitempty"`
	AfterID  string `json:"after_id,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"min=0,max=500"`
}

// GetOptions controls which heavy columns a read fetches. Listings leave both
// unset so the data blob never crosses the wire.
type GetOptions struct {
	IncludeData             bool
	IncludeWorkflowSnapshot bool
}

// UpdateExecutionParams is a partial update: nil fields are left untouched.
// Status and data changes supplied together commit in one transaction.
type UpdateExecutionParams struct {
	Status         *ExecutionStatus `validate:"omitempty,oneof=new running success error canceled crashed waiting"`
	StoppedAt      *time.Time
	WaitTill       *time.Time
	ClearWaitTill  bool
	Finished       *bool
	RetrySuccessID *string
	Data           *ExecutionData
	Metadata       map[string]string
}

// IsEmpty reports whether the update carries no changes at all.
func (p *UpdateExecutionParams) IsEmpty() bool {
	return p.Status == nil && p.StoppedAt == nil && p.WaitTill == nil &&
		!p.ClearWaitTill && p.Finished == nil && p.RetrySuccessID == nil &&
		p.Data == nil && len(p.Metadata) == 0
}

// DeleteRequest describes a bulk delete. At least one of DeleteBefore or IDs
// must be supplied; when DeleteBefore is used the filter predicates apply the
// same way they do for search.
type DeleteRequest struct {
	DeleteBefore *time.Time       `json:"delete_before,omitempty"`
	IDs          []string         `json:"ids,omitempty"`
	Filter       *ExecutionFilter `json:"filter,omitempty"`
}
