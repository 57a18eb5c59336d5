package scheduler

import (
	"context"

	"github.com/remora-run/remora/pkg/models"
)

// ResumeData is everything the workflow interpreter needs to re-enter a
// suspended execution at its saved point.
type ResumeData struct {
	Execution *models.Execution
	Data      *models.ExecutionData
	Owner     string
}

// Runner is the external workflow interpreter. Any error it returns is caught
// and reported by the scheduler, never propagated.
type Runner interface {
	Run(ctx context.Context, resume *ResumeData) error
}

// OwnerResolver resolves the acting identity for a resumed workflow.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, workflowID string) (string, error)
}
