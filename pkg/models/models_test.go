package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remora-run/remora/pkg/models"
)

func TestExecutionStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []models.ExecutionStatus{
		models.ExecutionStatusSuccess,
		models.ExecutionStatusError,
		models.ExecutionStatusCanceled,
		models.ExecutionStatusCrashed,
	}

	for _, status := range terminal {
		assert.True(t, status.IsTerminal(), string(status))
	}

	nonTerminal := []models.ExecutionStatus{
		models.ExecutionStatusNew,
		models.ExecutionStatusRunning,
		models.ExecutionStatusWaiting,
	}

	for _, status := range nonTerminal {
		assert.False(t, status.IsTerminal(), string(status))
	}
}

func TestExecution_Summary(t *testing.T) {
	t.Parallel()

	waitTill := time.Now().UTC().Add(time.Hour)
	execution := &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Mode:       models.ExecutionModeTrigger,
		Status:     models.ExecutionStatusWaiting,
		StartedAt:  time.Now().UTC(),
		WaitTill:   &waitTill,
	}

	summary := execution.Summary()

	assert.Equal(t, execution.ID, summary.ID)
	assert.Equal(t, execution.WorkflowID, summary.WorkflowID)
	assert.Equal(t, execution.Mode, summary.Mode)
	assert.Equal(t, execution.Status, summary.Status)
	require.NotNil(t, summary.WaitTill)
	assert.Equal(t, waitTill, *summary.WaitTill)
}

func TestValidateWorkflowSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("valid snapshot", func(t *testing.T) {
		err := models.ValidateWorkflowSnapshot(&models.WorkflowSnapshot{
			ID:   "wf-1",
			Name: "Order Sync",
		})
		assert.NoError(t, err)
	})

	t.Run("missing id", func(t *testing.T) {
		err := models.ValidateWorkflowSnapshot(&models.WorkflowSnapshot{
			Name: "Order Sync",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid workflow snapshot")
	})
}

func TestUpdateExecutionParams_IsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, (&models.UpdateExecutionParams{}).IsEmpty())

	finished := true

	assert.False(t, (&models.UpdateExecutionParams{Finished: &finished}).IsEmpty())
	assert.False(t, (&models.UpdateExecutionParams{ClearWaitTill: true}).IsEmpty())
	assert.False(t, (&models.UpdateExecutionParams{Metadata: map[string]string{"k": "v"}}).IsEmpty())
}
