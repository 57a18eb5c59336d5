package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remora-run/remora/pkg/channels/gochannel"
	"github.com/remora-run/remora/pkg/eventbus"
	"github.com/remora-run/remora/pkg/events"
	"github.com/remora-run/remora/pkg/testutil"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		err := bus.Close()
		require.NoError(t, err)
	})

	return bus
}

func TestWatermillEventBus_PublishAndSubscribe(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan any, 1)

	err := bus.Handle(events.ExecutionResumeRequestedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	err = bus.Subscribe(ctx)
	require.NoError(t, err)

	execution := testutil.CreateTestExecution(testutil.WithID("exec-1"))

	err = bus.Publish(ctx, execution.ID, events.NewExecutionResumeRequested(execution, "owner-1"))
	require.NoError(t, err)

	select {
	case event := <-received:
		resumeRequested, ok := event.(*events.ExecutionResumeRequested)
		require.True(t, ok)
		assert.Equal(t, "exec-1", resumeRequested.ExecutionID)
		assert.Equal(t, execution.WorkflowID, resumeRequested.WorkflowID)
		assert.Equal(t, "owner-1", resumeRequested.Owner)
		assert.Equal(t, events.ExecutionResumeRequestedEvent, resumeRequested.GetType())
	case <-time.After(5 * time.Second):
		t.Fatal("event was never delivered")
	}
}

func TestWatermillEventBus_UnhandledEventTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan any, 2)

	err := bus.Handle(events.ExecutionCanceledEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	err = bus.Subscribe(ctx)
	require.NoError(t, err)

	execution := testutil.CreateTestExecution(testutil.WithID("exec-2"))

	// No handler registered for this one; it must be acked and skipped.
	err = bus.Publish(ctx, execution.ID, events.NewExecutionResumed(execution))
	require.NoError(t, err)

	err = bus.Publish(ctx, execution.ID, events.NewExecutionCanceled(execution))
	require.NoError(t, err)

	select {
	case event := <-received:
		canceled, ok := event.(*events.ExecutionCanceled)
		require.True(t, ok)
		assert.Equal(t, "exec-2", canceled.ExecutionID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was never delivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
