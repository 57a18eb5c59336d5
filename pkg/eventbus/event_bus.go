// Package eventbus provides event-driven notification infrastructure for
// execution lifecycle changes.
package eventbus

import (
	"context"

	"github.com/remora-run/remora/pkg/events"
)

type EventHandler func(ctx context.Context, event any) error

// EventBus publishes and consumes execution lifecycle events.
type EventBus interface {
	events.Publisher

	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
	Close() error
	GenerateID() string
}
