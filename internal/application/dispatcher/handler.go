package dispatcher

import (
	"context"

	"github.com/scanops/oms/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string     `json:"name"`
	EventType   event.Type `json:"event_type"`
	Handler     Handler    `json:"-"`
	Description string     `json:"description,omitempty"`
}
