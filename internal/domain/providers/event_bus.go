package providers

import (
	"context"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to
// object update events
type EventBus interface {
	// Publish sends an event to a channel
	Publish(ctx context.Context, channel string, event *entities.ObjectEvent) error

	// Subscribe listens for events on a channel. The returned channel is
	// closed when the context is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ObjectEvent, error)

	// Close shuts down the event bus
	Close() error
}

// Channel naming for object events
const (
	// GlobalObjectChannel carries every object update
	GlobalObjectChannel = "objects:updates"

	// ObjectChannelPrefix is the prefix for per-object channels
	ObjectChannelPrefix = "objects:"
)

// GetObjectChannel returns the channel name for a specific object
func GetObjectChannel(objectID string) string {
	return ObjectChannelPrefix + objectID
}
