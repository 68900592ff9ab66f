package providers

import (
	"context"

	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.AppointmentEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.AppointmentEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelAppointmentUpdates is the channel for all appointment changes
	EventChannelAppointmentUpdates = "appointments:updates"

	// EventChannelAgentPrefix is the prefix for agent-specific channels
	EventChannelAgentPrefix = "agent:"
)

// GetAgentChannel returns the channel name for a specific agent
func GetAgentChannel(agentID string) string {
	return EventChannelAgentPrefix + agentID
}
