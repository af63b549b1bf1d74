// Package ports defines the EventBus interface for event-driven communication.
// The event bus replaces callbacks and enables loose coupling between components.
package ports

import (
	"github.com/ruckert/canto/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
//
// The bus decouples event producers (services) from consumers (request
// surface, logging, tests). Multiple subscribers can listen to the same
// event type, and subscribers don't know about publishers.
//
// Thread-safety: implementations must be thread-safe; events may be
// published and subscriptions changed from multiple goroutines.
type EventBus interface {
	// Publish delivers an event to all subscribers of its type.
	// Handlers should return quickly; long work belongs in a goroutine.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the given type and
	// returns an ID for later removal. The same handler may be
	// registered multiple times, producing multiple calls.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered handler. Unknown or
	// already-removed IDs are a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives every event
	// regardless of type. Useful for logging and debugging.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers reports whether anyone listens for the given type.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts the bus down and drops all subscriptions.
	Close() error
}
