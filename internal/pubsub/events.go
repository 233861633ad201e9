// Package pubsub provides a generic publish/subscribe event system.
// Signals mirror every dispatch onto a broker so that observers which must
// never block a sender (audit trails, log tails, the listen command) can
// follow along asynchronously.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
// Signal brokers use the signal name as the event type.
type EventType string

const (
	// LogEntryEvent is published for every structured log line.
	LogEntryEvent EventType = "log_entry"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
