// Package pubsub provides a generic publish/subscribe event system.
// Services publish typed events through a Broker; the UI bridges
// subscriptions into the Bubble Tea update loop via ContinuousListener.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	UpdatedEvent EventType = "updated"
	ClearedEvent EventType = "cleared"
	RouteEvent   EventType = "route"
	TickEvent    EventType = "tick"
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
