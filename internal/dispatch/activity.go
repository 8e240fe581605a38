package dispatch

import (
	"sync"
	"time"

	"livery/internal/clock"
	"livery/internal/pubsub"
)

// ActivityMonitor records when the most recent dispatch call completed.
// The freshness ticker reads it on its own schedule; call sites only stamp
// it, so the UI heartbeat never has to be threaded through the client API.
type ActivityMonitor struct {
	clk    clock.Clock
	broker *pubsub.Broker[time.Time]

	mu   sync.RWMutex
	last time.Time
}

// NewActivityMonitor creates a monitor using clk for timestamps.
func NewActivityMonitor(clk clock.Clock) *ActivityMonitor {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ActivityMonitor{
		clk:    clk,
		broker: pubsub.NewBroker[time.Time](),
	}
}

// Stamp records the current time as the last request completion and
// publishes it to subscribers.
func (m *ActivityMonitor) Stamp() time.Time {
	now := m.clk.Now()
	m.mu.Lock()
	m.last = now
	m.mu.Unlock()
	m.broker.Publish(pubsub.TickEvent, now)
	return now
}

// Last returns the most recent completion time, zero if none yet.
func (m *ActivityMonitor) Last() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Broker exposes the event stream for subscribers.
func (m *ActivityMonitor) Broker() *pubsub.Broker[time.Time] { return m.broker }

// Close shuts down the event stream.
func (m *ActivityMonitor) Close() { m.broker.Close() }
