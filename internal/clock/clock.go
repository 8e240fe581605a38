// Package clock abstracts time operations so timer-driven services can be
// tested without waiting on wall-clock delays.
// Use RealClock in production and a fake in tests.
package clock

import "time"

// Clock provides time-related operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// NewTimer creates a Timer that fires once after at least duration d.
	NewTimer(d time.Duration) Timer
	// NewTicker creates a Ticker that fires repeatedly every d.
	NewTicker(d time.Duration) Ticker
}

// Timer is a one-shot timer that can be stopped.
type Timer interface {
	// Stop prevents the Timer from firing. Returns true if the call stops
	// the timer, false if it already expired or was stopped.
	Stop() bool
	// C returns the channel on which the fire time is delivered.
	C() <-chan time.Time
}

// Ticker delivers ticks at intervals until stopped.
type Ticker interface {
	// Stop turns off the ticker. Stop does not close the channel.
	Stop()
	// C returns the channel on which ticks are delivered.
	C() <-chan time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// NewTimer creates a new time.Timer.
func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{timer: time.NewTimer(d)}
}

// NewTicker creates a new time.Ticker.
func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) Stop() bool          { return t.timer.Stop() }
func (t *realTimer) C() <-chan time.Time { return t.timer.C }

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) Stop()               { t.ticker.Stop() }
func (t *realTicker) C() <-chan time.Time { return t.ticker.C }
