// Package testutil provides shared test fixtures: a controllable clock for
// timer-driven services and canned dispatch envelopes.
package testutil

import (
	"sync"
	"time"

	"livery/internal/clock"
)

// FakeClock implements clock.Clock with manually advanced time.
// Timers and tickers fire from Advance, never from the wall clock.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
}

type waiter struct {
	deadline time.Time
	period   time.Duration // zero for one-shot timers
	ch       chan time.Time
	stopped  bool
}

// NewFakeClock creates a fake clock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Waiters returns the number of armed timers and tickers. Tests use it to
// wait until the service under test has set up its timer before advancing.
func (c *FakeClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}

// NewTimer arms a one-shot timer.
func (c *FakeClock) NewTimer(d time.Duration) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &waiter{deadline: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.waiters = append(c.waiters, w)
	return &fakeTimer{clk: c, w: w}
}

// NewTicker arms a repeating ticker.
func (c *FakeClock) NewTicker(d time.Duration) clock.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &waiter{deadline: c.now.Add(d), period: d, ch: make(chan time.Time, 1)}
	c.waiters = append(c.waiters, w)
	return &fakeTicker{clk: c, w: w}
}

// Advance moves the clock forward, firing every timer and ticker whose
// deadline falls within the window, in deadline order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	target := c.now.Add(d)

	for {
		var next *waiter
		for _, w := range c.waiters {
			if w.stopped || w.deadline.After(target) {
				continue
			}
			if next == nil || w.deadline.Before(next.deadline) {
				next = w
			}
		}
		if next == nil {
			break
		}

		c.now = next.deadline
		select {
		case next.ch <- next.deadline:
		default:
			// Receiver has not drained the previous tick; drop, like
			// time.Ticker does.
		}
		if next.period > 0 {
			next.deadline = next.deadline.Add(next.period)
		} else {
			next.stopped = true
		}
	}
	c.now = target
}

type fakeTimer struct {
	clk *FakeClock
	w   *waiter
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	was := !t.w.stopped
	t.w.stopped = true
	return was
}

func (t *fakeTimer) C() <-chan time.Time { return t.w.ch }

type fakeTicker struct {
	clk *FakeClock
	w   *waiter
}

func (t *fakeTicker) Stop() {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	t.w.stopped = true
}

func (t *fakeTicker) C() <-chan time.Time { return t.w.ch }
