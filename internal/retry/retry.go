// Package retry bounds the initial authentication call: a fixed number of
// attempts with a fixed delay between them. No backoff — the original flow
// retries on a flat schedule and the screens depend on its timing.
package retry

import (
	"context"
	"time"

	"livery/internal/clock"
	"livery/internal/dispatch"
	"livery/internal/log"
)

// Defaults: three attempts total, three seconds apart.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 3000 * time.Millisecond
)

// AuthFunc performs one authentication attempt.
type AuthFunc func(ctx context.Context) *dispatch.Record

// Result is the terminal state of a retry run.
type Result struct {
	// Record is the successful response, or the last failure when exhausted.
	Record *dispatch.Record
	// Attempts is how many calls were made.
	Attempts int
	// Exhausted is true when every attempt failed.
	Exhausted bool
}

// Controller runs a bounded fixed-delay retry loop.
type Controller struct {
	maxAttempts int
	delay       time.Duration
	clk         clock.Clock
}

// New creates a controller. Zero values fall back to the defaults.
func New(maxAttempts int, delay time.Duration, clk clock.Clock) *Controller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Controller{maxAttempts: maxAttempts, delay: delay, clk: clk}
}

// Run calls auth until it succeeds or attempts are exhausted. The last
// failure record is always returned so an error screen can show its
// message. Returns ctx.Err() if cancelled mid-run; pending delays are
// abandoned immediately.
func (c *Controller) Run(ctx context.Context, auth AuthFunc) (Result, error) {
	var last *dispatch.Record

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Record: last, Attempts: attempt - 1}, err
		}

		record := auth(ctx)
		last = record
		if record.OK() {
			log.Info(log.CatRetry, "authenticated", "attempt", attempt)
			return Result{Record: record, Attempts: attempt}, nil
		}

		log.Warn(log.CatRetry, "auth attempt failed",
			"attempt", attempt, "code", record.Header().ActionCode, "message", record.Message())

		if attempt >= c.maxAttempts {
			return Result{Record: last, Attempts: attempt, Exhausted: true}, nil
		}

		timer := c.clk.NewTimer(c.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Record: last, Attempts: attempt}, ctx.Err()
		case <-timer.C():
		}
	}
}
