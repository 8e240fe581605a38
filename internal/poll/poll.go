// Package poll runs the two background tickers attached to an active job:
// a freshness ticker that republishes the last request time for display, and
// a liveness ticker that periodically verifies the session against the
// backend. Tasks are explicit handles owned by the session, not by whatever
// screen happens to be mounted — cancelling a task guarantees it never
// writes again.
package poll

import (
	"context"
	"sync"
	"time"

	"livery/internal/clock"
	"livery/internal/dispatch"
	"livery/internal/log"
	"livery/internal/pubsub"
	"livery/internal/store"
)

// Default tick periods. The freshness tick is cosmetic; the liveness tick is
// the only one that touches the network.
const (
	DefaultFreshness = 9 * time.Second
	DefaultLiveness  = 50 * time.Second
)

// LiveCaller issues the background liveness check.
type LiveCaller interface {
	Live(ctx context.Context, jobID string) *dispatch.Record
}

// Config holds scheduler construction options.
type Config struct {
	// Clock provides tickers. Defaults to RealClock.
	Clock clock.Clock
	// Freshness is the UI heartbeat period. Defaults to DefaultFreshness.
	Freshness time.Duration
	// Liveness is the session check period. Defaults to DefaultLiveness.
	Liveness time.Duration
	// Activity is the last-request monitor the freshness ticker reads. Required.
	Activity *dispatch.ActivityMonitor
	// Store receives merged liveness responses. Required.
	Store *store.Store
}

// Scheduler starts and tracks poll tasks for jobs.
type Scheduler struct {
	clk       clock.Clock
	freshness time.Duration
	liveness  time.Duration
	activity  *dispatch.ActivityMonitor
	store     *store.Store

	fresh    *pubsub.Broker[time.Time]
	restrict *pubsub.Broker[string]

	mu         sync.Mutex
	restricted map[string]bool
}

// NewScheduler creates a scheduler.
func NewScheduler(cfg Config) *Scheduler {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	freshness := cfg.Freshness
	if freshness == 0 {
		freshness = DefaultFreshness
	}
	liveness := cfg.Liveness
	if liveness == 0 {
		liveness = DefaultLiveness
	}
	return &Scheduler{
		clk:        clk,
		freshness:  freshness,
		liveness:   liveness,
		activity:   cfg.Activity,
		store:      cfg.Store,
		fresh:      pubsub.NewBroker[time.Time](),
		restrict:   pubsub.NewBroker[string](),
		restricted: make(map[string]bool),
	}
}

// FreshnessBroker publishes the last request time on every freshness tick.
func (s *Scheduler) FreshnessBroker() *pubsub.Broker[time.Time] { return s.fresh }

// RestrictBroker publishes a job id when its liveness check failed and
// polling escalated to a forced reload.
func (s *Scheduler) RestrictBroker() *pubsub.Broker[string] { return s.restrict }

// Restricted reports whether the liveness check flagged the job's session
// as invalid.
func (s *Scheduler) Restricted(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restricted[jobID]
}

// ClearRestricted resets the flag during a session restart.
func (s *Scheduler) ClearRestricted(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.restricted, jobID)
}

func (s *Scheduler) setRestricted(jobID string) {
	s.mu.Lock()
	s.restricted[jobID] = true
	s.mu.Unlock()
	s.restrict.Publish(pubsub.UpdatedEvent, jobID)
}

// Close shuts down both event streams.
func (s *Scheduler) Close() {
	s.fresh.Close()
	s.restrict.Close()
}

// Task is a handle for one running poll loop.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the task and waits for its loop to exit. After Cancel
// returns the task will never write to the store or publish again.
// Safe to call more than once.
func (t *Task) Cancel() {
	t.cancel()
	<-t.done
}

// StartFreshness starts the cosmetic freshness ticker. Every tick re-reads
// the activity monitor and republishes the value; no network, no store.
func (s *Scheduler) StartFreshness(ctx context.Context) *Task {
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(task.done)
		ticker := s.clk.NewTicker(s.freshness)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				s.fresh.Publish(pubsub.TickEvent, s.activity.Last())
			}
		}
	}()
	return task
}

// StartLiveness starts the session check loop for a job. A successful check
// merges the refreshed record into the store and clears the restricting
// flag. A failing check sets the flag and stops the loop for good — polling
// an invalidated session is pointless, the consuming screen forces a reload
// which restarts the whole flow.
func (s *Scheduler) StartLiveness(ctx context.Context, jobID string, caller LiveCaller) *Task {
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(task.done)
		ticker := s.clk.NewTicker(s.liveness)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				record := caller.Live(ctx, jobID)
				if ctx.Err() != nil {
					// Cancelled while the call was in flight; drop the
					// response instead of writing into a dead session.
					return
				}
				if record.OK() {
					s.store.SetJobData(jobID, record)
					s.ClearRestricted(jobID)
					continue
				}
				log.Warn(log.CatPoll, "liveness check failed, stopping poll",
					"job", jobID, "code", record.Header().ActionCode)
				s.setRestricted(jobID)
				return
			}
		}
	}()
	return task
}
