// Package session owns the lifetime of one active job: the initial
// authentication pass, the store writes for every lifecycle action, and the
// poll tasks. Screens talk to the session; nothing else starts or stops
// timers, so a job change tears down cleanly in one place.
package session

import (
	"context"
	"sync"

	"livery/internal/dispatch"
	"livery/internal/log"
	"livery/internal/poll"
	"livery/internal/retry"
	"livery/internal/store"
)

// Dispatcher is the slice of the dispatch client the session drives.
type Dispatcher interface {
	Auth(ctx context.Context, jobID string) *dispatch.Record
	Live(ctx context.Context, jobID string) *dispatch.Record
	Accept(ctx context.Context, jobID string) *dispatch.Record
	Reject(ctx context.Context, jobID string) *dispatch.Record
	Arrive(ctx context.Context, jobID string) *dispatch.Record
	Start(ctx context.Context, jobID string) *dispatch.Record
	AddStop(ctx context.Context, jobID string) *dispatch.Record
	End(ctx context.Context, jobID string) *dispatch.Record
	Complete(ctx context.Context, jobID, dropoff, cityState, passenger string) *dispatch.Record
}

// State is the session's authentication progress.
type State int

const (
	// StateAuthenticating means the retry controller is still working.
	StateAuthenticating State = iota
	// StateReady means AUTH succeeded and polling is active.
	StateReady
	// StateExhausted means every AUTH attempt failed; the last failure is
	// in the store for the error screen.
	StateExhausted
)

// Config holds session construction options.
type Config struct {
	JobID     string
	Client    Dispatcher
	Store     *store.Store
	Scheduler *poll.Scheduler
	Retry     *retry.Controller
}

// Session drives one job id end to end.
type Session struct {
	jobID  string
	client Dispatcher
	store  *store.Store
	sched  *poll.Scheduler
	retry  *retry.Controller

	mu        sync.Mutex
	state     State
	freshTask *poll.Task
	liveTask  *poll.Task
}

// New creates a session for cfg.JobID. Nothing runs until Authenticate.
func New(cfg Config) *Session {
	return &Session{
		jobID:  cfg.JobID,
		client: cfg.Client,
		store:  cfg.Store,
		sched:  cfg.Scheduler,
		retry:  cfg.Retry,
	}
}

// JobID returns the job id this session owns.
func (s *Session) JobID() string { return s.jobID }

// Store returns the backing job state store.
func (s *Session) Store() *store.Store { return s.store }

// Scheduler returns the poll scheduler (for restrict/freshness listeners).
func (s *Session) Scheduler() *poll.Scheduler { return s.sched }

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticate runs the bounded AUTH retry and, on success, stores the
// record and token and starts both poll tasks. On exhaustion the last
// failure is stored anyway so the error screen can render its message.
// Blocking; run it from a tea.Cmd or a goroutine.
func (s *Session) Authenticate(ctx context.Context) State {
	s.mu.Lock()
	s.state = StateAuthenticating
	s.mu.Unlock()

	result, err := s.retry.Run(ctx, func(ctx context.Context) *dispatch.Record {
		return s.client.Auth(ctx, s.jobID)
	})
	if err != nil {
		// Cancelled; leave state as-is, the owner is tearing down.
		return s.State()
	}

	s.store.SetJobData(s.jobID, result.Record)
	if result.Exhausted {
		log.Warn(log.CatSession, "authentication exhausted", "job", s.jobID, "attempts", result.Attempts)
		s.mu.Lock()
		s.state = StateExhausted
		s.mu.Unlock()
		return StateExhausted
	}

	// The job id doubles as the bearer token today; stored for symmetry.
	s.store.SetToken(s.jobID, s.jobID)

	s.mu.Lock()
	s.state = StateReady
	if s.freshTask == nil {
		s.freshTask = s.sched.StartFreshness(context.Background())
	}
	if s.liveTask == nil {
		s.liveTask = s.sched.StartLiveness(context.Background(), s.jobID, s.client)
	}
	s.mu.Unlock()

	log.Info(log.CatSession, "session ready", "job", s.jobID, "attempts", result.Attempts)
	return StateReady
}

// Restart is the terminal equivalent of a full page reload: cancel the poll
// tasks, clear the restricting flag, and run the whole AUTH flow again.
func (s *Session) Restart(ctx context.Context) State {
	log.Info(log.CatSession, "restarting session", "job", s.jobID)
	s.cancelTasks()
	s.sched.ClearRestricted(s.jobID)
	return s.Authenticate(ctx)
}

// do runs one lifecycle call and merges its response into the store.
// Every response lands, success or not: failures carry the header the
// unauthorized screen renders, and the store's last-write-wins rule is the
// same one the liveness poll follows.
func (s *Session) do(record *dispatch.Record) *dispatch.Record {
	s.store.SetJobData(s.jobID, record)
	return record
}

// Accept accepts the offered job.
func (s *Session) Accept(ctx context.Context) *dispatch.Record {
	return s.do(s.client.Accept(ctx, s.jobID))
}

// Reject declines the offered job.
func (s *Session) Reject(ctx context.Context) *dispatch.Record {
	return s.do(s.client.Reject(ctx, s.jobID))
}

// Arrive marks the driver on scene.
func (s *Session) Arrive(ctx context.Context) *dispatch.Record {
	return s.do(s.client.Arrive(ctx, s.jobID))
}

// StartRide marks the passenger loaded.
func (s *Session) StartRide(ctx context.Context) *dispatch.Record {
	return s.do(s.client.Start(ctx, s.jobID))
}

// AddStop records an intermediate stop.
func (s *Session) AddStop(ctx context.Context) *dispatch.Record {
	return s.do(s.client.AddStop(ctx, s.jobID))
}

// End finishes the ride portion of the job.
func (s *Session) End(ctx context.Context) *dispatch.Record {
	return s.do(s.client.End(ctx, s.jobID))
}

// Complete submits the final drop-off details.
func (s *Session) Complete(ctx context.Context, dropoff, cityState, passenger string) *dispatch.Record {
	return s.do(s.client.Complete(ctx, s.jobID, dropoff, cityState, passenger))
}

func (s *Session) cancelTasks() {
	s.mu.Lock()
	fresh, live := s.freshTask, s.liveTask
	s.freshTask, s.liveTask = nil, nil
	s.mu.Unlock()

	if fresh != nil {
		fresh.Cancel()
	}
	if live != nil {
		live.Cancel()
	}
}

// Close cancels the poll tasks. The store stays intact: job state outlives
// the session on purpose, a new session for the same id resumes from it.
func (s *Session) Close() {
	s.cancelTasks()
	log.Debug(log.CatSession, "session closed", "job", s.jobID)
}
