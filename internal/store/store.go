package store

import (
	"encoding/json"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"livery/internal/clock"
	"livery/internal/dispatch"
	"livery/internal/log"
	"livery/internal/pubsub"
)

// Event describes one store change for a job id.
type Event struct {
	JobID  string
	Route  string
	Record *dispatch.Record
}

// jobState is everything the store knows about one job id. States are
// replaced wholesale on every mutation, never edited in place.
type jobState struct {
	Record *dispatch.Record
	Route  string
	Token  string
}

func (s jobState) empty() bool {
	return s.Record == nil && s.Route == "" && s.Token == ""
}

// Store is the job state store. Reads hit the memory layer; every mutation
// is mirrored to the state database. Last write wins: responses are merged
// in completion order with no sequencing.
type Store struct {
	mu     sync.Mutex
	mem    *gocache.Cache
	db     *DB
	clk    clock.Clock
	broker *pubsub.Broker[Event]
}

// New creates a store backed by db and restores all persisted job state
// before returning, so restored records are visible ahead of any network
// call. db may be nil for an ephemeral, memory-only store.
func New(db *DB, clk clock.Clock) (*Store, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	s := &Store{
		mem:    gocache.New(gocache.NoExpiration, 0),
		db:     db,
		clk:    clk,
		broker: pubsub.NewBroker[Event](),
	}
	if db != nil {
		if err := s.restore(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// restore loads every persisted row into the memory layer.
func (s *Store) restore() error {
	rows, err := s.db.loadJobs()
	if err != nil {
		return err
	}
	for _, row := range rows {
		state := jobState{Route: row.Route, Token: row.Token}
		if row.Record != "" {
			var record dispatch.Record
			if err := json.Unmarshal([]byte(row.Record), &record); err != nil {
				log.Warn(log.CatStore, "dropping unreadable persisted record", "job", row.JobID, "error", err)
			} else {
				state.Record = &record
			}
		}
		s.mem.Set(row.JobID, state, gocache.NoExpiration)
	}
	log.Info(log.CatStore, "state restored", "jobs", len(rows))
	return nil
}

// Broker exposes the store's change events.
func (s *Store) Broker() *pubsub.Broker[Event] { return s.broker }

// Close shuts down the event stream and the state database.
func (s *Store) Close() error {
	s.broker.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) state(jobID string) jobState {
	if v, ok := s.mem.Get(jobID); ok {
		return v.(jobState)
	}
	return jobState{}
}

// put replaces the state for jobID in memory and on disk.
// Caller must hold s.mu.
func (s *Store) put(jobID string, state jobState) {
	if state.empty() {
		s.mem.Delete(jobID)
		if s.db != nil {
			if err := s.db.deleteJob(jobID); err != nil {
				log.ErrorErr(log.CatStore, "failed to delete persisted job", err, "job", jobID)
			}
		}
		return
	}

	s.mem.Set(jobID, state, gocache.NoExpiration)
	if s.db == nil {
		return
	}

	row := jobRow{
		JobID:     jobID,
		Route:     state.Route,
		Token:     state.Token,
		UpdatedAt: s.clk.Now().Unix(),
	}
	if state.Record != nil {
		data, err := json.Marshal(state.Record)
		if err != nil {
			log.ErrorErr(log.CatStore, "failed to serialize record", err, "job", jobID)
		} else {
			row.Record = string(data)
		}
	}
	if err := s.db.saveJob(row); err != nil {
		log.ErrorErr(log.CatStore, "failed to persist job", err, "job", jobID)
	}
}

// SetJobData stores the latest record for a job. When the record's status
// column differs from the stored route, the route follows the record — the
// route is a projection of the record, never independent of it.
func (s *Store) SetJobData(jobID string, record *dispatch.Record) {
	s.mu.Lock()
	state := s.state(jobID)
	state.Record = record

	routeChanged := false
	if route := record.Route(); route != "" && route != state.Route {
		state.Route = route
		routeChanged = true
	}
	s.put(jobID, state)
	route := state.Route
	s.mu.Unlock()

	log.Debug(log.CatStore, "job data set", "job", jobID, "route", route, "routeChanged", routeChanged)
	eventType := pubsub.UpdatedEvent
	if routeChanged {
		eventType = pubsub.RouteEvent
	}
	s.broker.Publish(eventType, Event{JobID: jobID, Route: route, Record: record})
}

// JobData returns the last-known record for a job, nil if none.
func (s *Store) JobData(jobID string) *dispatch.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(jobID).Record
}

// ClearJobData removes the record for one job id, leaving other jobs and
// the job's own route/token untouched.
func (s *Store) ClearJobData(jobID string) {
	s.mu.Lock()
	state := s.state(jobID)
	state.Record = nil
	s.put(jobID, state)
	route := state.Route
	s.mu.Unlock()

	s.broker.Publish(pubsub.ClearedEvent, Event{JobID: jobID, Route: route})
}

// SetCurrentRoute overrides the stored route for a job, used only for
// optimistic local transitions ahead of the next server round trip.
// Setting the same route again is a no-op: no write, no event.
func (s *Store) SetCurrentRoute(jobID, route string) {
	s.mu.Lock()
	state := s.state(jobID)
	if state.Route == route {
		s.mu.Unlock()
		return
	}
	state.Route = route
	s.put(jobID, state)
	record := state.Record
	s.mu.Unlock()

	log.Debug(log.CatStore, "route set", "job", jobID, "route", route)
	s.broker.Publish(pubsub.RouteEvent, Event{JobID: jobID, Route: route, Record: record})
}

// CurrentRoute returns the stored route for a job, "" if none.
func (s *Store) CurrentRoute(jobID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(jobID).Route
}

// ClearCurrentRoute resets the stored route for a job.
func (s *Store) ClearCurrentRoute(jobID string) {
	s.mu.Lock()
	state := s.state(jobID)
	if state.Route == "" {
		s.mu.Unlock()
		return
	}
	state.Route = ""
	s.put(jobID, state)
	record := state.Record
	s.mu.Unlock()

	s.broker.Publish(pubsub.RouteEvent, Event{JobID: jobID, Route: "", Record: record})
}

// SetToken stores the session token for a job. The token is the job id
// itself today; it is kept separately for symmetry with the backend.
func (s *Store) SetToken(jobID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state(jobID)
	if state.Token == token {
		return
	}
	state.Token = token
	s.put(jobID, state)
}

// Token returns the stored token for a job, "" if none.
func (s *Store) Token(jobID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(jobID).Token
}

// IsAuthenticated reports whether any job id holds a record. Informational
// only; it grants nothing by itself.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.mem.Items() {
		if state, ok := item.Object.(jobState); ok && state.Record != nil {
			return true
		}
	}
	return false
}

// Reload re-reads all persisted state, replacing the memory layer. Used when
// the state watcher sees an external write to the database.
func (s *Store) Reload() error {
	if s.db == nil {
		return nil
	}
	s.mu.Lock()
	s.mem.Flush()
	err := s.restore()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.broker.Publish(pubsub.UpdatedEvent, Event{})
	return nil
}
