package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"livery/internal/dispatch"
	"livery/internal/pubsub"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func recordWithRoute(t *testing.T, route string) *dispatch.Record {
	t.Helper()
	return dispatch.NewRecord(dispatch.Envelope{
		JHeader:   dispatch.Header{ActionCode: dispatch.CodeOK},
		JMetaData: dispatch.MetaData{Headings: [][]string{{"Status", "Status"}, {"RideNo", "Ride #"}}},
		JData:     [][]string{{route, "R1"}},
	})
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	record := recordWithRoute(t, "Job Offer")

	s.SetJobData("A", record)

	got := s.JobData("A")
	require.Equal(t, record, got)
	require.Nil(t, s.JobData("B"))
}

func TestStore_RouteDerivedFromRecord(t *testing.T) {
	s := newTestStore(t)

	s.SetJobData("A", recordWithRoute(t, "Job Offer"))
	require.Equal(t, "Job Offer", s.CurrentRoute("A"))

	// A lifecycle response with a new status moves the route.
	s.SetJobData("A", recordWithRoute(t, "Job Accepted"))
	require.Equal(t, "Job Accepted", s.CurrentRoute("A"))
}

func TestStore_PartitionedByJobID(t *testing.T) {
	s := newTestStore(t)

	s.SetJobData("A", recordWithRoute(t, "Job Offer"))
	s.SetJobData("B", recordWithRoute(t, "Load"))

	s.ClearJobData("A")

	require.Nil(t, s.JobData("A"))
	require.NotNil(t, s.JobData("B"))
	require.Equal(t, "Load", s.CurrentRoute("B"))
}

func TestStore_SetCurrentRouteIdempotent(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Broker().Subscribe(ctx)

	s.SetCurrentRoute("A", "Job Accepted")
	s.SetCurrentRoute("A", "Job Accepted") // no event, no downstream work

	var events int
	deadline := time.After(150 * time.Millisecond)
	for done := false; !done; {
		select {
		case <-ch:
			events++
		case <-deadline:
			done = true
		}
	}
	require.Equal(t, 1, events)
	require.Equal(t, "Job Accepted", s.CurrentRoute("A"))
}

func TestStore_IsAuthenticated(t *testing.T) {
	s := newTestStore(t)
	require.False(t, s.IsAuthenticated())

	s.SetCurrentRoute("A", "Job Offer") // route alone is not authentication
	require.False(t, s.IsAuthenticated())

	s.SetJobData("A", recordWithRoute(t, "Job Offer"))
	require.True(t, s.IsAuthenticated())

	s.ClearJobData("A")
	require.False(t, s.IsAuthenticated())
}

func TestStore_TokenSeparateFromRecord(t *testing.T) {
	s := newTestStore(t)
	s.SetToken("A", "A")
	require.Equal(t, "A", s.Token("A"))
	require.Empty(t, s.Token("B"))

	s.ClearJobData("A")
	require.Equal(t, "A", s.Token("A"))
}

func TestStore_PublishesRouteEvents(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Broker().Subscribe(ctx)

	s.SetJobData("A", recordWithRoute(t, "Job Offer"))

	select {
	case event := <-ch:
		require.Equal(t, pubsub.RouteEvent, event.Type)
		require.Equal(t, "A", event.Payload.JobID)
		require.Equal(t, "Job Offer", event.Payload.Route)
		require.NotNil(t, event.Payload.Record)
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for store event")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	db, err := OpenDB(path)
	require.NoError(t, err)
	s, err := New(db, nil)
	require.NoError(t, err)

	s.SetJobData("A", recordWithRoute(t, "On-scene"))
	s.SetToken("A", "A")
	require.NoError(t, s.Close())

	db2, err := OpenDB(path)
	require.NoError(t, err)
	restored, err := New(db2, nil)
	require.NoError(t, err)
	defer func() { _ = restored.Close() }()

	require.Equal(t, "On-scene", restored.CurrentRoute("A"))
	require.Equal(t, "A", restored.Token("A"))
	record := restored.JobData("A")
	require.NotNil(t, record)
	require.Equal(t, "On-scene", record.Route())
	v, ok := record.Field("RideNo")
	require.True(t, ok)
	require.Equal(t, "R1", v)
}

func TestStore_ClearJobDataPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	db, err := OpenDB(path)
	require.NoError(t, err)
	s, err := New(db, nil)
	require.NoError(t, err)

	s.SetJobData("A", recordWithRoute(t, "Job Offer"))
	s.SetJobData("B", recordWithRoute(t, "Load"))
	s.ClearJobData("A")
	s.ClearCurrentRoute("A")
	require.NoError(t, s.Close())

	db2, err := OpenDB(path)
	require.NoError(t, err)
	restored, err := New(db2, nil)
	require.NoError(t, err)
	defer func() { _ = restored.Close() }()

	require.Nil(t, restored.JobData("A"))
	require.Empty(t, restored.CurrentRoute("A"))
	require.NotNil(t, restored.JobData("B"))
}
