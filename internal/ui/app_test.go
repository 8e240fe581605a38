package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"livery/internal/dispatch"
	"livery/internal/log"
	"livery/internal/poll"
	"livery/internal/pubsub"
	"livery/internal/retry"
	"livery/internal/session"
	"livery/internal/store"
	"livery/internal/testutil"
)

// cannedDispatcher returns fixed records per action.
type cannedDispatcher struct {
	mu      sync.Mutex
	records map[string]*dispatch.Record
	calls   map[string]int
}

func newCanned() *cannedDispatcher {
	return &cannedDispatcher{
		records: map[string]*dispatch.Record{},
		calls:   map[string]int{},
	}
}

func (d *cannedDispatcher) respond(name string) *dispatch.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[name]++
	if r, ok := d.records[name]; ok {
		return r
	}
	return dispatch.Failure("no canned response")
}

func (d *cannedDispatcher) count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

func (d *cannedDispatcher) Auth(ctx context.Context, jobID string) *dispatch.Record {
	return d.respond("auth")
}

func (d *cannedDispatcher) Live(ctx context.Context, jobID string) *dispatch.Record {
	return d.respond("live")
}

func (d *cannedDispatcher) Accept(ctx context.Context, jobID string) *dispatch.Record {
	return d.respond("accept")
}

func (d *cannedDispatcher) Reject(ctx context.Context, jobID string) *dispatch.Record {
	return d.respond("reject")
}

func (d *cannedDispatcher) Arrive(ctx context.Context, jobID string) *dispatch.Record {
	return d.respond("arrive")
}

func (d *cannedDispatcher) Start(ctx context.Context, jobID string) *dispatch.Record {
	return d.respond("start")
}

func (d *cannedDispatcher) AddStop(ctx context.Context, jobID string) *dispatch.Record {
	return d.respond("addstop")
}

func (d *cannedDispatcher) End(ctx context.Context, jobID string) *dispatch.Record {
	return d.respond("end")
}

func (d *cannedDispatcher) Complete(ctx context.Context, jobID, dropoff, cityState, passenger string) *dispatch.Record {
	return d.respond("complete")
}

const testJobID = "4821"

func newTestModel(t *testing.T, client *cannedDispatcher) *Model {
	t.Helper()

	clk := testutil.NewFakeClock(time.Unix(1700000000, 0))
	st, err := store.New(nil, clk)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	activity := dispatch.NewActivityMonitor(clk)
	t.Cleanup(activity.Close)

	sched := poll.NewScheduler(poll.Config{Clock: clk, Activity: activity, Store: st})
	t.Cleanup(sched.Close)

	sess := session.New(session.Config{
		JobID:     testJobID,
		Client:    client,
		Store:     st,
		Scheduler: sched,
		Retry:     retry.New(1, 0, clk),
	})

	m := New(sess)
	t.Cleanup(m.Close)
	m.width = 80
	return m
}

// authenticate runs the auth flow synchronously and feeds the result message.
func authenticate(t *testing.T, m *Model) {
	t.Helper()
	state := m.session.Authenticate(context.Background())
	updated, _ := m.Update(authDoneMsg{state: state})
	require.Same(t, m, updated)
}

func TestModel_ShowsJobOfferAfterAuth(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Job Offer")
	m := newTestModel(t, client)

	authenticate(t, m)

	view := m.View()
	require.Contains(t, view, "Job Offer")
	require.Contains(t, view, "accept job")
	require.Equal(t, dispatch.ScreenJobOffer, m.screen)
}

func TestModel_LoadingBeforeAuthCompletes(t *testing.T) {
	m := newTestModel(t, newCanned())
	require.Contains(t, m.View(), "Contacting dispatch")
}

func TestModel_AcceptMovesToEnRoute(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Job Offer")
	client.records["accept"] = testutil.RecordWithRoute("Job Accepted")
	m := newTestModel(t, client)
	authenticate(t, m)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	require.NotNil(t, cmd)
	require.True(t, m.busy)

	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	require.True(t, ok)
	require.True(t, done.record.OK())

	m.Update(done)
	require.False(t, m.busy)

	// The store write lands as an event; the screen follows the route.
	m.Update(pubsub.Event[store.Event]{Payload: store.Event{JobID: testJobID, Route: "Job Accepted"}})
	require.Equal(t, dispatch.ScreenEnRoute, m.screen)
	require.Contains(t, m.View(), "En Route")
}

func TestModel_KeysIgnoredWhileBusy(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Job Offer")
	m := newTestModel(t, client)
	authenticate(t, m)

	m.busy = true
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	require.Nil(t, cmd)
}

func TestModel_TerminalScreenArmsNoActions(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Completed")
	m := newTestModel(t, client)
	authenticate(t, m)

	require.Equal(t, dispatch.ScreenUnload, m.screen)
	require.Contains(t, m.View(), "No further actions")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	require.Nil(t, cmd)
}

func TestModel_UnauthorizedSanitizesMessage(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.FailureRecord(1, "Object reference not set to an instance of an object")
	m := newTestModel(t, client)
	authenticate(t, m)

	view := m.View()
	require.Contains(t, view, "Not authorized")
	require.Contains(t, view, dispatch.GenericErrorMessage)
	require.NotContains(t, view, "Object reference")
}

func TestModel_RestrictEventShowsBanner(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Job Offer")
	m := newTestModel(t, client)
	authenticate(t, m)

	m.Update(pubsub.Event[string]{Payload: testJobID})
	require.True(t, m.restricted)
	require.Contains(t, m.View(), "Connection restricted")

	// Another job's restriction is not ours.
	m.restricted = false
	m.Update(pubsub.Event[string]{Payload: "9999"})
	require.False(t, m.restricted)
}

func TestModel_RestrictEventForcesReload(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Job Offer")
	m := newTestModel(t, client)
	authenticate(t, m)
	require.Equal(t, 1, client.count("auth"))

	// The restricting flag alone must re-run the full reload, no keypress.
	_, cmd := m.Update(pubsub.Event[string]{Payload: testJobID})
	require.NotNil(t, cmd)
	require.True(t, m.restricted)
	require.False(t, m.authDone)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)

	msgs := make(chan tea.Msg, len(batch))
	for _, sub := range batch {
		go func(sub tea.Cmd) { msgs <- sub() }(sub)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-msgs:
			done, ok := got.(authDoneMsg)
			if !ok {
				continue
			}
			m.Update(done)
			require.Equal(t, 2, client.count("auth"))
			require.False(t, m.restricted)
			require.True(t, m.authDone)
			return
		case <-deadline:
			t.Fatal("restriction did not trigger a reload")
		}
	}
}

func TestModel_RestartKeyWhenRestricted(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Job Offer")
	m := newTestModel(t, client)
	authenticate(t, m)

	m.Update(pubsub.Event[string]{Payload: testJobID})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	require.False(t, m.authDone)

	done, ok := cmd().(authDoneMsg)
	require.True(t, ok)
	m.Update(done)
	require.False(t, m.restricted)
	require.True(t, m.authDone)
}

func TestModel_LogTailInStatusBar(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Job Offer")
	m := newTestModel(t, client)
	authenticate(t, m)

	_, cmd := m.Update(log.LogEvent{Payload: log.Entry("2026-02-11T08:00:00 [WARN] [poll] freshness missed\n")})
	require.Nil(t, cmd)
	require.Contains(t, m.View(), "[poll] freshness missed")
}

func TestModel_FreshnessUpdatesStatusBar(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Job Offer")
	m := newTestModel(t, client)
	authenticate(t, m)

	stamp := time.Date(2024, 5, 1, 9, 30, 45, 0, time.Local)
	m.Update(pubsub.Event[time.Time]{Payload: stamp})
	require.Contains(t, m.View(), "09:30:45")
}

func TestModel_CompleteFormTabAndSave(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Unload")
	client.records["complete"] = testutil.RecordWithRoute("Completed")
	m := newTestModel(t, client)
	authenticate(t, m)

	require.Equal(t, dispatch.ScreenCompleteJob, m.screen)

	// Type into the first field, tab to the second.
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("815 Main St")})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	require.Equal(t, 1, m.form.focus)

	dropoff, _, _ := m.form.Values()
	require.Equal(t, "815 Main St", dropoff)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	require.True(t, ok)
	require.True(t, done.record.OK())
	require.Equal(t, 1, client.calls["complete"])
}

func TestModel_QuitKey(t *testing.T) {
	client := newCanned()
	client.records["auth"] = testutil.RecordWithRoute("Job Offer")
	m := newTestModel(t, client)
	authenticate(t, m)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	require.Equal(t, tea.Quit(), cmd())
}
