package retry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"livery/internal/dispatch"
	"livery/internal/testutil"
)

// recordingAuth counts attempts and captures their fake-clock times.
type recordingAuth struct {
	mu        sync.Mutex
	clk       *testutil.FakeClock
	responses []*dispatch.Record
	times     []time.Time
}

func (a *recordingAuth) auth(ctx context.Context) *dispatch.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.times = append(a.times, a.clk.Now())
	i := len(a.times) - 1
	if i >= len(a.responses) {
		i = len(a.responses) - 1
	}
	return a.responses[i]
}

func (a *recordingAuth) attemptTimes() []time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]time.Time(nil), a.times...)
}

func runWithFakeClock(t *testing.T, c *Controller, clk *testutil.FakeClock, auth AuthFunc) (Result, error) {
	t.Helper()

	type outcome struct {
		result Result
		err    error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		result, err := c.Run(context.Background(), auth)
		resultCh <- outcome{result, err}
	}()

	// Drive every pending delay until the run finishes.
	for {
		select {
		case out := <-resultCh:
			return out.result, out.err
		default:
		}
		if clk.Waiters() > 0 {
			clk.Advance(DefaultDelay)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestController_SucceedsFirstAttempt(t *testing.T) {
	clk := testutil.NewFakeClock(time.Unix(0, 0))
	auth := &recordingAuth{clk: clk, responses: []*dispatch.Record{testutil.RecordWithRoute("Job Offer")}}

	result, err := New(0, 0, clk).Run(context.Background(), auth.auth)
	require.NoError(t, err)

	require.False(t, result.Exhausted)
	require.Equal(t, 1, result.Attempts)
	require.Equal(t, "Job Offer", result.Record.Route())
}

func TestController_ExactlyThreeAttemptsThenStops(t *testing.T) {
	clk := testutil.NewFakeClock(time.Unix(0, 0))
	auth := &recordingAuth{clk: clk, responses: []*dispatch.Record{
		testutil.FailureRecord(1, "Value cannot be null"),
	}}

	result, err := runWithFakeClock(t, New(0, 0, clk), clk, auth.auth)
	require.NoError(t, err)

	require.True(t, result.Exhausted)
	require.Equal(t, 3, result.Attempts)
	// The last failure is kept so the error screen can show its message.
	require.Equal(t, "Value cannot be null", result.Record.Message())

	times := auth.attemptTimes()
	require.Len(t, times, 3)
	require.Equal(t, DefaultDelay, times[1].Sub(times[0]))
	require.Equal(t, DefaultDelay, times[2].Sub(times[1]))
}

func TestController_RecoversMidRun(t *testing.T) {
	clk := testutil.NewFakeClock(time.Unix(0, 0))
	auth := &recordingAuth{clk: clk, responses: []*dispatch.Record{
		testutil.FailureRecord(1, "transient"),
		testutil.RecordWithRoute("Job Offer"),
	}}

	result, err := runWithFakeClock(t, New(0, 0, clk), clk, auth.auth)
	require.NoError(t, err)

	require.False(t, result.Exhausted)
	require.Equal(t, 2, result.Attempts)
	require.True(t, result.Record.OK())
}

func TestController_CancelDuringDelay(t *testing.T) {
	clk := testutil.NewFakeClock(time.Unix(0, 0))
	auth := &recordingAuth{clk: clk, responses: []*dispatch.Record{testutil.FailureRecord(1, "nope")}}

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan Result, 1)
	go func() {
		result, err := New(0, 0, clk).Run(ctx, auth.auth)
		require.ErrorIs(t, err, context.Canceled)
		resultCh <- result
	}()

	// Wait for the first attempt to fail and the delay timer to arm.
	require.Eventually(t, func() bool { return clk.Waiters() == 1 },
		time.Second, time.Millisecond)
	cancel()

	select {
	case result := <-resultCh:
		require.Equal(t, 1, result.Attempts)
		require.False(t, result.Exhausted)
	case <-time.After(time.Second):
		require.Fail(t, "run did not return after cancellation")
	}
}
