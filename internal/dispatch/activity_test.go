package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"livery/internal/clock"
)

func TestActivityMonitor_StampPublishes(t *testing.T) {
	monitor := NewActivityMonitor(clock.RealClock{})
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := monitor.Broker().Subscribe(ctx)

	stamped := monitor.Stamp()
	require.Equal(t, stamped, monitor.Last())

	select {
	case event := <-ch:
		require.Equal(t, stamped, event.Payload)
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for activity event")
	}
}

func TestActivityMonitor_LastIsMostRecent(t *testing.T) {
	monitor := NewActivityMonitor(clock.RealClock{})
	defer monitor.Close()

	first := monitor.Stamp()
	second := monitor.Stamp()
	require.False(t, second.Before(first))
	require.Equal(t, second, monitor.Last())
}
