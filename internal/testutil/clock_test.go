package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeClock_TimerFiresOnAdvance(t *testing.T) {
	clk := NewFakeClock(time.Unix(1000, 0))
	timer := clk.NewTimer(3 * time.Second)

	clk.Advance(2 * time.Second)
	select {
	case <-timer.C():
		require.Fail(t, "timer fired early")
	default:
	}

	clk.Advance(time.Second)
	select {
	case fired := <-timer.C():
		require.Equal(t, time.Unix(1003, 0), fired)
	default:
		require.Fail(t, "timer did not fire")
	}
}

func TestFakeClock_TimerStop(t *testing.T) {
	clk := NewFakeClock(time.Unix(0, 0))
	timer := clk.NewTimer(time.Second)

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	clk.Advance(2 * time.Second)
	select {
	case <-timer.C():
		require.Fail(t, "stopped timer fired")
	default:
	}
}

func TestFakeClock_TickerRepeats(t *testing.T) {
	clk := NewFakeClock(time.Unix(0, 0))
	ticker := clk.NewTicker(10 * time.Second)

	clk.Advance(10 * time.Second)
	<-ticker.C()
	clk.Advance(10 * time.Second)
	<-ticker.C()

	ticker.Stop()
	clk.Advance(10 * time.Second)
	select {
	case <-ticker.C():
		require.Fail(t, "stopped ticker fired")
	default:
	}
}

func TestFakeClock_NowTracksAdvance(t *testing.T) {
	start := time.Unix(5000, 0)
	clk := NewFakeClock(start)
	clk.Advance(90 * time.Second)
	require.Equal(t, start.Add(90*time.Second), clk.Now())
}
