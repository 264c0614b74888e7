package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeterministicClock(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c := NewDeterministicClock(start)
	require.Equal(t, start, c.Now())

	fired := <-c.After(100 * time.Millisecond)
	require.Equal(t, start.Add(100*time.Millisecond), fired)
	require.Equal(t, fired, c.Now())

	c.AdvanceTime(-time.Second)
	require.Equal(t, fired, c.Now(), "clock must not move backwards")

	require.Equal(t, start.Add(2100*time.Millisecond), c.AdvanceTime(2*time.Second))
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	now := SystemClock.Now()
	require.False(t, now.Before(before))
	select {
	case <-SystemClock.After(time.Millisecond):
	case <-time.After(5 * time.Second):
		t.Fatal("system clock did not fire")
	}
}
