package countdown

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdown_Fires(t *testing.T) {
	var fired atomic.Int32
	c := New(10*time.Millisecond, 0, func() { fired.Add(1) })

	assert.Eventually(t, func() bool { return c.Fired() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Zero(t, c.Remaining())

	// Firing is one-shot; cancel after fire reports false.
	assert.False(t, c.Cancel())
}

func TestCountdown_CancelPreemptsFire(t *testing.T) {
	var fired atomic.Int32
	c := New(time.Hour, 0, func() { fired.Add(1) })

	assert.True(t, c.Cancel())
	assert.True(t, c.Cancelled())
	assert.False(t, c.Fired())
	assert.Zero(t, c.Remaining())

	// A second cancel no longer pre-empts anything.
	assert.False(t, c.Cancel())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestCountdown_RemainingRoundsUp(t *testing.T) {
	c := New(0, 10, nil)
	defer c.Cancel()

	remaining := c.Remaining()
	assert.GreaterOrEqual(t, remaining, 9)
	assert.LessOrEqual(t, remaining, 10)
}

// The arming delay must not leak into the visible count: a countdown
// advertised as 10 seconds reports at most 10 even while the delay is
// still running.
func TestCountdown_RemainingExcludesArmingDelay(t *testing.T) {
	c := New(time.Hour, 10, nil)
	defer c.Cancel()

	assert.Equal(t, 10, c.Remaining())
}

func TestRegistry_PutReplacesAndCancels(t *testing.T) {
	r := NewRegistry(time.Minute)

	first := New(time.Hour, 0, nil)
	second := New(time.Hour, 0, nil)
	r.Put("k", first)
	r.Put("k", second)

	assert.True(t, first.Cancelled())
	got, ok := r.Get("k")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RemoveCancels(t *testing.T) {
	r := NewRegistry(time.Minute)
	c := New(time.Hour, 0, nil)
	r.Put("k", c)

	r.Remove("k")
	assert.True(t, c.Cancelled())
	_, ok := r.Get("k")
	assert.False(t, ok)
}

func TestRegistry_SweepDropsExpired(t *testing.T) {
	r := NewRegistry(time.Nanosecond)
	stale := New(time.Hour, 0, nil)
	r.Put("stale", stale)

	time.Sleep(5 * time.Millisecond)
	removed := r.Sweep()

	assert.Equal(t, 1, removed)
	assert.True(t, stale.Cancelled())
	assert.Zero(t, r.Len())
}
