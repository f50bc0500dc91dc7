package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func failing() (any, error) { return nil, errUpstream }

func succeeding() (any, error) { return "ok", nil }

func TestCircuitBreaker_TripsAfterFailures(t *testing.T) {
	cb := NewCircuitBreakerWithSettings("test", BreakerSettings{
		MaxRequests:  2,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
	})
	ctx := context.Background()

	_, err := cb.Execute(ctx, failing)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, "closed", cb.StateName())

	_, err = cb.Execute(ctx, failing)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, "open", cb.StateName())

	// Calls are rejected without reaching the collaborator.
	_, err = cb.Execute(ctx, succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreakerWithSettings("test", BreakerSettings{
		MaxRequests:  2,
		Interval:     time.Minute,
		Timeout:      20 * time.Millisecond,
		FailureRatio: 0.5,
	})
	ctx := context.Background()

	_, _ = cb.Execute(ctx, failing)
	_, _ = cb.Execute(ctx, failing)
	require.Equal(t, "open", cb.StateName())

	time.Sleep(30 * time.Millisecond)

	result, err := cb.Execute(ctx, succeeding)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "closed", cb.StateName())
}

func TestCircuitBreaker_SuccessesKeepItClosed(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, err := cb.Execute(ctx, succeeding)
		require.NoError(t, err)
	}
	assert.Equal(t, "closed", cb.StateName())
}
