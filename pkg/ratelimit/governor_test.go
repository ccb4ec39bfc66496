package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/retry"
)

func newTestGovernor(clock *FakeClock, maxRetries int) *Governor {
	return NewGovernor(Policy{
		MaxCallsPerWindow: 50,
		Window:            time.Minute,
		InterCallDelay:    1200 * time.Millisecond,
		MaxRetries:        maxRetries,
		ThrottleBackoff:   &retry.ConstantBackoff{Delay: 65 * time.Second},
	}, clock, logger.NewNopLogger())
}

func throttled() error {
	return errs.New(errs.ErrorTypeRateLimit, "RATE_LIMIT_EXCEEDED").WithCode(429)
}

func TestGovernorSpacesCalls(t *testing.T) {
	clock := NewFakeClock(epoch)
	g := newTestGovernor(clock, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, g.Do(context.Background(), "AppendRow", func(context.Context) error { return nil }))
	}

	assert.Equal(t, int64(3), g.Calls())
	assert.Equal(t, epoch.Add(3600*time.Millisecond), clock.Now())
}

func TestGovernorRetriesThrottle(t *testing.T) {
	clock := NewFakeClock(epoch)
	g := newTestGovernor(clock, 3)
	tl := logger.NewTestLogger()
	g.logger = tl

	attempts := 0
	err := g.Do(context.Background(), "UpdateRange", func(context.Context) error {
		attempts++
		if attempts <= 2 {
			return throttled()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, int64(3), g.Calls())
	assert.Equal(t, []time.Duration{
		1200 * time.Millisecond, 65 * time.Second,
		1200 * time.Millisecond, 65 * time.Second,
		1200 * time.Millisecond,
	}, clock.Sleeps())
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 2)
}

func TestGovernorQuotaExhausted(t *testing.T) {
	clock := NewFakeClock(epoch)
	g := newTestGovernor(clock, 2)

	attempts := 0
	err := g.Do(context.Background(), "ReadAllRows", func(context.Context) error {
		attempts++
		return throttled()
	})

	require.Error(t, err)
	assert.True(t, errs.IsQuotaExhausted(err))
	assert.True(t, errs.IsThrottle(err), "cause stays reachable")
	assert.Equal(t, 3, attempts)
}

func TestGovernorNonThrottleErrorPropagatesImmediately(t *testing.T) {
	clock := NewFakeClock(epoch)
	g := newTestGovernor(clock, 3)

	notFound := errs.New(errs.ErrorTypeNotFound, "worksheet Tags")
	attempts := 0
	err := g.Do(context.Background(), "OpenWorksheet", func(context.Context) error {
		attempts++
		return notFound
	})

	assert.Same(t, notFound, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, []time.Duration{1200 * time.Millisecond}, clock.Sleeps())
}

func TestGovernorCompletesCallDespiteCancellation(t *testing.T) {
	clock := NewFakeClock(epoch)
	g := newTestGovernor(clock, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := g.Do(ctx, "AppendRow", func(callCtx context.Context) error {
		ran = true
		return callCtx.Err()
	})

	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestGovernorRespectsWindow(t *testing.T) {
	clock := NewFakeClock(epoch)
	g := NewGovernor(Policy{MaxCallsPerWindow: 2, Window: 60 * time.Second}, clock, logger.NewNopLogger())

	for i := 0; i < 3; i++ {
		require.NoError(t, g.Do(context.Background(), "op", func(context.Context) error { return nil }))
		clock.Advance(time.Second)
	}
	// third call waited until t=60 then one more second passed
	assert.Equal(t, epoch.Add(61*time.Second), clock.Now())
}
