package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/metrics"
	"profilesync/pkg/retry"
)

// Policy is the remote quota policy
type Policy struct {
	MaxCallsPerWindow int
	Window            time.Duration
	InterCallDelay    time.Duration
	MaxRetries        int
	// ThrottleBackoff is built from the configured strategy, e.g. a fixed 65s
	ThrottleBackoff retry.BackoffStrategy
}

// Governor gates every remote table call: it blocks on the call window,
// spaces calls by InterCallDelay, and retries throttled calls with backoff.
// One Governor is shared by every component that talks to the same store.
type Governor struct {
	policy Policy
	window *SlidingWindow
	clock  Clock
	logger logger.Logger
	calls  atomic.Int64
}

// NewGovernor creates a governor; a nil clock uses the wall clock
func NewGovernor(p Policy, clock Clock, l logger.Logger) *Governor {
	if clock == nil {
		clock = RealClock()
	}
	if p.ThrottleBackoff == nil {
		p.ThrottleBackoff = &retry.ConstantBackoff{}
	}
	return &Governor{
		policy: p,
		window: NewSlidingWindow(p.MaxCallsPerWindow, p.Window, clock),
		clock:  clock,
		logger: logger.OrGlobal(l).WithField("component", "ratelimit"),
	}
}

// Do runs fn under the quota policy. Non-throttle errors are returned as-is
// without retry; a call still throttled after MaxRetries retries fails with
// a quota_exhausted error. A call that has started is never abandoned on
// cancellation: ctx only feeds values through to fn.
func (g *Governor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	callCtx := context.WithoutCancel(ctx)

	err := retry.Do(func() error {
		started := g.clock.Now()
		if err := g.window.Wait(callCtx); err != nil {
			return err
		}
		metrics.RateLimitWaitSeconds.Observe(g.clock.Now().Sub(started).Seconds())

		g.calls.Add(1)
		metrics.TableCallsTotal.WithLabelValues(op).Inc()
		err := fn(callCtx)

		_ = g.clock.Sleep(callCtx, g.policy.InterCallDelay)

		if errs.IsThrottle(err) {
			metrics.TableThrottlesTotal.WithLabelValues(op).Inc()
		}
		return err
	}, &retry.Config{
		MaxAttempts: g.policy.MaxRetries + 1,
		Backoff:     g.policy.ThrottleBackoff,
		RetryIf:     errs.IsThrottle,
		Context:     callCtx,
		Sleep:       g.clock.Sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.LogThrottle(g.logger, op, attempt, delay)
		},
	})

	if errors.Is(err, retry.ErrMaxAttemptsExceeded) {
		metrics.QuotaExhaustedTotal.Inc()
		g.logger.ErrorWithFields("Quota exhausted", map[string]interface{}{
			"op":      op,
			"retries": g.policy.MaxRetries,
		})
		return errs.Wrap(errs.ErrorTypeQuotaExhausted, err, fmt.Sprintf("%s throttled after %d retries", op, g.policy.MaxRetries))
	}
	return err
}

// Calls returns the number of remote calls issued, retries included
func (g *Governor) Calls() int64 {
	return g.calls.Load()
}

// Window exposes the call log for inspection
func (g *Governor) Window() *SlidingWindow {
	return g.window
}
