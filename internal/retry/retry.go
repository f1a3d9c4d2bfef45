// Package retry wraps fallible remote operations with bounded retries and
// kind-aware backoff. It is the single resilience seam: every remote call in
// the engine passes through Do.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"solana-token-search/internal/solana"
)

// ErrEmptyResult signals that an operation returned no data and the call
// site considers that transient. Whether an empty RPC result is valid is a
// per-call-site decision; returning this sentinel requests a retry.
var ErrEmptyResult = errors.New("empty result")

// Default policy values.
const (
	DefaultMaxRetries   = 3
	DefaultBaseDelay    = 500 * time.Millisecond
	DefaultGrowthFactor = 2.0
	DefaultDelayCap     = 10 * time.Second
	DefaultMaxJitter    = 500 * time.Millisecond
)

// Policy controls retry behavior.
type Policy struct {
	MaxRetries   int           // additional attempts after the first
	BaseDelay    time.Duration // unit delay for backoff computation
	GrowthFactor float64       // exponential growth for rate-limited delays
	DelayCap     time.Duration // upper bound on any single delay
	MaxJitter    time.Duration // uniform random jitter added to rate-limited delays

	// sleep is overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the standard policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   DefaultMaxRetries,
		BaseDelay:    DefaultBaseDelay,
		GrowthFactor: DefaultGrowthFactor,
		DelayCap:     DefaultDelayCap,
		MaxJitter:    DefaultMaxJitter,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.GrowthFactor < 1 {
		p.GrowthFactor = DefaultGrowthFactor
	}
	if p.DelayCap <= 0 {
		p.DelayCap = DefaultDelayCap
	}
	if p.sleep == nil {
		p.sleep = sleepCtx
	}
	return p
}

// delayFor computes the delay before the next attempt based on the failure
// kind. Rate limits back off exponentially with jitter; timeouts wait a
// fixed medium delay; everything else a short one.
func (p Policy) delayFor(err error, attempt int) time.Duration {
	switch solana.KindOf(err) {
	case solana.KindRateLimited:
		d := time.Duration(float64(p.BaseDelay) * math.Pow(p.GrowthFactor, float64(attempt)))
		if p.MaxJitter > 0 {
			d += time.Duration(rand.Int63n(int64(p.MaxJitter)))
		}
		if d > p.DelayCap {
			d = p.DelayCap
		}
		return d
	case solana.KindTimeout:
		return 2 * p.BaseDelay
	default:
		return p.BaseDelay
	}
}

// Do runs op with up to MaxRetries+1 attempts, failing with the last-seen
// error. It never mutates caller state and honors ctx between attempts.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.delayFor(lastErr, attempt-1)); err != nil {
				return zero, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
	}

	return zero, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
