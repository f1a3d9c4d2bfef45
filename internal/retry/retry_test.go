package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-token-search/internal/solana"
)

// noSleep replaces the policy sleeper so tests run instantly.
func noSleep(p Policy) Policy {
	p.sleep = func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}
	return p
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	p := noSleep(DefaultPolicy())
	ctx := context.Background()

	attempts := 0
	result, err := Do(ctx, p, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &solana.RPCError{Kind: solana.KindRateLimited, Method: "getTransaction"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected ok, got %q", result)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	p := noSleep(DefaultPolicy())
	p.MaxRetries = 2
	ctx := context.Background()

	wantErr := &solana.RPCError{Kind: solana.KindTimeout, Method: "getAccountInfo"}
	attempts := 0
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		attempts++
		return 0, wantErr
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	// MaxRetries bounds additional attempts after the first.
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if solana.KindOf(err) != solana.KindTimeout {
		t.Errorf("expected last-seen error to surface, got %v", err)
	}
}

func TestDo_EmptyResultIsRetryable(t *testing.T) {
	p := noSleep(DefaultPolicy())
	ctx := context.Background()

	attempts := 0
	result, err := Do(ctx, p, func(ctx context.Context) ([]string, error) {
		attempts++
		if attempts == 1 {
			return nil, ErrEmptyResult
		}
		return []string{"sig"}, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("expected 1 result, got %d", len(result))
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	p := noSleep(DefaultPolicy())
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		attempts++
		cancel()
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected no further attempts after cancellation, got %d", attempts)
	}
}

func TestDelayFor_RateLimitedGrowsExponentially(t *testing.T) {
	p := Policy{
		BaseDelay:    100 * time.Millisecond,
		GrowthFactor: 2.0,
		DelayCap:     10 * time.Second,
		MaxJitter:    0,
	}.normalized()

	rateErr := &solana.RPCError{Kind: solana.KindRateLimited}

	d0 := p.delayFor(rateErr, 0)
	d1 := p.delayFor(rateErr, 1)
	d2 := p.delayFor(rateErr, 2)

	if d0 != 100*time.Millisecond {
		t.Errorf("attempt 0: expected 100ms, got %v", d0)
	}
	if d1 != 200*time.Millisecond {
		t.Errorf("attempt 1: expected 200ms, got %v", d1)
	}
	if d2 != 400*time.Millisecond {
		t.Errorf("attempt 2: expected 400ms, got %v", d2)
	}
}

func TestDelayFor_CappedAndKindAware(t *testing.T) {
	p := Policy{
		BaseDelay:    1 * time.Second,
		GrowthFactor: 10.0,
		DelayCap:     3 * time.Second,
		MaxJitter:    0,
	}.normalized()

	rateErr := &solana.RPCError{Kind: solana.KindRateLimited}
	if d := p.delayFor(rateErr, 5); d != 3*time.Second {
		t.Errorf("expected cap at 3s, got %v", d)
	}

	timeoutErr := &solana.RPCError{Kind: solana.KindTimeout}
	if d := p.delayFor(timeoutErr, 5); d != 2*time.Second {
		t.Errorf("timeout: expected 2x base, got %v", d)
	}

	if d := p.delayFor(errors.New("other"), 5); d != 1*time.Second {
		t.Errorf("unknown: expected base delay, got %v", d)
	}
}
