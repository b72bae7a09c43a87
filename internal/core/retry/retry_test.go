package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumadocs/driveline/internal/core/breaker"
	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/logger"
)

func newTestExecutor(cfg Config, cb *breaker.CircuitBreaker) *Executor {
	e := New(cfg, cb, &logger.NullLogger{})
	e.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return e
}

func fastConfig() Config {
	return Config{
		MaxRetries:         3,
		BaseDelay:          time.Millisecond,
		MaxDelay:           10 * time.Millisecond,
		MinRequestInterval: time.Microsecond,
	}
}

func TestExecuteSuccessFirstAttempt(t *testing.T) {
	e := newTestExecutor(fastConfig(), nil)

	calls := 0
	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	e := newTestExecutor(fastConfig(), nil)

	calls := 0
	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return domain.ErrRemoteUnavailable
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestExecuteExhaustsRetries(t *testing.T) {
	e := newTestExecutor(fastConfig(), nil)

	calls := 0
	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return domain.ErrRateLimited
	})
	if err == nil {
		t.Fatal("Expected error after retries exhausted")
	}
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("Expected wrapped ErrRateLimited, got %v", err)
	}
	// initial attempt + 3 retries
	if calls != 4 {
		t.Errorf("Expected 4 calls, got %d", calls)
	}
}

func TestExecuteDoesNotRetryPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", domain.ErrNotFound},
		{"permission denied", domain.ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExecutor(fastConfig(), nil)

			calls := 0
			err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
				calls++
				return tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
			if calls != 1 {
				t.Errorf("Expected 1 call, got %d", calls)
			}
		})
	}
}

func TestExecuteRespectsOpenBreaker(t *testing.T) {
	cb := breaker.New(2, time.Minute)
	e := newTestExecutor(fastConfig(), cb)

	cb.RecordFailure()
	cb.RecordFailure()

	calls := 0
	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, domain.ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no calls with open breaker, got %d", calls)
	}
}

func TestExecuteFeedsBreaker(t *testing.T) {
	cb := breaker.New(3, time.Minute)
	e := newTestExecutor(Config{
		MaxRetries:         5,
		BaseDelay:          time.Millisecond,
		MaxDelay:           time.Millisecond,
		MinRequestInterval: time.Microsecond,
	}, cb)

	calls := 0
	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return domain.ErrRemoteUnavailable
	})
	if !errors.Is(err, domain.ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen once the breaker trips mid-retry, got %v", err)
	}
	// breaker opens after 3 failed attempts, the 4th loop iteration is gated
	if calls != 3 {
		t.Errorf("Expected 3 calls before breaker tripped, got %d", calls)
	}
}

func TestExecuteSuccessClosesBreaker(t *testing.T) {
	cb := breaker.New(5, time.Minute)
	e := newTestExecutor(fastConfig(), cb)

	cb.RecordFailure()
	cb.RecordFailure()

	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if snap := cb.Snapshot(); snap.ConsecutiveFailures != 0 {
		t.Errorf("Expected success to reset breaker failures, got %d", snap.ConsecutiveFailures)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	e := newTestExecutor(fastConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := e.Execute(ctx, "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no calls with cancelled context, got %d", calls)
	}
}

func TestBackoffSchedule(t *testing.T) {
	e := New(Config{
		BaseDelay: time.Second,
		MaxDelay:  60 * time.Second,
	}, nil, &logger.NullLogger{})

	for attempt := 0; attempt < 10; attempt++ {
		d := e.backoff(attempt)

		base := time.Second * (1 << attempt)
		if base > 60*time.Second {
			base = 60 * time.Second
		}
		min := time.Duration(float64(base) * 1.1)
		max := time.Duration(float64(base) * 1.3)

		if d < min || d > max {
			t.Errorf("Attempt %d: expected backoff in [%v, %v], got %v", attempt, min, max, d)
		}
	}
}

func TestBackoffCapped(t *testing.T) {
	e := New(Config{
		BaseDelay: time.Second,
		MaxDelay:  60 * time.Second,
	}, nil, &logger.NullLogger{})

	// far past the cap; jitter adds at most 30%
	d := e.backoff(20)
	if d > time.Duration(float64(60*time.Second)*1.3) {
		t.Errorf("Expected backoff capped near 60s, got %v", d)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", domain.ErrRateLimited, true},
		{"remote unavailable", domain.ErrRemoteUnavailable, true},
		{"unknown", errors.New("connection reset"), true},
		{"not found", domain.ErrNotFound, false},
		{"permission denied", domain.ErrPermissionDenied, false},
		{"circuit open", domain.ErrCircuitOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
