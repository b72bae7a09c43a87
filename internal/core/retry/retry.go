// Package retry executes remote operations behind a rate limiter, a
// circuit breaker, and exponential backoff with jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/lumadocs/driveline/internal/core/breaker"
	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/logger"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt
	DefaultMaxRetries = 3

	// DefaultBaseDelay seeds the exponential backoff schedule
	DefaultBaseDelay = time.Second

	// DefaultMaxDelay caps a single backoff wait
	DefaultMaxDelay = 60 * time.Second

	// DefaultMinRequestInterval spaces outgoing requests
	DefaultMinRequestInterval = 100 * time.Millisecond

	jitterMinFraction = 0.1
	jitterMaxFraction = 0.3
)

// Config tunes an Executor
type Config struct {
	MaxRetries         int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	MinRequestInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MinRequestInterval <= 0 {
		c.MinRequestInterval = DefaultMinRequestInterval
	}
	return c
}

// Executor wraps remote calls with the full resilience chain:
// breaker gate, rate limit wait, attempt, classify, backoff.
type Executor struct {
	cfg     Config
	breaker *breaker.CircuitBreaker
	limiter *rate.Limiter
	log     logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Executor sharing the given circuit breaker.
// The breaker is shared so all remote calls of one dependency trip together.
func New(cfg Config, cb *breaker.CircuitBreaker, log logger.Logger) *Executor {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.Get()
	}
	return &Executor{
		cfg:     cfg,
		breaker: cb,
		limiter: rate.NewLimiter(rate.Every(cfg.MinRequestInterval), 1),
		log:     log,
		sleep:   sleepCtx,
	}
}

// Breaker exposes the underlying circuit breaker
func (e *Executor) Breaker() *breaker.CircuitBreaker {
	return e.breaker
}

// Execute runs op with retries. Every attempt, including retries, first
// checks the breaker and then waits on the rate limiter. Non-retryable
// errors and context cancellation return immediately.
func (e *Executor) Execute(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if e.breaker != nil && !e.breaker.CanExecute() {
			e.log.Warn("circuit open, rejecting request", "operation", name)
			return domain.ErrCircuitOpen
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			if e.breaker != nil {
				e.breaker.RecordSuccess()
			}
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if e.breaker != nil {
			e.breaker.RecordFailure()
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == e.cfg.MaxRetries {
			break
		}

		delay := e.backoff(attempt)
		e.log.Debug("retrying after backoff",
			"operation", name,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, e.cfg.MaxRetries+1, lastErr)
}

// backoff returns the wait before retry attempt+1: min(base*2^attempt, max)
// plus uniform jitter of 10-30% of the capped delay.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := float64(e.cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(e.cfg.MaxDelay) {
		delay = float64(e.cfg.MaxDelay)
	}

	jitterFraction := jitterMinFraction + rand.Float64()*(jitterMaxFraction-jitterMinFraction)
	return time.Duration(delay * (1 + jitterFraction))
}

// IsRetryable reports whether an error is transient. Permission and
// not-found errors are permanent; rate limiting and remote outages are
// worth retrying.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrPermissionDenied),
		errors.Is(err, domain.ErrCircuitOpen):
		return false
	case errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrRemoteUnavailable):
		return true
	default:
		// unknown errors are treated as transient
		return true
	}
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
