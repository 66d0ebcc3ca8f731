// Package retry provides backoff retry logic for unreliable operations.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	perrors "github.com/p-blackswan/audit-intake/internal/errors"
)

// ErrRejected marks an attempt whose result did not pass the validator.
var ErrRejected = errors.New("result rejected by validator")

// Config holds retry configuration for calls to external services.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultConfig is the budget for outbound integration calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// Delay returns the wait after a failed attempt, jittered down to between
// half and all of the capped exponential value when Jitter is set.
func (c Config) Delay(attempt int) time.Duration {
	d := backoff(c.BaseDelay, c.MaxDelay, attempt)
	if c.Jitter {
		d = time.Duration(float64(d) * (0.5 + rand.Float64()*0.5))
	}
	return d
}

// Do runs fn up to MaxAttempts times. Only errors that errors.IsRetryable
// accepts are tried again; anything else is returned at once.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil || !perrors.IsRetryable(err) {
			return err
		}
		if attempt+1 == cfg.MaxAttempts {
			break
		}
		if serr := sleep(ctx, cfg.Delay(attempt)); serr != nil {
			return serr
		}
	}
	return err
}

// backoff doubles base per attempt and caps it at max when max is positive.
func backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if max > 0 && d > max {
		d = max
	}
	return d
}

// Policy is the per-call budget for Execute. Total attempts are
// MaxRetries+1 when starting from CurrentRetry 0.
type Policy struct {
	MaxRetries   int
	CurrentRetry int
	Backoff      time.Duration
	MaxBackoff   time.Duration

	// OnRetry, when set, is called before each wait with the attempt that failed.
	OnRetry func(attempt int, err error)
}

// Delay returns the wait before the retry that follows attempt. It doubles
// per attempt and never decreases.
func (p Policy) Delay(attempt int) time.Duration {
	return backoff(p.Backoff, p.MaxBackoff, attempt)
}

// Execute calls op until validate accepts its result or the retry budget is
// spent. An error from op counts as a failed attempt and is retried. A nil
// validate accepts any result. Exhaustion returns *errors.MaxRetriesError.
func Execute[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), validate func(T) bool) (T, error) {
	var zero T
	var lastErr error

	for attempt := p.CurrentRetry; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			if validate == nil || validate(v) {
				return v, nil
			}
			err = ErrRejected
		}
		lastErr = err

		if attempt >= p.MaxRetries {
			return zero, &perrors.MaxRetriesError{MaxRetries: p.MaxRetries, LastErr: lastErr}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr)
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
