// Package retry provides a bounded retry policy with pluggable backoff and sleep.
package retry

import (
	"context"
	"time"
)

// Policy retries an operation at most MaxAttempts times. Backoff(n) is the pause
// after the n-th failed attempt, starting at 1.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// Exponential doubles from base: base, 2*base, 4*base, ...
func Exponential(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// NewExponential is the usual policy: maxAttempts tries, backoff doubling from base.
func NewExponential(maxAttempts int, base time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff:     Exponential(base),
		Sleep:       SleepContext,
	}
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do calls fn until it succeeds or the attempts run out, pausing after every
// failure. It returns the last error of fn, or the context error if a pause
// was interrupted.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if p.Backoff == nil {
			continue
		}
		if sleepErr := sleep(ctx, p.Backoff(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}
