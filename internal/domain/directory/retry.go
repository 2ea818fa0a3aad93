package directory

import (
	"context"
	"errors"
	"time"
)

// Retry wraps a call with capped exponential backoff. A transient error
// or an empty result triggers another attempt; a non-transient error
// propagates immediately. Exhausting the attempts with only empty
// results returns the last empty result, not an error.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Transient decides whether an error is worth another attempt.
	// Nil means only ErrUnavailable is transient.
	Transient func(error) bool
}

func (r Retry) transient(err error) bool {
	if r.Transient != nil {
		return r.Transient(err)
	}
	return errors.Is(err, ErrUnavailable)
}

// delay for the 1-based attempt number: min(MaxDelay, BaseDelay * 2^(n-1)).
func (r Retry) delay(attempt int) time.Duration {
	d := r.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	if d > r.MaxDelay {
		return r.MaxDelay
	}
	return d
}

// DoRetry runs fn under the retry policy. empty reports whether a
// non-error result still counts as "nothing usable" (a nil employee, a
// false lookup) and should be retried.
func DoRetry[T any](ctx context.Context, r Retry, fn func(context.Context) (T, error), empty func(T) bool) (T, error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil && (empty == nil || !empty(result)) {
			return result, nil
		}
		if err != nil && !r.transient(err) {
			var zero T
			return zero, err
		}
		last, lastErr = result, err

		if attempt == attempts {
			break
		}
		if err := sleep(ctx, r.delay(attempt)); err != nil {
			var zero T
			return zero, err
		}
	}
	if lastErr != nil {
		var zero T
		return zero, lastErr
	}
	return last, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
