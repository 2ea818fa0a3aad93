package directory

import (
	"context"
	"time"
)

// BreakerState is the persisted per-key failure record. Shared across
// callers: independent per-call breakers would never trip.
type BreakerState struct {
	Failures    int
	LastFailure time.Time
}

// BreakerStore abstracts where breaker state lives so the breaker logic
// stays storage-agnostic: a mutex-guarded map in-process, redis when
// multiple instances must share one view of a dependency's health.
// Incr must apply atomically so concurrent failures never lose a count.
type BreakerStore interface {
	Get(ctx context.Context, key string) (BreakerState, error)
	Incr(ctx context.Context, key string, at time.Time) error
	Reset(ctx context.Context, key string) error
}

type Breaker struct {
	store     BreakerStore
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

func NewBreaker(store BreakerStore, threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{store: store, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a call to the keyed dependency may proceed.
// Below the failure threshold it always may. At or above the threshold
// the call is blocked until the cooldown has elapsed since the last
// failure; once it has, the counter resets and one trial call is let
// through.
func (b *Breaker) Allow(ctx context.Context, key string) (bool, error) {
	state, err := b.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if state.Failures < b.threshold {
		return true, nil
	}
	if b.now().Sub(state.LastFailure) >= b.cooldown {
		if err := b.store.Reset(ctx, key); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (b *Breaker) RecordFailure(ctx context.Context, key string) error {
	return b.store.Incr(ctx, key, b.now())
}

func (b *Breaker) RecordSuccess(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}
