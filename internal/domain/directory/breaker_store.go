package directory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryBreakerStore is the single-process default: a mutex-guarded map.
type MemoryBreakerStore struct {
	mu     sync.Mutex
	states map[string]BreakerState
}

func NewMemoryBreakerStore() *MemoryBreakerStore {
	return &MemoryBreakerStore{states: map[string]BreakerState{}}
}

func (s *MemoryBreakerStore) Get(_ context.Context, key string) (BreakerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key], nil
}

func (s *MemoryBreakerStore) Incr(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[key]
	state.Failures++
	state.LastFailure = at
	s.states[key] = state
	return nil
}

func (s *MemoryBreakerStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}

// RedisBreakerStore shares breaker state across instances. Each key is a
// hash of failure count and last-failure timestamp, incremented with
// HINCRBY so concurrent failures from different instances all land. The
// hash expires on its own after ttl, which should comfortably exceed the
// breaker cooldown so the failure record outlives a blocked window.
type RedisBreakerStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

const (
	breakerFieldFailures = "failures"
	breakerFieldLast     = "lastFailure"
)

func NewRedisBreakerStore(client *redis.Client, prefix string, ttl time.Duration) *RedisBreakerStore {
	return &RedisBreakerStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisBreakerStore) Get(ctx context.Context, key string) (BreakerState, error) {
	fields, err := s.client.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return BreakerState{}, err
	}
	if len(fields) == 0 {
		return BreakerState{}, nil
	}

	var state BreakerState
	if raw, ok := fields[breakerFieldFailures]; ok {
		failures, err := strconv.Atoi(raw)
		if err != nil {
			return BreakerState{}, err
		}
		state.Failures = failures
	}
	if raw, ok := fields[breakerFieldLast]; ok {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return BreakerState{}, err
		}
		state.LastFailure = time.Unix(0, nanos)
	}
	return state, nil
}

func (s *RedisBreakerStore) Incr(ctx context.Context, key string, at time.Time) error {
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, s.prefix+key, breakerFieldFailures, 1)
	pipe.HSet(ctx, s.prefix+key, breakerFieldLast, at.UnixNano())
	pipe.Expire(ctx, s.prefix+key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisBreakerStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
