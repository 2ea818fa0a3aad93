package directory

import (
	"context"
	"errors"
	"log/slog"
)

// BreakerKey identifies the directory dependency in the shared breaker
// state store.
const BreakerKey = "employee_directory"

// ResilientClient composes the circuit breaker and the retry helper
// around any Client. The order is fixed: the breaker is consulted before
// any I/O is attempted, the fetch runs under the retry policy, and the
// outcome is recorded back on the breaker.
type ResilientClient struct {
	inner   Client
	breaker *Breaker
	retry   Retry
	log     *slog.Logger

	// OnOpen is invoked each time a call is short-circuited by an open
	// circuit. Optional.
	OnOpen func()
}

func NewResilientClient(inner Client, breaker *Breaker, retry Retry, log *slog.Logger) *ResilientClient {
	if log == nil {
		log = slog.Default()
	}
	return &ResilientClient{inner: inner, breaker: breaker, retry: retry, log: log}
}

func (c *ResilientClient) EmployeeByID(ctx context.Context, id string) (*Employee, error) {
	return resilientCall(ctx, c, func(ctx context.Context) (*Employee, error) {
		return c.inner.EmployeeByID(ctx, id)
	}, func(e *Employee) bool { return e == nil })
}

func (c *ResilientClient) EmployeesByIDs(ctx context.Context, ids []string) (map[string]Employee, error) {
	return resilientCall(ctx, c, func(ctx context.Context) (map[string]Employee, error) {
		return c.inner.EmployeesByIDs(ctx, ids)
	}, nil)
}

func (c *ResilientClient) IsActive(ctx context.Context, id string) (bool, error) {
	return resilientCall(ctx, c, func(ctx context.Context) (bool, error) {
		return c.inner.IsActive(ctx, id)
	}, nil)
}

func (c *ResilientClient) DepartmentID(ctx context.Context, id string) (string, error) {
	return resilientCall(ctx, c, func(ctx context.Context) (string, error) {
		return c.inner.DepartmentID(ctx, id)
	}, nil)
}

func resilientCall[T any](ctx context.Context, c *ResilientClient, fn func(context.Context) (T, error), empty func(T) bool) (T, error) {
	var zero T

	allowed, err := c.breaker.Allow(ctx, BreakerKey)
	if err != nil {
		c.log.Warn("breaker state read failed, allowing call", "key", BreakerKey, "err", err)
		allowed = true
	}
	if !allowed {
		if c.OnOpen != nil {
			c.OnOpen()
		}
		c.log.Warn("directory call short-circuited, circuit open", "key", BreakerKey)
		return zero, ErrUnavailable
	}

	result, callErr := DoRetry(ctx, c.retry, fn, empty)

	// Not-found is a definitive answer from a healthy dependency.
	usable := callErr == nil || errors.Is(callErr, ErrNotFound)
	if usable {
		if err := c.breaker.RecordSuccess(ctx, BreakerKey); err != nil {
			c.log.Warn("breaker success record failed", "key", BreakerKey, "err", err)
		}
	} else {
		if err := c.breaker.RecordFailure(ctx, BreakerKey); err != nil {
			c.log.Warn("breaker failure record failed", "key", BreakerKey, "err", err)
		}
	}

	if callErr != nil {
		return zero, callErr
	}
	return result, nil
}
