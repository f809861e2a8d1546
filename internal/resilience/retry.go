// Package resilience provides retry, breaker, and error classification helpers
// shared by every provider client.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior for idempotent provider calls.
type Policy struct {
	// Attempts is the total number of tries including the first. Default: 3.
	Attempts int

	// Base is the delay before the first retry. Default: 250ms.
	Base time.Duration

	// Cap bounds any single delay. Default: 5s.
	Cap time.Duration

	// Factor grows the delay after each attempt. Default: 2.
	Factor float64

	// Jitter randomizes each delay by ±Jitter of its value. Default: 0.2.
	Jitter float64

	// Retryable decides whether an error deserves another attempt.
	// Nil means IsTransient.
	Retryable func(err error) bool

	// Notify runs before each backoff sleep.
	Notify func(attempt int, err error)
}

// DefaultPolicy returns the policy used for marketplace, places, and search GETs.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Base:     250 * time.Millisecond,
		Cap:      5 * time.Second,
		Factor:   2,
		Jitter:   0.2,
	}
}

// Retry runs fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := RetryVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryVal is Retry for calls that produce a value.
func RetryVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var (
		zero T
		err  error
	)
	for attempt := 1; ; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt >= p.Attempts {
			return zero, err
		}
		if p.Notify != nil {
			p.Notify(attempt, err)
		}

		t := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, err
		case <-t.C:
		}
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.Base <= 0 {
		p.Base = d.Base
	}
	if p.Cap <= 0 {
		p.Cap = d.Cap
	}
	if p.Factor < 1 {
		p.Factor = d.Factor
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// delay returns the sleep before retry number attempt (1-based).
func (p Policy) delay(attempt int) time.Duration {
	d := math.Min(float64(p.Base)*math.Pow(p.Factor, float64(attempt-1)), float64(p.Cap))
	if p.Jitter > 0 {
		d += d * p.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(math.Max(d, 0))
}

// LogRetries returns a Notify hook that records each retry at warn level.
func LogRetries(provider, op string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("resilience: retrying provider call",
			zap.String("provider", provider),
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
