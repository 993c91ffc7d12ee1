package ingestor

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy wraps an operation with retries.
type RetryPolicy interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// RetryObserver is notified of retry decisions. Attempts are 1-based.
type RetryObserver interface {
	Backoff(attempt int, delay time.Duration, err error)
	Success(attempts int)
	GiveUp(attempts int, err error)
}

type nopRetry struct{}

func (nopRetry) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

type nopObserver struct{}

func (nopObserver) Backoff(int, time.Duration, error) {}
func (nopObserver) Success(int)                       {}
func (nopObserver) GiveUp(int, error)                 {}

// SimpleRetry retries an operation using exponential backoff.
//
// Only errors accepted by Retryable are retried; a nil Retryable retries every
// error. Whatever error ends the loop is returned as is, so callers can still
// inspect it with errors.As.
type SimpleRetry struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    bool

	Retryable func(err error) bool
	Observer  RetryObserver
}

// DefaultFetchRetry is the policy applied around the archive download.
var DefaultFetchRetry = SimpleRetry{
	Attempts:  3,
	BaseDelay: time.Second,
	MaxDelay:  30 * time.Second,
	Jitter:    true,
	Retryable: IsRetryable,
}

func (r SimpleRetry) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	obs := r.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	base := r.BaseDelay
	if base < 0 {
		base = 0
	}
	max := r.MaxDelay
	if max < base {
		max = base
	}

	delay := base

	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			obs.Success(i)
			return nil
		}

		if i >= attempts || (r.Retryable != nil && !r.Retryable(err)) {
			obs.GiveUp(i, err)
			return err
		}

		d := delay
		if r.Jitter {
			j := 0.8 + rand.Float64()*0.4
			d = time.Duration(float64(d) * j)
		}
		if d > max {
			d = max
		}
		obs.Backoff(i, d, err)

		if d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		delay *= 2
		if delay > max {
			delay = max
		}
	}
}
