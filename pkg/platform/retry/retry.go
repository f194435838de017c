// Package retry runs infrastructure calls with bounded exponential backoff.
//
// Domain failures (authorization, invariant, wrong code) must not be retried;
// wrap them with Permanent or let the Classifier reject them.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry loop.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     uint64
	MaxElapsed      time.Duration
}

// DefaultPolicy is used for event-log and channel calls when nothing else is configured.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxAttempts:     4,
		MaxElapsed:      5 * time.Second,
	}
}

// Classifier decides whether an error may be retried.
type Classifier func(error) bool

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls fn until it succeeds, returns a permanent error, the classifier
// rejects the error, the policy is exhausted, or ctx is done. The last error
// is returned unchanged.
func Do(ctx context.Context, p Policy, retryable Classifier, fn func(ctx context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = p.MaxElapsed
	eb.RandomizationFactor = 0.2

	var b backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, p.MaxAttempts-1)
	}
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
