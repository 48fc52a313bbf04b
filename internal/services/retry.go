package services

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/desertthunder/trackq/internal/shared"
)

// RetryPolicy bounds how often a single request is attempted and how long to wait between attempts.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Retryable       func(error) bool // nil uses [IsRetryable]
}

// DefaultRetryPolicy returns 3 attempts with a 2s initial and 6s maximum wait, doubling each time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     6 * time.Second,
		Multiplier:      2,
	}
}

// RetryPolicyFromConfig builds a policy from the [retry] config section.
func RetryPolicyFromConfig(c shared.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     c.MaxAttempts,
		InitialInterval: c.InitialInterval.Duration,
		MaxInterval:     c.MaxInterval.Duration,
		Multiplier:      c.Multiplier,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, attempts run out, or ctx ends.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))
}

// IsRetryable reports whether err is a transient failure: a network error, a 5xx response, or malformed JSON.
// Cancellation and deadline errors are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}

	if errors.Is(err, shared.ErrMalformedResponse) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
