package session

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy retries operations that fail with ErrTransientStore.
// Every other error, including context expiry, stops immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is three attempts with exponential backoff from 50ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    time.Second,
	}
}

// NoRetry runs the operation exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}
}

// A go-retry Backoff is stateful, so each Do builds its own.
func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := retry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(uint64(attempts-1), b) // #nosec G115 -- attempts >= 1.
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
// The last error is returned unwrapped.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && errors.Is(err, ErrTransientStore) {
			return retry.RetryableError(err)
		}
		return err
	})
}
