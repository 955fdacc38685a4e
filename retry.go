package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sethvargo/go-retry"
)

const (
	// DefaultDispatchAttempts bounds delivery tries, first attempt included.
	DefaultDispatchAttempts = 5
	// DefaultDispatchDelay is the fixed wait between attempts. No backoff,
	// no jitter: the transport is assumed low latency and attempts are few.
	DefaultDispatchDelay = 100 * time.Millisecond
)

// DispatchPolicy governs retried notification delivery. The zero value uses
// the defaults.
type DispatchPolicy struct {
	Attempts uint64
	Delay    time.Duration
}

func (p DispatchPolicy) attempts() uint64 {
	if p.Attempts == 0 {
		return DefaultDispatchAttempts
	}
	return p.Attempts
}

func (p DispatchPolicy) delay() time.Duration {
	if p.Delay == 0 {
		return DefaultDispatchDelay
	}
	return p.Delay
}

// DispatchWithRetry runs notify until it succeeds or the policy's attempts
// are exhausted. Exhaustion surfaces as a dispatch failure the caller cannot
// recover from. The wait holds no store-level state: callers confirm the
// account needs the notification before dispatching.
func DispatchWithRetry(ctx context.Context, policy DispatchPolicy, notify func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(policy.attempts()-1, retry.NewConstant(policy.delay()))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := notify(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		// a cancelled wait is not transport exhaustion
		if ctxErr := ctx.Err(); ctxErr != nil {
			return goerrors.Wrap(ctxErr, goerrors.CategoryOperation, "notification dispatch cancelled")
		}

		clone := ErrDispatchExhausted.Clone()
		if clone == nil {
			return ErrDispatchExhausted
		}
		clone.Source = ErrDispatchExhausted
		return clone.WithMetadata(map[string]any{
			"attempts": policy.attempts(),
			"cause":    err.Error(),
		})
	}

	return nil
}
