// Package retry provides a small exponential-backoff wrapper around a
// fallible operation. Each call is independent; no state is carried between
// invocations.
package retry

import (
	"context"
	"time"
)

// Options controls how many times an operation is attempted and how long the
// waits between attempts are.
//
// The delay before retry k (1-based) is BaseDelay * 2^(k-1), so with
// BaseDelay=400ms the waits are 400ms, 800ms, 1600ms, ...
type Options struct {
	Tries     int
	BaseDelay time.Duration
}

// DefaultOptions matches the upload retry budget used by the queue runner:
// 3 attempts with a 400ms base delay.
func DefaultOptions() Options {
	return Options{Tries: 3, BaseDelay: 400 * time.Millisecond}
}

// WithBackoff invokes op up to opts.Tries times, sleeping with exponential
// backoff between attempts. On success the operation's result is returned
// immediately. If every attempt fails, the error of the final attempt is
// returned. A cancelled context aborts the wait and returns ctx.Err().
func WithBackoff[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T

	tries := opts.Tries
	if tries < 1 {
		tries = 1
	}

	var lastErr error
	delay := opts.BaseDelay

	for attempt := 1; attempt <= tries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			delay *= 2
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return zero, lastErr
}
