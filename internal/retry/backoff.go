// Package retry provides the bounded retry loop the probe controller
// uses to fail over between candidate endpoints.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError wraps an error to signal that retrying will not help.
// Return [Permanent](err) from the operation function to stop retrying
// immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.  The backoff loop will return
// the inner error immediately without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ErrExhausted is wrapped into the error Do returns when MaxAttempts is
// reached.
var ErrExhausted = errors.New("retry budget exhausted")

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff runs an operation until it succeeds or a fixed attempt budget
// runs out, optionally pausing for a fixed interval between attempts.
type Backoff struct {
	// InitialDelay is the pause before every retry.  Zero means retry
	// immediately.
	InitialDelay time.Duration
	// MaxAttempts is the total number of tries including the first.
	// Must be positive; the loop never runs unbounded.
	MaxAttempts int
}

// Do executes fn repeatedly until it succeeds, returns a permanent
// error, or the attempt budget / context is exhausted.
//
// The attempt parameter passed to fn is 1-based.  On success fn should
// return nil.  To abort retrying, wrap the error with [Permanent].
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	if b.MaxAttempts < 1 {
		return fmt.Errorf("retry: MaxAttempts must be positive, got %d", b.MaxAttempts)
	}
	delay := b.InitialDelay
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		// Permanent errors are never retried.
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}

		if attempt >= b.MaxAttempts {
			return fmt.Errorf("%w after %d attempt(s): %w", ErrExhausted, attempt, err)
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-t.C:
			}
		}
	}
}
