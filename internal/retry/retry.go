// Package retry provides the single fixed-delay retry policy used by every
// external call site. Attempt counts and delays are parameters, not
// copy-pasted constants.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how an operation is retried: a total attempt budget and a
// fixed delay slept between attempts. Sleep is overridable for tests.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Sleep    func(time.Duration)
}

// Default matches the reference behavior for external transforms: three
// attempts with five seconds between them, no backoff.
func Default() Policy {
	return Policy{Attempts: 3, Delay: 5 * time.Second}
}

// ErrPermanent wraps errors that should stop the retry loop immediately.
var ErrPermanent = errors.New("permanent failure")

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Do runs op until it succeeds, the attempt budget is exhausted, the error is
// permanent, or the context is canceled. The last error is returned on
// exhaustion.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPermanent) || errors.Is(lastErr, context.Canceled) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		if sleep != nil {
			sleep(p.Delay)
			continue
		}
		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// DoValue runs op until accept approves its result, under the same budget
// rules as Do. A nil accept approves any successful op result.
func DoValue[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), accept func(T) error) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		value, opErr := op(ctx)
		if opErr != nil {
			return opErr
		}
		if accept != nil {
			if acceptErr := accept(value); acceptErr != nil {
				return acceptErr
			}
		}
		result = value
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
