package dues

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"
)

// withRetry runs fn until it succeeds, returns an error retryable rejects,
// or the retry policy is exhausted. The last error is returned unchanged.
func (d *Dues) withRetry(ctx context.Context, retryable func(error) bool, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retry.InitialInterval
	b.MaxInterval = d.retry.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(d.retry.Attempts))

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}

func isVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// isTransient treats everything but caller cancellation and bad input as
// worth another attempt. Used for idempotent writes only.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !IsValidation(err) && !errors.Is(err, ErrStoreClosed)
}
