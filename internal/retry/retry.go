// Package retry wraps store calls with bounded exponential backoff.
// Transient failures (ErrStoreUnavailable) are retried; everything else,
// access denials included, is surfaced immediately.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/NYPL/snowsync/errors"
)

// DefaultAttempts is the total number of tries for a transient failure.
const DefaultAttempts = 3

// defaultInitialInterval keeps first retries snappy; the backoff grows
// exponentially from here with jitter.
const defaultInitialInterval = 200 * time.Millisecond

// Do runs op until it succeeds, returns a terminal error, or the attempt
// budget is exhausted. attempts is the total number of tries; values < 1
// fall back to DefaultAttempts. Cancelling ctx stops the backoff wait.
func Do(ctx context.Context, attempts int, op func() error) error {
	if attempts < 1 {
		attempts = DefaultAttempts
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = defaultInitialInterval
	expo.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	policy := backoff.WithContext(
		backoff.WithMaxRetries(expo, uint64(attempts-1)),
		ctx,
	)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.IsTerminal(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
