package utilities

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// FetchWithRetry calls op until it succeeds, maxTries is reached or ctx is done.
// The delay between tries starts at baseDelay and doubles every time.
// Wrap an error with backoff.Permanent to stop retrying.
func FetchWithRetry[T any](ctx context.Context, op func(context.Context) (T, error), maxTries uint, baseDelay time.Duration) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 64 * baseDelay

	return backoff.Retry(ctx, func() (T, error) {
		return op(ctx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxTries))
}
