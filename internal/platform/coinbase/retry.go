package coinbase

import "context"

// withRetry runs op up to maxAttempts times, retrying only when retryable
// reports the returned error as transient. The attempt counter is local to
// one call; independent calls never share retry state. It returns the last
// error when the budget is exhausted.
func withRetry(ctx context.Context, maxAttempts int, retryable func(error) bool, op func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = op()
		if err == nil || !retryable(err) {
			return err
		}
	}
	return err
}
