package retry

import (
	"context"
	"time"
)

// Policy controls how a call is retried. Retryable decides whether a given
// error is worth another attempt; a nil Retryable retries everything.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
}

// Do runs fn up to MaxAttempts times, sleeping Backoff between attempts.
// It returns nil on the first success, the last error otherwise. Context
// cancellation cuts the loop short.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff):
		}
	}
	return err
}
