package chain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

const maxRetryDelay = 10 * time.Second

// withRetry runs fn until it succeeds, the attempts are exhausted, or the
// error is permanent. The delay doubles after each failure up to maxRetryDelay.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !retryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// retryable reports whether another attempt could succeed. Reverts and
// cancellation are deterministic for a pinned block.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return false
	}
	return !strings.Contains(err.Error(), "execution reverted")
}
