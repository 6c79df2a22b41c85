package chain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		attempts++
		return errors.New("timeout")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryStopsOnRevert(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		attempts++
		return errors.New("execution reverted")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("revert should not be retried, got %d attempts", attempts)
	}
}

func TestWithRetryHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("unavailable")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}
