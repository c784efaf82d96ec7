package utils

import (
	"context"
	"time"
)

var sleep = time.Sleep

const maxBackoff = 30 * time.Second

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Backoff returns the exponential delay for the given zero-based attempt, capped at 30s.
func Backoff(attempt int, base time.Duration) time.Duration {
	if base <= 0 || attempt < 0 {
		return 0
	}

	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}

	return d
}
