// Package retry re-runs failing collaborator calls with exponential back-off.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy holds the parameters for the retry strategy.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *slog.Logger
}

// Do executes fn until it succeeds, attempts run out or ctx is done.
// The delay doubles after every failed attempt.
func (p Policy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		if p.Logger != nil {
			p.Logger.Warn("retrying", "operation", operation, "attempt", attempt,
				"max_attempts", attempts, "delay", delay, "error", lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", operation, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}

	if attempts == 1 {
		return fmt.Errorf("%s: %w", operation, lastErr)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}
