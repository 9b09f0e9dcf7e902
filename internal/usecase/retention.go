package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"LensInventory/internal/ports"
)

// Retention purges stored listings older than maxAge on the driver's schedule.
type Retention struct {
	driver     ports.Scheduler
	repository ports.ListingRepository
	maxAge     time.Duration
	logger     *slog.Logger
}

// NewRetention returns a helper to start/stop the purge job.
func NewRetention(driver ports.Scheduler, repository ports.ListingRepository, maxAge time.Duration, logger *slog.Logger) *Retention {
	return &Retention{driver: driver, repository: repository, maxAge: maxAge, logger: logger}
}

// Start registers the purge job with the scheduler.
func (r *Retention) Start(ctx context.Context) error {
	if r.driver == nil || r.repository == nil || r.maxAge <= 0 {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := r.Purge(ctx, trigger); err != nil && r.logger != nil {
			r.logger.Warn("purge listings", "error", err)
		}
	}

	return r.driver.Start(ctx, job)
}

// Purge deletes listings created before now minus the retention window.
func (r *Retention) Purge(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-r.maxAge)
	n, err := r.repository.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if r.logger != nil {
		r.logger.Info("purged listings", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// Stop gracefully tears down the underlying scheduler.
func (r *Retention) Stop(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}

	return r.driver.Stop(ctx)
}
