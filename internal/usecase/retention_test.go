package usecase

import (
	"context"
	"testing"
	"time"
)

type immediateScheduler struct {
	started bool
	stopped bool
}

func (s *immediateScheduler) Start(_ context.Context, job func(time.Time)) error {
	s.started = true
	job(testNow)
	return nil
}

func (s *immediateScheduler) Stop(context.Context) error {
	s.stopped = true
	return nil
}

func TestRetentionPurgesOnSchedule(t *testing.T) {
	t.Parallel()

	repo := &fakeRepository{}
	driver := &immediateScheduler{}
	r := NewRetention(driver, repo, 30*24*time.Hour, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !driver.started {
		t.Fatal("driver not started")
	}
	want := testNow.Add(-30 * 24 * time.Hour)
	if !repo.cutoff.Equal(want) {
		t.Fatalf("cutoff = %v; want %v", repo.cutoff, want)
	}
	if err := r.Stop(context.Background()); err != nil || !driver.stopped {
		t.Fatalf("stop: %v", err)
	}
}

func TestRetentionDisabled(t *testing.T) {
	t.Parallel()

	driver := &immediateScheduler{}
	r := NewRetention(driver, &fakeRepository{}, 0, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if driver.started {
		t.Fatal("zero retention must not schedule a purge")
	}
}
