package schedule

import (
	"context"
	"testing"
	"time"
)

func TestNewSchedulerRejectsInvalidExpression(t *testing.T) {
	if _, err := NewScheduler("not a cron line", 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Error("expected error for malformed schedule")
	}
	if _, err := NewScheduler("*/5 * * * * *", 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Error("expected error for six-field schedule")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s, err := NewScheduler("0 3 * * *", time.Minute, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler should not run before Start")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsRunning() {
		t.Error("scheduler should report running after Start")
	}

	// Second Start is a no-op, not an error.
	if err := s.Start(); err != nil {
		t.Errorf("repeated Start: %v", err)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler should stop")
	}
	s.Stop() // idempotent
}

func TestSchedulerNextRun(t *testing.T) {
	s, err := NewScheduler("0 3 * * *", 0, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	next := s.nextRun()
	if next.IsZero() {
		t.Fatal("nextRun should resolve for a valid schedule")
	}
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("next run = %v, want 03:00", next)
	}
	if !next.After(time.Now()) {
		t.Errorf("next run %v should be in the future", next)
	}
}
