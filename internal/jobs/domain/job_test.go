package domain

import (
	"testing"
	"time"
)

func TestCanTransitionForwardOnly(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusNew, StatusConfirmed, true},
		{StatusConfirmed, StatusEnRoute, true},
		{StatusEnRoute, StatusOnSite, true},
		{StatusOnSite, StatusComplete, true},
		// Forward skips.
		{StatusNew, StatusEnRoute, true},
		{StatusConfirmed, StatusComplete, true},
		{StatusNew, StatusComplete, true},
		// Backward moves never.
		{StatusConfirmed, StatusNew, false},
		{StatusOnSite, StatusConfirmed, false},
		{StatusOnSite, StatusEnRoute, false},
		{StatusNew, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusEnRoute, StatusCancelled, true},
		{StatusOnSite, StatusCancelled, true},
		{StatusComplete, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
	}

	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCompletedJobRejectsCancelWithoutMutation(t *testing.T) {
	now := time.Now()
	completedAt := now.Add(-time.Hour)
	job := Job{Status: StatusComplete, CompletedAt: &completedAt}

	err := job.Transition(StatusCancelled, now)
	if err == nil {
		t.Fatal("expected domain error cancelling a completed job")
	}
	if job.Status != StatusComplete {
		t.Errorf("status mutated on rejection: %q", job.Status)
	}
	if job.CancelledAt != nil {
		t.Error("CancelledAt set on rejected cancel")
	}
}

func TestTransitionCompanionTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

	job := Job{Status: StatusOnSite, NeedsAction: true}
	if err := job.Transition(StatusComplete, now); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if job.CompletedAt == nil || !job.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v, want %v", job.CompletedAt, now)
	}
	if job.NeedsAction {
		t.Error("NeedsAction still set after completion")
	}

	job = Job{Status: StatusNew}
	if err := job.Transition(StatusConfirmed, now); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !job.BookingConfirmed {
		t.Error("BookingConfirmed not set on confirm")
	}

	job = Job{Status: StatusEnRoute}
	if err := job.Transition(StatusCancelled, now); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if job.CancelledAt == nil {
		t.Error("CancelledAt not stamped")
	}
}
