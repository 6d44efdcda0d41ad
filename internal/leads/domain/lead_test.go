package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusCallbackRequested, StatusConverted, true},
		{StatusCallbackRequested, StatusLost, true},
		{StatusThinking, StatusDeferred, true},
		{StatusVoicemailLeft, StatusCallbackRequested, true},
		{StatusAbandoned, StatusConverted, true},
		{StatusDeferred, StatusCallbackRequested, true},
		{StatusConverted, StatusLost, false},
		{StatusLost, StatusCallbackRequested, false},
		{StatusLost, StatusConverted, false},
	}

	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTransitionSetsCompanionTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	lead := Lead{Status: StatusThinking}
	if err := lead.MarkLost("price", now); err != nil {
		t.Fatalf("MarkLost: %v", err)
	}
	if lead.Status != StatusLost {
		t.Errorf("status = %q, want lost", lead.Status)
	}
	if lead.LostAt == nil || !lead.LostAt.Equal(now) {
		t.Errorf("LostAt = %v, want %v", lead.LostAt, now)
	}
	if lead.LostReason != "price" {
		t.Errorf("LostReason = %q", lead.LostReason)
	}
}

func TestMarkLostRequiresReason(t *testing.T) {
	lead := Lead{Status: StatusThinking}
	if err := lead.MarkLost("", time.Now()); err == nil {
		t.Fatal("expected error for empty loss reason")
	}
	if lead.Status != StatusThinking {
		t.Errorf("status mutated on rejected transition: %q", lead.Status)
	}
}

func TestConvertLinksJob(t *testing.T) {
	now := time.Now()
	jobID := uuid.New()

	lead := Lead{Status: StatusCallbackRequested}
	if err := lead.Convert(jobID, now); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if lead.Status != StatusConverted {
		t.Errorf("status = %q, want converted", lead.Status)
	}
	if lead.ConvertedJobID == nil || *lead.ConvertedJobID != jobID {
		t.Errorf("ConvertedJobID = %v, want %s", lead.ConvertedJobID, jobID)
	}
}

func TestTerminalLeadRejectsFurtherTransitions(t *testing.T) {
	now := time.Now()
	lead := Lead{Status: StatusConverted}
	if err := lead.Transition(StatusCallbackRequested, now); err == nil {
		t.Fatal("expected conflict transitioning a converted lead")
	}
}

func TestDeferRequiresFutureRemindAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	lead := Lead{Status: StatusThinking}

	if err := lead.Defer(now.Add(-time.Hour), now); err == nil {
		t.Fatal("expected error deferring into the past")
	}

	remindAt := now.Add(48 * time.Hour)
	if err := lead.Defer(remindAt, now); err != nil {
		t.Fatalf("Defer: %v", err)
	}
	if lead.Status != StatusDeferred {
		t.Errorf("status = %q, want deferred", lead.Status)
	}
	if lead.RemindAt == nil || !lead.RemindAt.Equal(remindAt) {
		t.Errorf("RemindAt = %v, want %v", lead.RemindAt, remindAt)
	}
}

func TestSameStatusTransitionIsIdempotent(t *testing.T) {
	now := time.Now()
	lead := Lead{Status: StatusCallbackRequested}
	if err := lead.Transition(StatusCallbackRequested, now); err != nil {
		t.Fatalf("idempotent transition: %v", err)
	}
	if lead.LastActionAt == nil {
		t.Error("LastActionAt not touched")
	}
}
