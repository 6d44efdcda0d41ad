package notify

import (
	"testing"
	"time"
)

func TestBackoffNextDelay(t *testing.T) {
	p := BackoffPolicy{1 * time.Second, 5 * time.Second, 30 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
		ok      bool
	}{
		{0, 0, false},
		{1, 1 * time.Second, true},
		{2, 5 * time.Second, true},
		{3, 30 * time.Second, true},
		{4, 0, false},
	}
	for _, tt := range tests {
		got, ok := p.NextDelay(tt.attempt)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NextDelay(%d) = (%v, %t), want (%v, %t)", tt.attempt, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBehaviorTable(t *testing.T) {
	tests := []struct {
		tier        Tier
		bypass      bool
		batchWindow time.Duration
		attempts    int
		escalate    time.Duration
	}{
		{TierUrgent, true, 0, 3, 0},
		{TierStandard, false, 300 * time.Second, 3, 120 * time.Minute},
		{TierReminder, false, 600 * time.Second, 2, 0},
		{TierBooked, false, 0, 3, 0},
		{TierDigest, false, 3600 * time.Second, 1, 0},
	}
	for _, tt := range tests {
		b := BehaviorFor(tt.tier)
		if b.BypassQuietHours != tt.bypass {
			t.Errorf("%s bypass = %t, want %t", tt.tier, b.BypassQuietHours, tt.bypass)
		}
		if b.BatchWindow != tt.batchWindow {
			t.Errorf("%s batch window = %v, want %v", tt.tier, b.BatchWindow, tt.batchWindow)
		}
		if b.MaxAttempts != tt.attempts {
			t.Errorf("%s attempts = %d, want %d", tt.tier, b.MaxAttempts, tt.attempts)
		}
		if b.EscalateAfter != tt.escalate {
			t.Errorf("%s escalate after = %v, want %v", tt.tier, b.EscalateAfter, tt.escalate)
		}
		if len(b.Backoff) != b.MaxAttempts {
			t.Errorf("%s backoff sequence has %d delays for %d attempts", tt.tier, len(b.Backoff), b.MaxAttempts)
		}
	}
}

// The attempt cap wins over the backoff sequence length.
func TestBehaviorNextDelayHonorsAttemptCap(t *testing.T) {
	b := Behavior{
		MaxAttempts: 1,
		Backoff:     BackoffPolicy{5 * time.Second, 30 * time.Second},
	}

	if got, ok := b.NextDelay(1); !ok || got != 5*time.Second {
		t.Errorf("NextDelay(1) = (%v, %t), want (5s, true)", got, ok)
	}
	if got, ok := b.NextDelay(2); ok {
		t.Errorf("NextDelay(2) = (%v, %t), want exhausted", got, ok)
	}
}

func TestBehaviorForUnknownTierFallsBackToStandard(t *testing.T) {
	if got := BehaviorFor(Tier("BOGUS")); got.BatchWindow != 300*time.Second {
		t.Errorf("unknown tier behavior = %+v, want STANDARD", got)
	}
}
