// Package notify classifies business events into delivery tiers and
// drives outbound notification delivery: quiet hours, batching,
// retries and escalation.
package notify

import "time"

type Tier string

const (
	TierUrgent   Tier = "URGENT"
	TierStandard Tier = "STANDARD"
	TierReminder Tier = "REMINDER"
	TierBooked   Tier = "BOOKED"
	TierDigest   Tier = "DIGEST"
)

// Behavior is the static delivery policy for a tier.
type Behavior struct {
	BypassQuietHours bool
	BatchWindow      time.Duration
	MaxAttempts      int
	Backoff          BackoffPolicy
	EscalateAfter    time.Duration // zero means no escalation
}

var behaviors = map[Tier]Behavior{
	TierUrgent: {
		BypassQuietHours: true,
		BatchWindow:      0,
		MaxAttempts:      3,
		Backoff:          BackoffPolicy{1 * time.Second, 5 * time.Second, 30 * time.Second},
	},
	TierStandard: {
		BypassQuietHours: false,
		BatchWindow:      300 * time.Second,
		MaxAttempts:      3,
		Backoff:          BackoffPolicy{5 * time.Second, 30 * time.Second, 120 * time.Second},
		EscalateAfter:    120 * time.Minute,
	},
	TierReminder: {
		BypassQuietHours: false,
		BatchWindow:      600 * time.Second,
		MaxAttempts:      2,
		Backoff:          BackoffPolicy{30 * time.Second, 300 * time.Second},
	},
	TierBooked: {
		BypassQuietHours: false,
		BatchWindow:      0,
		MaxAttempts:      3,
		Backoff:          BackoffPolicy{5 * time.Second, 30 * time.Second, 120 * time.Second},
	},
	TierDigest: {
		BypassQuietHours: false,
		BatchWindow:      3600 * time.Second,
		MaxAttempts:      1,
		Backoff:          BackoffPolicy{300 * time.Second},
	},
}

// BehaviorFor returns the delivery policy for a tier. Unknown tiers
// fall back to STANDARD.
func BehaviorFor(tier Tier) Behavior {
	if b, ok := behaviors[tier]; ok {
		return b
	}
	return behaviors[TierStandard]
}

// NextDelay returns the delay before the given retry, enforcing the
// tier's attempt cap even when the backoff sequence is longer.
func (b Behavior) NextDelay(attempt int) (time.Duration, bool) {
	if attempt > b.MaxAttempts {
		return 0, false
	}
	return b.Backoff.NextDelay(attempt)
}

// BackoffPolicy is the delay sequence between send attempts.
type BackoffPolicy []time.Duration

// NextDelay returns the delay before the given retry. attempt is the
// number of attempts already made, so the first retry passes 1. The
// second return is false once the sequence is exhausted.
func (p BackoffPolicy) NextDelay(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > len(p) {
		return 0, false
	}
	return p[attempt-1], true
}
