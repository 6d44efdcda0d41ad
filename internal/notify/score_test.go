package notify

import (
	"testing"
	"time"
)

func TestScoreOrdersOlderFirstWithinTier(t *testing.T) {
	now := time.Now()
	older := Score(TierStandard, now.Add(-4*time.Hour), now)
	newer := Score(TierStandard, now.Add(-1*time.Hour), now)
	if older <= newer {
		t.Errorf("older item should outrank newer: %f <= %f", older, newer)
	}
}

func TestScoreTierDominatesAge(t *testing.T) {
	now := time.Now()
	staleDigest := Score(TierDigest, now.Add(-30*24*time.Hour), now)
	freshUrgent := Score(TierUrgent, now, now)
	if staleDigest >= freshUrgent {
		t.Errorf("stale low tier must not outrank fresh high tier: %f >= %f", staleDigest, freshUrgent)
	}

	staleStandard := Score(TierStandard, now.Add(-30*24*time.Hour), now)
	freshBooked := Score(TierBooked, now, now)
	if staleStandard >= freshBooked {
		t.Errorf("aged STANDARD must stay below fresh BOOKED: %f >= %f", staleStandard, freshBooked)
	}
}

func TestScoreAgeIsCapped(t *testing.T) {
	now := time.Now()
	aWeek := Score(TierReminder, now.Add(-7*24*time.Hour), now)
	aMonth := Score(TierReminder, now.Add(-30*24*time.Hour), now)
	if aWeek != aMonth {
		t.Errorf("age component should cap: %f != %f", aWeek, aMonth)
	}
}

func TestScoreFutureTimestampsDoNotHelp(t *testing.T) {
	now := time.Now()
	future := Score(TierStandard, now.Add(time.Hour), now)
	fresh := Score(TierStandard, now, now)
	if future != fresh {
		t.Errorf("future createdAt should score as fresh: %f != %f", future, fresh)
	}
}
