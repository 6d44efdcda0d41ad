package notify

import "time"

// Base scores per tier. The gap between adjacent tiers exceeds the
// age cap so an old low-tier item never outranks a fresh high-tier one.
var tierBase = map[Tier]float64{
	TierUrgent:   1000,
	TierBooked:   800,
	TierStandard: 600,
	TierReminder: 400,
	TierDigest:   200,
}

const (
	agePointsPerHour = 1.0
	ageCapPoints     = 100.0
)

// Score orders the operator's action queue: tier base plus a capped
// age component, higher sorts first.
func Score(tier Tier, createdAt, now time.Time) float64 {
	base := tierBase[tier]
	age := now.Sub(createdAt).Hours() * agePointsPerHour
	if age < 0 {
		age = 0
	}
	if age > ageCapPoints {
		age = ageCapPoints
	}
	return base + age
}
