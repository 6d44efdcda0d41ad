package notify

// Event types recognized by the classifier.
const (
	EventNewLead             = "new_lead"
	EventAbandonedCall       = "abandoned_call"
	EventEmergencyAlert      = "emergency_alert"
	EventSameDayBooking      = "same_day_booking"
	EventFutureBooking       = "future_booking"
	EventBookingConfirmation = "booking_confirmation"
	EventJobCancelled        = "job_cancelled"
	EventReminder            = "reminder"
	EventFollowUp            = "follow_up"
	EventSnoozeExpired       = "snooze_expired"
	EventDailyDigest         = "daily_digest"
	EventWeeklySummary       = "weekly_summary"
	EventEscalation          = "escalation"
)

// Context carries the signals the classifier reads off a business
// event.
type Context struct {
	EventType           string
	Emergency           bool
	PriorityColor       string
	Commercial          bool
	RepeatCaller        bool
	CallEndReason       string
	EstimatedValueCents int64
}

// urgentValueThresholdCents marks a lead as high value at $1000.
const urgentValueThresholdCents = 100_000

// Classify maps an event to its delivery tier. Rules are evaluated in
// order and the first match wins: urgency signals are checked before
// the literal event type so an emergency booking still lands URGENT.
func Classify(c Context) Tier {
	switch {
	case c.Emergency,
		c.PriorityColor == "red",
		c.PriorityColor == "green",
		c.Commercial,
		c.RepeatCaller && c.CallEndReason == "customer_hangup",
		c.EstimatedValueCents >= urgentValueThresholdCents,
		c.EventType == EventAbandonedCall,
		c.EventType == EventEmergencyAlert,
		c.EventType == EventEscalation:
		return TierUrgent
	}

	switch c.EventType {
	case EventSameDayBooking, EventFutureBooking, EventBookingConfirmation:
		return TierBooked
	case EventReminder, EventFollowUp, EventSnoozeExpired:
		return TierReminder
	case EventDailyDigest, EventWeeklySummary:
		return TierDigest
	}

	return TierStandard
}
