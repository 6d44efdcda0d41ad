package notify

import "testing"

func TestClassifyCascade(t *testing.T) {
	tests := []struct {
		name string
		in   Context
		want Tier
	}{
		{"emergency flag", Context{EventType: EventFutureBooking, Emergency: true}, TierUrgent},
		{"red priority", Context{EventType: EventDailyDigest, PriorityColor: "red"}, TierUrgent},
		{"green priority", Context{EventType: EventReminder, PriorityColor: "green"}, TierUrgent},
		{"commercial", Context{EventType: EventNewLead, Commercial: true}, TierUrgent},
		{"repeat caller hangup", Context{EventType: EventNewLead, RepeatCaller: true, CallEndReason: "customer_hangup"}, TierUrgent},
		{"repeat caller completed call", Context{EventType: EventNewLead, RepeatCaller: true, CallEndReason: "completed"}, TierStandard},
		{"high value", Context{EventType: EventNewLead, EstimatedValueCents: 100_000}, TierUrgent},
		{"below value threshold", Context{EventType: EventNewLead, EstimatedValueCents: 99_999}, TierStandard},
		{"abandoned call", Context{EventType: EventAbandonedCall}, TierUrgent},
		{"emergency alert", Context{EventType: EventEmergencyAlert}, TierUrgent},
		{"same day booking", Context{EventType: EventSameDayBooking}, TierBooked},
		{"future booking", Context{EventType: EventFutureBooking}, TierBooked},
		{"booking confirmation", Context{EventType: EventBookingConfirmation}, TierBooked},
		{"reminder", Context{EventType: EventReminder}, TierReminder},
		{"follow up", Context{EventType: EventFollowUp}, TierReminder},
		{"snooze expired", Context{EventType: EventSnoozeExpired}, TierReminder},
		{"daily digest", Context{EventType: EventDailyDigest}, TierDigest},
		{"weekly summary", Context{EventType: EventWeeklySummary}, TierDigest},
		{"default", Context{EventType: EventNewLead}, TierStandard},
		{"unknown event", Context{EventType: "something_else"}, TierStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.in); got != tt.want {
				t.Errorf("Classify(%+v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassifyEmergencyDominates(t *testing.T) {
	// Emergency must win no matter what the event type says.
	for _, eventType := range []string{
		EventSameDayBooking, EventFutureBooking, EventBookingConfirmation,
		EventReminder, EventFollowUp, EventSnoozeExpired,
		EventDailyDigest, EventWeeklySummary, EventNewLead,
	} {
		got := Classify(Context{EventType: eventType, Emergency: true})
		if got != TierUrgent {
			t.Errorf("Classify(emergency, %s) = %s, want URGENT", eventType, got)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	in := Context{EventType: EventAbandonedCall, RepeatCaller: true}
	first := Classify(in)
	for i := 0; i < 10; i++ {
		if got := Classify(in); got != first {
			t.Fatalf("Classify is not deterministic: %s then %s", first, got)
		}
	}
}

func TestAbandonedCallPlan(t *testing.T) {
	tier := Classify(Context{EventType: EventAbandonedCall})
	if tier != TierUrgent {
		t.Fatalf("tier = %s, want URGENT", tier)
	}
	behavior := BehaviorFor(tier)
	if !behavior.BypassQuietHours {
		t.Error("URGENT must bypass quiet hours")
	}
	if behavior.BatchWindow != 0 {
		t.Errorf("URGENT batch window = %v, want 0", behavior.BatchWindow)
	}
}
