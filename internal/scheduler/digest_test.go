package scheduler

import (
	"context"
	"testing"
	"time"

	accountrepo "opsdesk_backend/internal/accounts/repository"
	"opsdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeAccountLister struct {
	accounts []accountrepo.Account
}

func (f *fakeAccountLister) List(_ context.Context) ([]accountrepo.Account, error) {
	return f.accounts, nil
}

type fakeDigestScheduler struct {
	scheduled []time.Time
}

func (f *fakeDigestScheduler) ScheduleDigest(_ context.Context, _ uuid.UUID, _ string, at time.Time) error {
	f.scheduled = append(f.scheduled, at)
	return nil
}

func TestNextSlotBeforeDigestHour(t *testing.T) {
	p := NewDigestPlanner(nil, nil, logger.New("test"))
	p.now = func() time.Time { return time.Date(2026, 3, 10, 5, 30, 0, 0, time.UTC) }

	slot := p.nextSlot(accountrepo.Account{Timezone: "UTC"})
	want := time.Date(2026, 3, 10, digestHour, 0, 0, 0, time.UTC)
	if !slot.Equal(want) {
		t.Fatalf("slot = %v, want %v", slot, want)
	}
}

func TestNextSlotAfterDigestHourRollsToTomorrow(t *testing.T) {
	p := NewDigestPlanner(nil, nil, logger.New("test"))
	p.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	slot := p.nextSlot(accountrepo.Account{Timezone: "UTC"})
	want := time.Date(2026, 3, 11, digestHour, 0, 0, 0, time.UTC)
	if !slot.Equal(want) {
		t.Fatalf("slot = %v, want %v", slot, want)
	}
}

func TestNextSlotUsesAccountTimezone(t *testing.T) {
	if _, err := time.LoadLocation("America/Chicago"); err != nil {
		t.Skip("tzdata unavailable")
	}

	p := NewDigestPlanner(nil, nil, logger.New("test"))
	// 11:00 UTC is 05:00 or 06:00 in Chicago, still before the digest hour.
	p.now = func() time.Time { return time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC) }

	slot := p.nextSlot(accountrepo.Account{Timezone: "America/Chicago"})
	loc, _ := time.LoadLocation("America/Chicago")
	if slot.In(loc).Hour() != digestHour {
		t.Fatalf("slot local hour = %d, want %d", slot.In(loc).Hour(), digestHour)
	}
	if slot.In(loc).Day() != 10 {
		t.Fatalf("slot local day = %d, want same day", slot.In(loc).Day())
	}
}

func TestPlanSchedulesEveryAccount(t *testing.T) {
	accounts := &fakeAccountLister{accounts: []accountrepo.Account{
		{ID: uuid.New(), Timezone: "UTC"},
		{ID: uuid.New(), Timezone: "UTC"},
	}}
	sched := &fakeDigestScheduler{}

	p := NewDigestPlanner(sched, accounts, logger.New("test"))
	p.now = func() time.Time { return time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC) }
	p.plan(context.Background())

	if len(sched.scheduled) != 2 {
		t.Fatalf("scheduled = %d, want 2", len(sched.scheduled))
	}
	for _, at := range sched.scheduled {
		if !at.After(p.now()) {
			t.Fatalf("slot %v not in the future", at)
		}
	}
}
