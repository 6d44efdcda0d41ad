package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"opsdesk_backend/internal/events"
	"opsdesk_backend/internal/leads/domain"
	"opsdesk_backend/internal/leads/transport"
	"opsdesk_backend/platform/apperr"
	platformevents "opsdesk_backend/platform/events"
	"opsdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	leads    map[uuid.UUID]domain.Lead
	byPhone  map[string]domain.Lead
	outcomes []domain.CallbackOutcome
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:   map[uuid.UUID]domain.Lead{},
		byPhone: map[string]domain.Lead{},
	}
}

func (f *fakeRepo) Create(_ context.Context, lead *domain.Lead) error {
	lead.ID = uuid.New()
	lead.CreatedAt = time.Now().UTC()
	f.leads[lead.ID] = *lead
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id, _ uuid.UUID) (domain.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (f *fakeRepo) GetMostRecentByPhone(_ context.Context, digits string, _ uuid.UUID) (domain.Lead, error) {
	lead, ok := f.byPhone[digits]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (f *fakeRepo) UpdateState(_ context.Context, lead *domain.Lead) error {
	f.leads[lead.ID] = *lead
	return nil
}

func (f *fakeRepo) RecordCallbackOutcome(_ context.Context, _, _ uuid.UUID, outcome domain.CallbackOutcome, _ string) error {
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

func (f *fakeRepo) ListActive(_ context.Context, _ uuid.UUID) ([]domain.Lead, error) {
	out := make([]domain.Lead, 0, len(f.leads))
	for _, lead := range f.leads {
		out = append(out, lead)
	}
	return out, nil
}

type fakeScheduler struct {
	wakes []time.Time
}

func (f *fakeScheduler) ScheduleSnoozeWake(_ context.Context, _, _ uuid.UUID, at time.Time) error {
	f.wakes = append(f.wakes, at)
	return nil
}

type recordedEvents struct {
	mu    sync.Mutex
	names []string
}

func (r *recordedEvents) capture(bus events.Bus, names ...string) {
	for _, name := range names {
		n := name
		bus.Subscribe(n, platformevents.HandlerFunc(func(_ context.Context, _ platformevents.Event) error {
			r.mu.Lock()
			r.names = append(r.names, n)
			r.mu.Unlock()
			return nil
		}))
	}
}

func (r *recordedEvents) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	scheduler *fakeScheduler
	events    *recordedEvents
	accountID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	recorded := &recordedEvents{}
	recorded.capture(bus,
		events.LeadCreated{}.EventName(),
		events.CallEnded{}.EventName(),
		events.LeadLost{}.EventName(),
	)

	repo := newFakeRepo()
	scheduler := &fakeScheduler{}
	svc := New(repo, bus, scheduler, log)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, repo: repo, scheduler: scheduler, events: recorded, accountID: uuid.New()}
}

// The in-memory bus dispatches asynchronously; give handlers a beat.
func (f *fixture) settle() {
	time.Sleep(20 * time.Millisecond)
}

func TestIngestCallCreatesLeadAndPublishes(t *testing.T) {
	f := newFixture(t)

	lead, err := f.svc.IngestCall(context.Background(), f.accountID, transport.IngestCallRequest{
		CustomerName:  "Jane Smith",
		CustomerPhone: "(202) 555-0171",
		EndReason:     "completed",
	})
	if err != nil {
		t.Fatalf("IngestCall: %v", err)
	}
	if lead.Status != domain.StatusCallbackRequested {
		t.Fatalf("status = %s, want %s", lead.Status, domain.StatusCallbackRequested)
	}
	if lead.CustomerPhone != "+12025550171" {
		t.Fatalf("phone = %q, want normalized E.164", lead.CustomerPhone)
	}
	if lead.PriorityColor != domain.ColorGray {
		t.Fatalf("color = %s, want default gray", lead.PriorityColor)
	}

	f.settle()
	if !f.events.has(events.LeadCreated{}.EventName()) {
		t.Fatal("expected LeadCreated to be published")
	}
	if f.events.has(events.CallEnded{}.EventName()) {
		t.Fatal("completed call should not publish CallEnded")
	}
}

func TestIngestCallAbandonedPublishesCallEnded(t *testing.T) {
	f := newFixture(t)

	lead, err := f.svc.IngestCall(context.Background(), f.accountID, transport.IngestCallRequest{
		CustomerName:  "Bob Ray",
		CustomerPhone: "+15550002222",
		EndReason:     "abandoned",
	})
	if err != nil {
		t.Fatalf("IngestCall: %v", err)
	}
	if lead.Status != domain.StatusAbandoned {
		t.Fatalf("status = %s, want %s", lead.Status, domain.StatusAbandoned)
	}

	f.settle()
	if !f.events.has(events.CallEnded{}.EventName()) {
		t.Fatal("abandoned call should publish CallEnded")
	}
}

func TestIngestCallDetectsRepeatCaller(t *testing.T) {
	f := newFixture(t)
	f.repo.byPhone["15550003333"] = domain.Lead{ID: uuid.New()}

	lead, err := f.svc.IngestCall(context.Background(), f.accountID, transport.IngestCallRequest{
		CustomerName:  "Repeat Caller",
		CustomerPhone: "+15550003333",
	})
	if err != nil {
		t.Fatalf("IngestCall: %v", err)
	}
	if !lead.RepeatCaller {
		t.Fatal("expected RepeatCaller to be set from prior lead")
	}
}

func TestActionQueueOrdersByScore(t *testing.T) {
	f := newFixture(t)
	now := f.svc.now()

	standard := domain.Lead{ID: uuid.New(), Status: domain.StatusCallbackRequested, CreatedAt: now.Add(-time.Hour)}
	urgent := domain.Lead{ID: uuid.New(), Status: domain.StatusCallbackRequested, Emergency: true, CreatedAt: now}
	f.repo.leads[standard.ID] = standard
	f.repo.leads[urgent.ID] = urgent

	items, err := f.svc.ActionQueue(context.Background(), f.accountID)
	if err != nil {
		t.Fatalf("ActionQueue: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Lead.ID != urgent.ID {
		t.Fatal("fresh emergency lead should outrank an older standard lead")
	}
	if items[0].Tier != "URGENT" {
		t.Fatalf("tier = %s, want URGENT", items[0].Tier)
	}
}

func TestRecordCallbackOutcomeRejectsClosedLead(t *testing.T) {
	f := newFixture(t)
	lead := domain.Lead{ID: uuid.New(), Status: domain.StatusLost}
	f.repo.leads[lead.ID] = lead

	err := f.svc.RecordCallbackOutcome(context.Background(), lead.ID, f.accountID, transport.CallbackOutcomeRequest{Outcome: "no_answer"})
	if err == nil {
		t.Fatal("expected conflict for terminal lead")
	}
	if len(f.repo.outcomes) != 0 {
		t.Fatal("outcome should not be recorded for a closed lead")
	}
}

func TestSnoozeSchedulesWake(t *testing.T) {
	f := newFixture(t)
	lead := domain.Lead{ID: uuid.New(), Status: domain.StatusCallbackRequested}
	f.repo.leads[lead.ID] = lead

	remindAt := f.svc.now().Add(4 * time.Hour)
	updated, err := f.svc.Snooze(context.Background(), lead.ID, f.accountID, remindAt)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if updated.Status != domain.StatusDeferred {
		t.Fatalf("status = %s, want %s", updated.Status, domain.StatusDeferred)
	}
	if updated.RemindAt == nil || !updated.RemindAt.Equal(remindAt) {
		t.Fatal("remindAt not recorded on lead")
	}
	if len(f.scheduler.wakes) != 1 || !f.scheduler.wakes[0].Equal(remindAt) {
		t.Fatal("wake not scheduled at remindAt")
	}
}

func TestMarkLostPublishesLeadLost(t *testing.T) {
	f := newFixture(t)
	lead := domain.Lead{ID: uuid.New(), Status: domain.StatusCallbackRequested}
	f.repo.leads[lead.ID] = lead

	updated, err := f.svc.MarkLost(context.Background(), lead.ID, f.accountID, "went with competitor")
	if err != nil {
		t.Fatalf("MarkLost: %v", err)
	}
	if updated.Status != domain.StatusLost {
		t.Fatalf("status = %s, want %s", updated.Status, domain.StatusLost)
	}

	f.settle()
	if !f.events.has(events.LeadLost{}.EventName()) {
		t.Fatal("expected LeadLost to be published")
	}
}
