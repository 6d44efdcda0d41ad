package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	accountrepo "opsdesk_backend/internal/accounts/repository"
	"opsdesk_backend/internal/exchange"
	"opsdesk_backend/internal/notify/outbox"

	"github.com/google/uuid"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)                        {}
func (nopLogger) Warn(string, ...any)                        {}
func (nopLogger) Error(string, ...any)                       {}
func (nopLogger) DeliveryFailure(string, string, int, error) {}
func (nopLogger) SMSExchange(string, string, string, bool)   {}

type fakeAccounts struct {
	account accountrepo.Account
}

func (f *fakeAccounts) GetByID(_ context.Context, _ uuid.UUID) (accountrepo.Account, error) {
	return f.account, nil
}

type fakeOutbox struct {
	records map[uuid.UUID]*outbox.Record
	merged  bool
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{records: map[uuid.UUID]*outbox.Record{}}
}

func (f *fakeOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	id := uuid.New()
	f.records[id] = &outbox.Record{
		ID:        id,
		AccountID: p.AccountID,
		Tier:      p.Tier,
		EventType: p.EventType,
		Recipient: p.Recipient,
		Body:      p.Body,
		LeadID:    p.LeadID,
		JobID:     p.JobID,
		RunAt:     p.RunAt,
		Status:    outbox.StatusPending,
	}
	return id, nil
}

func (f *fakeOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return outbox.Record{}, errors.New("not found")
	}
	return *rec, nil
}

func (f *fakeOutbox) AppendToPendingBatch(_ context.Context, _ uuid.UUID, _, _, _ string) (bool, error) {
	return f.merged, nil
}

func (f *fakeOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	f.records[id].Status = outbox.StatusProcessing
	f.records[id].Attempts++
	return nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, id uuid.UUID) error {
	f.records[id].Status = outbox.StatusSent
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	f.records[id].Status = outbox.StatusFailed
	f.records[id].LastError = &lastError
	return nil
}

func (f *fakeOutbox) MarkSuppressed(_ context.Context, id uuid.UUID, reason string) error {
	f.records[id].Status = outbox.StatusSuppressed
	f.records[id].LastError = &reason
	return nil
}

func (f *fakeOutbox) Reschedule(_ context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	f.records[id].Status = outbox.StatusPending
	f.records[id].RunAt = runAt
	f.records[id].LastError = &lastError
	return nil
}

func (f *fakeOutbox) only() *outbox.Record {
	for _, rec := range f.records {
		return rec
	}
	return nil
}

type fakeGateway struct {
	sent     []string
	failures int
}

func (f *fakeGateway) Send(_ context.Context, _, body string) (string, error) {
	if f.failures > 0 {
		f.failures--
		return "", errors.New("gateway timeout")
	}
	f.sent = append(f.sent, body)
	return "msg-1", nil
}

type fakeExchange struct {
	entries []exchange.Entry
}

func (f *fakeExchange) Append(_ context.Context, e exchange.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakeActivity struct {
	terminal     bool
	lastActionAt *time.Time
}

func (f *fakeActivity) LeadActivity(_ context.Context, _, _ uuid.UUID) (bool, *time.Time, error) {
	return f.terminal, f.lastActionAt, nil
}

type fakeEscalation struct {
	scheduled int
	after     time.Duration
}

func (f *fakeEscalation) ScheduleEscalationCheck(_ context.Context, _, _ uuid.UUID, after time.Duration) error {
	f.scheduled++
	f.after = after
	return nil
}

type fakePrompter struct {
	prompts map[string]PromptPointer
}

func (f *fakePrompter) SetPrompt(_ context.Context, phone string, p PromptPointer) error {
	if f.prompts == nil {
		f.prompts = map[string]PromptPointer{}
	}
	f.prompts[phone] = p
	return nil
}

type serviceFixture struct {
	service    *Service
	accounts   *fakeAccounts
	outbox     *fakeOutbox
	gateway    *fakeGateway
	exchange   *fakeExchange
	activity   *fakeActivity
	escalation *fakeEscalation
	prompter   *fakePrompter
	now        time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		accounts: &fakeAccounts{account: accountrepo.Account{
			ID:            uuid.New(),
			OperatorPhone: "+15550001111",
			Timezone:      "UTC",
		}},
		outbox:     newFakeOutbox(),
		gateway:    &fakeGateway{},
		exchange:   &fakeExchange{},
		activity:   &fakeActivity{},
		escalation: &fakeEscalation{},
		prompter:   &fakePrompter{},
		now:        time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewService(f.accounts, f.outbox, f.gateway, f.exchange, f.activity, f.escalation, f.prompter, nopLogger{})
	f.service.now = func() time.Time { return f.now }
	return f
}

func TestNotifySuppressedForUnsubscribedAccount(t *testing.T) {
	f := newServiceFixture(t)
	f.accounts.account.SMSUnsubscribed = true

	err := f.service.Notify(context.Background(), NotifyParams{
		AccountID: f.accounts.account.ID,
		Context:   Context{EventType: EventNewLead},
		Body:      "New lead",
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(f.outbox.records) != 0 {
		t.Error("unsubscribed account must not produce an outbox record")
	}
}

func TestNotifyUrgentBypassesQuietHours(t *testing.T) {
	f := newServiceFixture(t)
	f.accounts.account.QuietStartMinute = 0
	f.accounts.account.QuietEndMinute = 24 * 60 // always quiet
	f.now = time.Date(2026, time.March, 2, 3, 0, 0, 0, time.UTC)

	err := f.service.Notify(context.Background(), NotifyParams{
		AccountID: f.accounts.account.ID,
		Context:   Context{EventType: EventAbandonedCall},
		Body:      "Missed call",
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	rec := f.outbox.only()
	if rec == nil {
		t.Fatal("expected an outbox record")
	}
	if rec.Tier != string(TierUrgent) {
		t.Errorf("tier = %s, want URGENT", rec.Tier)
	}
	if !rec.RunAt.Equal(f.now) {
		t.Errorf("URGENT runAt = %v, want immediate %v", rec.RunAt, f.now)
	}
}

func TestNotifyStandardDeferredDuringQuietHours(t *testing.T) {
	f := newServiceFixture(t)
	f.accounts.account.QuietStartMinute = 22 * 60
	f.accounts.account.QuietEndMinute = 7 * 60
	f.now = time.Date(2026, time.March, 2, 23, 0, 0, 0, time.UTC)

	err := f.service.Notify(context.Background(), NotifyParams{
		AccountID: f.accounts.account.ID,
		Context:   Context{EventType: EventNewLead},
		Body:      "New lead",
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	rec := f.outbox.only()
	wantOpen := time.Date(2026, time.March, 3, 7, 0, 0, 0, time.UTC)
	if rec.RunAt.Before(wantOpen) {
		t.Errorf("quiet-hours send runs at %v, want at or after %v", rec.RunAt, wantOpen)
	}
}

func TestNotifyBatchedTierMergesIntoPendingRow(t *testing.T) {
	f := newServiceFixture(t)
	f.outbox.merged = true

	err := f.service.Notify(context.Background(), NotifyParams{
		AccountID: f.accounts.account.ID,
		Context:   Context{EventType: EventNewLead},
		Body:      "Another lead",
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(f.outbox.records) != 0 {
		t.Error("merged notification must not insert a second record")
	}
}

func TestNotifyStoresReplyContext(t *testing.T) {
	f := newServiceFixture(t)
	leadID := uuid.New()

	err := f.service.Notify(context.Background(), NotifyParams{
		AccountID:    f.accounts.account.ID,
		Context:      Context{EventType: EventAbandonedCall},
		Body:         "Missed call from Jane",
		LeadID:       &leadID,
		CustomerName: "Jane",
		PromptedCode: "1",
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	p, ok := f.prompter.prompts[f.accounts.account.OperatorPhone]
	if !ok {
		t.Fatal("expected a reply-context pointer for the operator phone")
	}
	if p.LeadID == nil || *p.LeadID != leadID || p.CustomerName != "Jane" || p.PromptedCode != "1" {
		t.Errorf("pointer = %+v", p)
	}
}

func TestDeliverSuccess(t *testing.T) {
	f := newServiceFixture(t)
	leadID := uuid.New()
	id, _ := f.outbox.Insert(context.Background(), outbox.InsertParams{
		AccountID: f.accounts.account.ID,
		Tier:      string(TierStandard),
		EventType: EventNewLead,
		Recipient: "+15550001111",
		Body:      "New lead",
		LeadID:    &leadID,
		RunAt:     f.now,
	})

	if err := f.service.Deliver(context.Background(), id); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if f.outbox.records[id].Status != outbox.StatusSent {
		t.Errorf("status = %s, want sent", f.outbox.records[id].Status)
	}
	if len(f.gateway.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(f.gateway.sent))
	}
	if len(f.exchange.entries) != 1 || !f.exchange.entries[0].Success {
		t.Error("expected a successful exchange log entry")
	}
	if f.escalation.scheduled != 1 || f.escalation.after != 120*time.Minute {
		t.Errorf("STANDARD send should arm a 120min escalation check, got %d after %v",
			f.escalation.scheduled, f.escalation.after)
	}
}

func TestDeliverRetriesWithBackoff(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.failures = 1
	id, _ := f.outbox.Insert(context.Background(), outbox.InsertParams{
		AccountID: f.accounts.account.ID,
		Tier:      string(TierUrgent),
		EventType: EventAbandonedCall,
		Recipient: "+15550001111",
		Body:      "Missed call",
		RunAt:     f.now,
	})

	if err := f.service.Deliver(context.Background(), id); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}

	rec := f.outbox.records[id]
	if rec.Status != outbox.StatusPending {
		t.Errorf("status = %s, want pending for retry", rec.Status)
	}
	wantRunAt := f.now.Add(1 * time.Second)
	if !rec.RunAt.Equal(wantRunAt) {
		t.Errorf("retry runAt = %v, want %v", rec.RunAt, wantRunAt)
	}
}

func TestDeliverExhaustedRetriesMarksFailed(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.failures = 10
	id, _ := f.outbox.Insert(context.Background(), outbox.InsertParams{
		AccountID: f.accounts.account.ID,
		Tier:      string(TierDigest),
		EventType: EventDailyDigest,
		Recipient: "+15550001111",
		Body:      "Digest",
		RunAt:     f.now,
	})

	// DIGEST allows a single retry, so the second failed attempt
	// exhausts the policy.
	if err := f.service.Deliver(context.Background(), id); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if err := f.service.Deliver(context.Background(), id); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}

	rec := f.outbox.records[id]
	if rec.Status != outbox.StatusFailed {
		t.Errorf("status = %s, want failed", rec.Status)
	}
	if len(f.exchange.entries) != 1 || f.exchange.entries[0].Success {
		t.Error("exhausted delivery must log a failed exchange entry")
	}
}

func TestDeliverSuppressedAfterLateOptOut(t *testing.T) {
	f := newServiceFixture(t)
	id, _ := f.outbox.Insert(context.Background(), outbox.InsertParams{
		AccountID: f.accounts.account.ID,
		Tier:      string(TierStandard),
		EventType: EventNewLead,
		Recipient: "+15550001111",
		Body:      "New lead",
		RunAt:     f.now,
	})
	f.accounts.account.SMSUnsubscribed = true

	if err := f.service.Deliver(context.Background(), id); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if f.outbox.records[id].Status != outbox.StatusSuppressed {
		t.Errorf("status = %s, want suppressed", f.outbox.records[id].Status)
	}
	if len(f.gateway.sent) != 0 {
		t.Error("opted-out account must not receive the send")
	}
}

func TestCheckEscalationSuppressedOnTerminalRecord(t *testing.T) {
	f := newServiceFixture(t)
	f.activity.terminal = true

	err := f.service.CheckEscalation(context.Background(), f.accounts.account.ID, uuid.New(), f.now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("CheckEscalation returned error: %v", err)
	}
	if len(f.outbox.records) != 0 {
		t.Error("terminal record must not escalate")
	}
}

func TestCheckEscalationSuppressedAfterOperatorAction(t *testing.T) {
	f := newServiceFixture(t)
	acted := f.now.Add(-10 * time.Minute)
	f.activity.lastActionAt = &acted

	err := f.service.CheckEscalation(context.Background(), f.accounts.account.ID, uuid.New(), f.now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("CheckEscalation returned error: %v", err)
	}
	if len(f.outbox.records) != 0 {
		t.Error("operator action inside the window must suppress escalation")
	}
}

func TestCheckEscalationReentersAsUrgent(t *testing.T) {
	f := newServiceFixture(t)

	err := f.service.CheckEscalation(context.Background(), f.accounts.account.ID, uuid.New(), f.now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("CheckEscalation returned error: %v", err)
	}

	rec := f.outbox.only()
	if rec == nil {
		t.Fatal("expected an escalation notification")
	}
	if rec.Tier != string(TierUrgent) {
		t.Errorf("escalation tier = %s, want URGENT", rec.Tier)
	}
}
