package notify

import (
	"context"
	"fmt"
	"time"

	"opsdesk_backend/internal/events"
	jobdomain "opsdesk_backend/internal/jobs/domain"
	leaddomain "opsdesk_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadLister supplies active leads for digest assembly.
type LeadLister interface {
	ListActive(ctx context.Context, accountID uuid.UUID) ([]leaddomain.Lead, error)
}

// JobLister supplies open jobs for digest assembly.
type JobLister interface {
	ListOpen(ctx context.Context, accountID uuid.UUID) ([]jobdomain.Job, error)
}

// Module bridges domain events into the delivery pipeline. It
// subscribes to the bus and turns each business event into a Notify
// call with a rendered body.
type Module struct {
	service *Service
	leads   LeadLister
	jobs    JobLister
	log     Logger
}

func NewModule(service *Service, leads LeadLister, jobs JobLister, log Logger) *Module {
	return &Module{service: service, leads: leads, jobs: jobs, log: log}
}

// RegisterSubscribers wires the module into the event bus.
func (m *Module) RegisterSubscribers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.CallEnded{}.EventName(), m)
	bus.Subscribe(events.SnoozeExpired{}.EventName(), m)
	bus.Subscribe(events.JobBooked{}.EventName(), m)
	bus.Subscribe(events.JobStatusChanged{}.EventName(), m)
	bus.Subscribe(events.DigestDue{}.EventName(), m)
}

func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	case events.CallEnded:
		return m.handleCallEnded(ctx, e)
	case events.SnoozeExpired:
		return m.handleSnoozeExpired(ctx, e)
	case events.JobBooked:
		return m.handleJobBooked(ctx, e)
	case events.JobStatusChanged:
		return m.handleJobStatusChanged(ctx, e)
	case events.DigestDue:
		return m.handleDigestDue(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	body := fmt.Sprintf("New lead: %s %s", e.CustomerName, e.CustomerPhone)
	if e.IssueDescription != "" {
		body = fmt.Sprintf("New lead: %s %s - %s", e.CustomerName, e.CustomerPhone, e.IssueDescription)
	}
	body += " Reply 1 contacted, 3 <note>, 4 <time> to book"

	return m.service.Notify(ctx, NotifyParams{
		AccountID: e.AccountID,
		Context: Context{
			EventType:           "new_lead",
			Emergency:           e.Emergency,
			PriorityColor:       e.PriorityColor,
			Commercial:          e.Commercial,
			RepeatCaller:        e.RepeatCaller,
			EstimatedValueCents: e.EstimatedValueCents,
		},
		Body:         body,
		LeadID:       &e.LeadID,
		CustomerName: e.CustomerName,
		PromptedCode: "1",
	})
}

func (m *Module) handleCallEnded(ctx context.Context, e events.CallEnded) error {
	if e.EndReason == "completed" {
		return nil
	}

	name := e.CustomerName
	if name == "" {
		name = e.CallerPhone
	}
	body := fmt.Sprintf("Missed call from %s (%s). Call back soon.", name, e.CallerPhone)

	return m.service.Notify(ctx, NotifyParams{
		AccountID: e.AccountID,
		Context: Context{
			EventType:     EventAbandonedCall,
			Emergency:     e.Emergency,
			RepeatCaller:  e.RepeatCaller,
			CallEndReason: e.EndReason,
		},
		Body:         body,
		LeadID:       e.LeadID,
		CustomerName: e.CustomerName,
	})
}

func (m *Module) handleSnoozeExpired(ctx context.Context, e events.SnoozeExpired) error {
	return m.service.Notify(ctx, NotifyParams{
		AccountID:    e.AccountID,
		Context:      Context{EventType: EventSnoozeExpired},
		Body:         fmt.Sprintf("Reminder: follow up with %s. Reply 1 contacted, 4 <time> to book", e.CustomerName),
		LeadID:       &e.LeadID,
		CustomerName: e.CustomerName,
		PromptedCode: "1",
	})
}

func (m *Module) handleJobBooked(ctx context.Context, e events.JobBooked) error {
	eventType := EventFutureBooking
	if e.SameDay {
		eventType = EventSameDayBooking
	}
	if e.Confirmed {
		eventType = EventBookingConfirmation
	}

	body := fmt.Sprintf("Booked: %s on %s", e.CustomerName, e.ScheduledAt.Format("Mon Jan 2 3:04PM"))
	if e.AIBooked && !e.Confirmed {
		body += ". Reply Y to confirm"
	}

	return m.service.Notify(ctx, NotifyParams{
		AccountID:    e.AccountID,
		Context:      Context{EventType: eventType},
		Body:         body,
		LeadID:       e.LeadID,
		JobID:        &e.JobID,
		CustomerName: e.CustomerName,
		PromptedCode: "Y",
	})
}

func (m *Module) handleJobStatusChanged(ctx context.Context, e events.JobStatusChanged) error {
	// Only cancellations need the operator's attention.
	if e.NewStatus != string(jobdomain.StatusCancelled) {
		return nil
	}

	return m.service.Notify(ctx, NotifyParams{
		AccountID: e.AccountID,
		Context:   Context{EventType: EventJobCancelled},
		Body:      "A job was cancelled. Check your schedule.",
		JobID:     &e.JobID,
	})
}

func (m *Module) handleDigestDue(ctx context.Context, e events.DigestDue) error {
	eventType := EventDailyDigest
	if e.Period == "weekly" {
		eventType = EventWeeklySummary
	}

	body, err := m.buildDigest(ctx, e.AccountID)
	if err != nil {
		return err
	}
	if body == "" {
		m.log.Info("digest skipped, nothing outstanding", "accountId", e.AccountID)
		return nil
	}

	return m.service.Notify(ctx, NotifyParams{
		AccountID: e.AccountID,
		Context:   Context{EventType: eventType},
		Body:      body,
	})
}

func (m *Module) buildDigest(ctx context.Context, accountID uuid.UUID) (string, error) {
	leads, err := m.leads.ListActive(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("list active leads: %w", err)
	}
	jobs, err := m.jobs.ListOpen(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("list open jobs: %w", err)
	}
	if len(leads) == 0 && len(jobs) == 0 {
		return "", nil
	}

	today := 0
	now := time.Now()
	for _, j := range jobs {
		if j.ScheduledAt != nil && sameDay(*j.ScheduledAt, now) {
			today++
		}
	}
	return fmt.Sprintf("Daily digest: %d open leads, %d open jobs, %d scheduled today", len(leads), len(jobs), today), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
