// Package service implements lead workflow operations for the operator
// API: call ingestion, the action queue, callback outcomes, snoozes and
// loss marking.
package service

import (
	"context"
	"sort"
	"time"

	"opsdesk_backend/internal/events"
	"opsdesk_backend/internal/leads/domain"
	"opsdesk_backend/internal/leads/transport"
	"opsdesk_backend/internal/notify"
	"opsdesk_backend/platform/apperr"
	"opsdesk_backend/platform/logger"
	"opsdesk_backend/platform/phone"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id, accountID uuid.UUID) (domain.Lead, error)
	GetMostRecentByPhone(ctx context.Context, phoneDigits string, accountID uuid.UUID) (domain.Lead, error)
	UpdateState(ctx context.Context, lead *domain.Lead) error
	RecordCallbackOutcome(ctx context.Context, leadID, accountID uuid.UUID, outcome domain.CallbackOutcome, note string) error
	ListActive(ctx context.Context, accountID uuid.UUID) ([]domain.Lead, error)
}

// SnoozeScheduler arms the wake-up timer for a deferred lead.
type SnoozeScheduler interface {
	ScheduleSnoozeWake(ctx context.Context, accountID, leadID uuid.UUID, at time.Time) error
}

type Service struct {
	repo      Repository
	bus       events.Bus
	scheduler SnoozeScheduler
	log       *logger.Logger
	now       func() time.Time
}

func New(repo Repository, bus events.Bus, scheduler SnoozeScheduler, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		bus:       bus,
		scheduler: scheduler,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IngestCall records an inbound call as a lead and publishes the
// events the notification pipeline classifies.
func (s *Service) IngestCall(ctx context.Context, accountID uuid.UUID, req transport.IngestCallRequest) (domain.Lead, error) {
	normalized := phone.NormalizeE164(req.CustomerPhone)

	repeatCaller := false
	if prior, err := s.repo.GetMostRecentByPhone(ctx, phone.Digits(normalized), accountID); err == nil && prior.ID != uuid.Nil {
		repeatCaller = true
	}

	color := domain.PriorityColor(req.PriorityColor)
	if req.PriorityColor == "" {
		color = domain.ColorGray
	}

	lead := domain.Lead{
		AccountID:           accountID,
		CustomerName:        req.CustomerName,
		CustomerPhone:       normalized,
		CustomerAddress:     req.CustomerAddress,
		IssueDescription:    req.IssueDescription,
		Status:              domain.StatusCallbackRequested,
		PriorityColor:       color,
		Emergency:           req.Emergency,
		Commercial:          req.Commercial,
		RepeatCaller:        repeatCaller,
		EstimatedValueCents: req.EstimatedValueCents,
	}
	if req.EndReason == "abandoned" {
		lead.Status = domain.StatusAbandoned
	}

	if err := s.repo.Create(ctx, &lead); err != nil {
		return domain.Lead{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:           events.NewBaseEvent(),
		LeadID:              lead.ID,
		AccountID:           accountID,
		CustomerName:        lead.CustomerName,
		CustomerPhone:       lead.CustomerPhone,
		IssueDescription:    lead.IssueDescription,
		PriorityColor:       string(lead.PriorityColor),
		Emergency:           lead.Emergency,
		Commercial:          lead.Commercial,
		RepeatCaller:        lead.RepeatCaller,
		EstimatedValueCents: lead.EstimatedValueCents,
		Source:              req.Source,
	})

	if req.EndReason == "abandoned" || req.EndReason == "customer_hangup" {
		s.bus.Publish(ctx, events.CallEnded{
			BaseEvent:    events.NewBaseEvent(),
			AccountID:    accountID,
			LeadID:       &lead.ID,
			CallerPhone:  lead.CustomerPhone,
			CustomerName: lead.CustomerName,
			EndReason:    req.EndReason,
			RepeatCaller: lead.RepeatCaller,
			Emergency:    lead.Emergency,
		})
	}

	return lead, nil
}

func (s *Service) Get(ctx context.Context, leadID, accountID uuid.UUID) (domain.Lead, error) {
	return s.repo.GetByID(ctx, leadID, accountID)
}

// ActionQueue returns the operator's active leads ordered by tier and
// age. The score is presentation ordering only.
func (s *Service) ActionQueue(ctx context.Context, accountID uuid.UUID) ([]transport.QueueItem, error) {
	leads, err := s.repo.ListActive(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]transport.QueueItem, 0, len(leads))
	for _, lead := range leads {
		tier := notify.Classify(notify.Context{
			Emergency:           lead.Emergency,
			PriorityColor:       string(lead.PriorityColor),
			Commercial:          lead.Commercial,
			RepeatCaller:        lead.RepeatCaller,
			EstimatedValueCents: lead.EstimatedValueCents,
		})
		items = append(items, transport.QueueItem{
			Lead:  toResponse(lead),
			Tier:  string(tier),
			Score: notify.Score(tier, lead.CreatedAt, now),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items, nil
}

func (s *Service) RecordCallbackOutcome(ctx context.Context, leadID, accountID uuid.UUID, req transport.CallbackOutcomeRequest) error {
	lead, err := s.repo.GetByID(ctx, leadID, accountID)
	if err != nil {
		return err
	}
	if lead.Status.IsTerminal() {
		return apperr.Conflict("lead is closed")
	}

	return s.repo.RecordCallbackOutcome(ctx, leadID, accountID, domain.CallbackOutcome(req.Outcome), req.Note)
}

// Snooze defers a lead and schedules the wake-up that re-surfaces it.
func (s *Service) Snooze(ctx context.Context, leadID, accountID uuid.UUID, remindAt time.Time) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID, accountID)
	if err != nil {
		return domain.Lead{}, err
	}

	if err := lead.Defer(remindAt, s.now()); err != nil {
		return domain.Lead{}, err
	}
	if err := s.repo.UpdateState(ctx, &lead); err != nil {
		return domain.Lead{}, err
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleSnoozeWake(ctx, accountID, leadID, remindAt); err != nil {
			s.log.Warn("failed to schedule snooze wake", "leadId", leadID, "error", err)
		}
	}
	return lead, nil
}

func (s *Service) MarkLost(ctx context.Context, leadID, accountID uuid.UUID, reason string) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID, accountID)
	if err != nil {
		return domain.Lead{}, err
	}

	if err := lead.MarkLost(reason, s.now()); err != nil {
		return domain.Lead{}, err
	}
	if err := s.repo.UpdateState(ctx, &lead); err != nil {
		return domain.Lead{}, err
	}

	s.bus.Publish(ctx, events.LeadLost{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		AccountID: accountID,
		Reason:    reason,
	})
	return lead, nil
}

func toResponse(lead domain.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:               lead.ID,
		CustomerName:     lead.CustomerName,
		CustomerPhone:    lead.CustomerPhone,
		CustomerAddress:  lead.CustomerAddress,
		IssueDescription: lead.IssueDescription,
		Status:           string(lead.Status),
		PriorityColor:    string(lead.PriorityColor),
		RemindAt:         lead.RemindAt,
		ConvertedJobID:   lead.ConvertedJobID,
		CreatedAt:        lead.CreatedAt,
	}
}

// ToResponse converts a lead for handlers outside this package.
func ToResponse(lead domain.Lead) transport.LeadResponse {
	return toResponse(lead)
}
