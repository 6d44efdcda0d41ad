// Package service implements job lifecycle operations: booking,
// status progression and cancellation.
package service

import (
	"context"
	"time"

	accountrepo "opsdesk_backend/internal/accounts/repository"
	"opsdesk_backend/internal/events"
	"opsdesk_backend/internal/jobs/domain"
	"opsdesk_backend/internal/jobs/transport"
	"opsdesk_backend/platform/logger"
	"opsdesk_backend/platform/phone"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id, accountID uuid.UUID) (domain.Job, error)
	UpdateState(ctx context.Context, job *domain.Job) error
	ListOpen(ctx context.Context, accountID uuid.UUID) ([]domain.Job, error)
}

// AccountStore supplies the account timezone used to decide whether a
// booking lands on the current business day.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (accountrepo.Account, error)
}

type Service struct {
	repo     Repository
	accounts AccountStore
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(repo Repository, accounts AccountStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		bus:      bus,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create books a job and publishes JobBooked for the notification
// pipeline to classify.
func (s *Service) Create(ctx context.Context, accountID uuid.UUID, req transport.CreateJobRequest) (domain.Job, error) {
	urgency := domain.Urgency(req.Urgency)
	if req.Urgency == "" {
		urgency = domain.UrgencyMedium
	}

	status := domain.StatusNew
	if req.Confirmed {
		status = domain.StatusConfirmed
	}

	scheduledAt := req.ScheduledAt.UTC()
	job := domain.Job{
		AccountID:        accountID,
		LeadID:           req.LeadID,
		CustomerName:     req.CustomerName,
		CustomerPhone:    phone.NormalizeE164(req.CustomerPhone),
		CustomerAddress:  req.CustomerAddress,
		ServiceType:      req.ServiceType,
		Urgency:          urgency,
		Status:           status,
		ScheduledAt:      &scheduledAt,
		IsAIBooked:       req.AIBooked,
		BookingConfirmed: req.Confirmed,
		NeedsAction:      req.AIBooked && !req.Confirmed,
	}

	if err := s.repo.Create(ctx, &job); err != nil {
		return domain.Job{}, err
	}

	s.bus.Publish(ctx, events.JobBooked{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        job.ID,
		LeadID:       job.LeadID,
		AccountID:    accountID,
		CustomerName: job.CustomerName,
		ScheduledAt:  scheduledAt,
		SameDay:      s.sameBusinessDay(ctx, accountID, scheduledAt),
		AIBooked:     job.IsAIBooked,
		Confirmed:    job.BookingConfirmed,
	})
	return job, nil
}

func (s *Service) Get(ctx context.Context, jobID, accountID uuid.UUID) (domain.Job, error) {
	return s.repo.GetByID(ctx, jobID, accountID)
}

func (s *Service) ListOpen(ctx context.Context, accountID uuid.UUID) ([]transport.JobResponse, error) {
	jobs, err := s.repo.ListOpen(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toResponse(job))
	}
	return out, nil
}

// UpdateStatus advances a job through its lifecycle. Illegal moves,
// including cancelling a completed job, surface as conflict errors.
func (s *Service) UpdateStatus(ctx context.Context, jobID, accountID uuid.UUID, to domain.Status) (domain.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID, accountID)
	if err != nil {
		return domain.Job{}, err
	}

	from := job.Status
	if err := job.Transition(to, s.now()); err != nil {
		return domain.Job{}, err
	}
	if err := s.repo.UpdateState(ctx, &job); err != nil {
		return domain.Job{}, err
	}

	if from != job.Status {
		s.bus.Publish(ctx, events.JobStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			JobID:     job.ID,
			AccountID: accountID,
			OldStatus: string(from),
			NewStatus: string(job.Status),
		})
	}
	return job, nil
}

// Cancel is UpdateStatus sugar kept as its own operation because the
// dashboard exposes it as a distinct button.
func (s *Service) Cancel(ctx context.Context, jobID, accountID uuid.UUID) (domain.Job, error) {
	return s.UpdateStatus(ctx, jobID, accountID, domain.StatusCancelled)
}

func (s *Service) sameBusinessDay(ctx context.Context, accountID uuid.UUID, scheduledAt time.Time) bool {
	loc := time.UTC
	if account, err := s.accounts.GetByID(ctx, accountID); err == nil && account.Timezone != "" {
		if l, err := time.LoadLocation(account.Timezone); err == nil {
			loc = l
		}
	}
	now := s.now().In(loc)
	sched := scheduledAt.In(loc)
	return now.Year() == sched.Year() && now.YearDay() == sched.YearDay()
}

func toResponse(job domain.Job) transport.JobResponse {
	return transport.JobResponse{
		ID:               job.ID,
		LeadID:           job.LeadID,
		CustomerName:     job.CustomerName,
		CustomerPhone:    job.CustomerPhone,
		CustomerAddress:  job.CustomerAddress,
		ServiceType:      job.ServiceType,
		Urgency:          string(job.Urgency),
		Status:           string(job.Status),
		ScheduledAt:      job.ScheduledAt,
		IsAIBooked:       job.IsAIBooked,
		BookingConfirmed: job.BookingConfirmed,
		NeedsAction:      job.NeedsAction,
		CompletedAt:      job.CompletedAt,
		CancelledAt:      job.CancelledAt,
		CreatedAt:        job.CreatedAt,
	}
}

// ToResponse converts a job for handlers outside this package.
func ToResponse(job domain.Job) transport.JobResponse {
	return toResponse(job)
}
