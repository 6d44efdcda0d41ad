// Package repository provides persistence for jobs. Every query is
// scoped by account_id to prevent cross-tenant reads or writes.
package repository

import (
	"context"
	"errors"

	"opsdesk_backend/internal/jobs/domain"
	"opsdesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const jobColumns = `id, account_id, lead_id, customer_name, customer_phone, customer_address,
	service_type, urgency, status, scheduled_at, is_ai_booked, booking_confirmed,
	needs_action, completed_at, cancelled_at, last_action_at, created_at`

func (r *Repository) Create(ctx context.Context, job *domain.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO jobs (id, account_id, lead_id, customer_name, customer_phone, customer_address,
			service_type, urgency, status, scheduled_at, is_ai_booked, booking_confirmed, needs_action)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.AccountID, job.LeadID, job.CustomerName, job.CustomerPhone, job.CustomerAddress,
		job.ServiceType, string(job.Urgency), string(job.Status), job.ScheduledAt,
		job.IsAIBooked, job.BookingConfirmed, job.NeedsAction)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id, accountID uuid.UUID) (domain.Job, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND account_id = $2`,
		id, accountID)
	return scanJob(row)
}

// UpdateState persists a job's status and companion fields after a
// domain transition.
func (r *Repository) UpdateState(ctx context.Context, job *domain.Job) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $3, booking_confirmed = $4, needs_action = $5,
		     completed_at = $6, cancelled_at = $7, last_action_at = $8
		 WHERE id = $1 AND account_id = $2`,
		job.ID, job.AccountID, string(job.Status), job.BookingConfirmed, job.NeedsAction,
		job.CompletedAt, job.CancelledAt, job.LastActionAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("job not found")
	}
	return nil
}

// ListOpen returns all non-terminal jobs for the account, oldest first.
func (r *Repository) ListOpen(ctx context.Context, accountID uuid.UUID) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE account_id = $1 AND status NOT IN ('complete', 'cancelled')
		 ORDER BY created_at ASC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// TouchLastAction records operator activity against a job.
func (r *Repository) TouchLastAction(ctx context.Context, jobID, accountID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET last_action_at = now() WHERE id = $1 AND account_id = $2`,
		jobID, accountID)
	return err
}

func scanJob(row pgx.Row) (domain.Job, error) {
	var j domain.Job
	var urgency, status string
	err := row.Scan(&j.ID, &j.AccountID, &j.LeadID, &j.CustomerName, &j.CustomerPhone, &j.CustomerAddress,
		&j.ServiceType, &urgency, &status, &j.ScheduledAt, &j.IsAIBooked, &j.BookingConfirmed,
		&j.NeedsAction, &j.CompletedAt, &j.CancelledAt, &j.LastActionAt, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Job{}, apperr.NotFound("job not found")
	}
	if err != nil {
		return domain.Job{}, err
	}
	j.Urgency = domain.Urgency(urgency)
	j.Status = domain.Status(status)
	return j, nil
}
