// Package outbox persists outbound notifications so delivery attempts
// survive restarts and can be retried on a schedule.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusEnqueued       Status = "enqueued"
	StatusProcessing     Status = "processing"
	StatusSent           Status = "sent"
	StatusFailed         Status = "failed"
	StatusSuppressed     Status = "suppressed"
	errRepoNotConfigured        = "outbox repository not configured"
)

type Record struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Tier      string
	EventType string
	Recipient string
	Body      string
	LeadID    *uuid.UUID
	JobID     *uuid.UUID
	RunAt     time.Time
	Status    Status
	Attempts  int
	LastError *string
	CreatedAt time.Time
}

type InsertParams struct {
	AccountID uuid.UUID
	Tier      string
	EventType string
	Recipient string
	Body      string
	LeadID    *uuid.UUID
	JobID     *uuid.UUID
	RunAt     time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, p InsertParams) (uuid.UUID, error) {
	if r == nil || r.pool == nil {
		return uuid.Nil, errors.New(errRepoNotConfigured)
	}
	if p.AccountID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("accountId is required")
	}
	if p.Recipient == "" {
		return uuid.Nil, fmt.Errorf("recipient is required")
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}

	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notification_outbox
			(account_id, tier, event_type, recipient, body, lead_id, job_id, run_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		 RETURNING id`,
		p.AccountID, p.Tier, p.EventType, p.Recipient, p.Body, p.LeadID, p.JobID, p.RunAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// AppendToPendingBatch merges a body line into an existing pending row
// for the same recipient and tier whose send is still in the future.
// Returns false when no such row exists and the caller should insert.
func (r *Repository) AppendToPendingBatch(ctx context.Context, accountID uuid.UUID, recipient, tier, line string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New(errRepoNotConfigured)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET body = body || E'\n' || $4, updated_at = now()
		 WHERE id = (
			SELECT id FROM notification_outbox
			WHERE account_id = $1 AND recipient = $2 AND tier = $3
			  AND status = 'pending' AND run_at > now()
			ORDER BY run_at ASC
			LIMIT 1
		 )`,
		accountID, recipient, tier, line)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	if r == nil || r.pool == nil {
		return Record{}, errors.New(errRepoNotConfigured)
	}

	var rec Record
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, account_id, tier, event_type, recipient, body, lead_id, job_id,
			run_at, status, attempts, last_error, created_at
		 FROM notification_outbox
		 WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.AccountID, &rec.Tier, &rec.EventType, &rec.Recipient, &rec.Body,
		&rec.LeadID, &rec.JobID, &rec.RunAt, &status, &rec.Attempts, &rec.LastError, &rec.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}

// ClaimDue moves due pending rows to enqueued and returns them. The
// row lock keeps concurrent dispatchers from claiming the same rows.
func (r *Repository) ClaimDue(ctx context.Context, limit int) ([]Record, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM notification_outbox
		WHERE status = 'pending' AND run_at <= now()
		ORDER BY run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE notification_outbox o
	SET status = 'enqueued', updated_at = now()
	FROM cte
	WHERE o.id = cte.id
	RETURNING o.id, o.account_id, o.tier, o.event_type, o.recipient, o.body, o.lead_id, o.job_id,
		o.run_at, o.status, o.attempts, o.last_error, o.created_at`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Tier, &rec.EventType, &rec.Recipient, &rec.Body,
			&rec.LeadID, &rec.JobID, &rec.RunAt, &status, &rec.Attempts, &rec.LastError, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Status = Status(status)
		results = append(results, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'processing', attempts = attempts + 1, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	return err
}

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'sent', last_error = NULL, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	return err
}

// Reschedule returns a failed attempt to pending with a future run_at.
func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'pending', run_at = $2, last_error = $3, updated_at = now()
		 WHERE id = $1`,
		id, runAt, lastError,
	)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'failed', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
	return err
}

func (r *Repository) MarkSuppressed(ctx context.Context, id uuid.UUID, reason string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'suppressed', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, reason,
	)
	return err
}
