// Package exchange records every inbound command and outbound send.
// The log is append-only and is the primary audit trail for routing
// decisions.
package exchange

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Entry struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Direction Direction
	Phone     string
	Body      string
	EventType string
	Success   bool
	LeadID    *uuid.UUID
	JobID     *uuid.UUID
	MessageID string
	CreatedAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Append(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sms_exchange_log
			(id, account_id, direction, phone, body, event_type, success, lead_id, job_id, message_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.AccountID, string(e.Direction), e.Phone, e.Body, e.EventType,
		e.Success, e.LeadID, e.JobID, nullIfEmpty(e.MessageID))
	return err
}

// ListRecentByPhone returns the latest exchanges with a number, newest
// first. Used by the operator dashboard to show conversation history.
func (r *Repository) ListRecentByPhone(ctx context.Context, accountID uuid.UUID, phone string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, direction, phone, body, event_type, success, lead_id, job_id,
			COALESCE(message_id, ''), created_at
		 FROM sms_exchange_log
		 WHERE account_id = $1 AND phone = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		accountID, phone, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var direction string
		if err := rows.Scan(&e.ID, &e.AccountID, &direction, &e.Phone, &e.Body, &e.EventType,
			&e.Success, &e.LeadID, &e.JobID, &e.MessageID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Direction = Direction(direction)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
