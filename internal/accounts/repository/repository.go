// Package repository provides persistence for business account settings.
package repository

import (
	"context"
	"errors"
	"time"

	"opsdesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account is one home-service business. A single operator phone receives
// all SMS notifications for the account.
type Account struct {
	ID                uuid.UUID
	Name              string
	OperatorPhone     string
	ServiceNumber     string // the SMS number customers and the gateway address
	Timezone          string // IANA name, e.g. America/Chicago
	QuietStartMinute  int    // minutes from local midnight
	QuietEndMinute    int
	SMSUnsubscribed   bool
	SMSUnsubscribedAt *time.Time
	CreatedAt         time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, name, operator_phone, service_number, timezone,
	quiet_start_minute, quiet_end_minute, sms_unsubscribed, sms_unsubscribed_at, created_at`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByServiceNumber resolves the owning account for an inbound webhook's
// "to" number. The number is stored in E.164.
func (r *Repository) GetByServiceNumber(ctx context.Context, serviceNumber string) (Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE service_number = $1`, serviceNumber)
	return scanAccount(row)
}

// SetSMSUnsubscribed records the legal opt-out (or opt-in) state. Once
// unsubscribed, the delivery pipeline must suppress every non-exempt send.
func (r *Repository) SetSMSUnsubscribed(ctx context.Context, id uuid.UUID, unsubscribed bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts
		 SET sms_unsubscribed = $2,
		     sms_unsubscribed_at = CASE WHEN $2 THEN now() ELSE NULL END
		 WHERE id = $1`,
		id, unsubscribed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

// List returns every account, used by the digest planner to fan out
// periodic summaries.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.OperatorPhone, &a.ServiceNumber, &a.Timezone,
		&a.QuietStartMinute, &a.QuietEndMinute, &a.SMSUnsubscribed, &a.SMSUnsubscribedAt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, apperr.NotFound("account not found")
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}
