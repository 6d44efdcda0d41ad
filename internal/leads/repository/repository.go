// Package repository provides persistence for leads. Every query is
// scoped by account_id to prevent cross-tenant reads or writes.
package repository

import (
	"context"
	"errors"
	"time"

	"opsdesk_backend/internal/leads/domain"
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

const leadColumns = `id, account_id, customer_name, customer_phone, customer_address,
	issue_description, status, priority_color, emergency, commercial, repeat_caller,
	estimated_value_cents, remind_at, callback_outcome, callback_outcome_at,
	callback_outcome_note, converted_job_id, lost_reason, lost_at, last_action_at, created_at`

func (r *Repository) Create(ctx context.Context, lead *domain.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO leads (id, account_id, customer_name, customer_phone, customer_address,
			issue_description, status, priority_color, emergency, commercial, repeat_caller,
			estimated_value_cents, remind_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		lead.ID, lead.AccountID, lead.CustomerName, lead.CustomerPhone, lead.CustomerAddress,
		lead.IssueDescription, string(lead.Status), string(lead.PriorityColor),
		lead.Emergency, lead.Commercial, lead.RepeatCaller,
		lead.EstimatedValueCents, lead.RemindAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id, accountID uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1 AND account_id = $2`,
		id, accountID)
	return scanLead(row)
}

// GetMostRecentByPhone returns the newest non-terminal lead for a
// customer phone number, used when the reply-context pointer has expired.
func (r *Repository) GetMostRecentByPhone(ctx context.Context, phoneDigits string, accountID uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE account_id = $2
		   AND regexp_replace(customer_phone, '\D', '', 'g') = $1
		   AND status NOT IN ('converted', 'lost')
		 ORDER BY created_at DESC
		 LIMIT 1`,
		phoneDigits, accountID)
	return scanLead(row)
}

// UpdateState persists the status and its companion fields after a
// domain transition. The caller is responsible for having applied the
// transition through the domain type.
func (r *Repository) UpdateState(ctx context.Context, lead *domain.Lead) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads
		 SET status = $3, remind_at = $4, converted_job_id = $5,
		     lost_reason = $6, lost_at = $7, last_action_at = $8
		 WHERE id = $1 AND account_id = $2`,
		lead.ID, lead.AccountID, string(lead.Status), lead.RemindAt, lead.ConvertedJobID,
		nullIfEmpty(lead.LostReason), lead.LostAt, lead.LastActionAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

// AppendNote attaches an operator note to the lead and touches
// last_action_at so escalation sees the activity.
func (r *Repository) AppendNote(ctx context.Context, leadID, accountID uuid.UUID, note string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE leads SET last_action_at = now() WHERE id = $1 AND account_id = $2`,
		leadID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO lead_notes (id, lead_id, account_id, body) VALUES ($1, $2, $3, $4)`,
		uuid.New(), leadID, accountID, note)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RecordCallbackOutcome stores the result of a follow-up attempt.
func (r *Repository) RecordCallbackOutcome(ctx context.Context, leadID, accountID uuid.UUID, outcome domain.CallbackOutcome, note string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads
		 SET callback_outcome = $3, callback_outcome_at = now(),
		     callback_outcome_note = $4, last_action_at = now()
		 WHERE id = $1 AND account_id = $2`,
		leadID, accountID, string(outcome), note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

// ListActive returns all non-terminal leads for the account, oldest first.
// The urgency ordering is applied in the service layer.
func (r *Repository) ListActive(ctx context.Context, accountID uuid.UUID) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE account_id = $1 AND status NOT IN ('converted', 'lost')
		 ORDER BY created_at ASC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// TouchLastAction records operator activity against a lead. The
// escalation check reads this timestamp.
func (r *Repository) TouchLastAction(ctx context.Context, leadID, accountID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE leads SET last_action_at = now() WHERE id = $1 AND account_id = $2`,
		leadID, accountID)
	return err
}

// LeadActivity reports whether the lead is terminal and when the
// operator last acted on it.
func (r *Repository) LeadActivity(ctx context.Context, leadID, accountID uuid.UUID) (bool, *time.Time, error) {
	lead, err := r.GetByID(ctx, leadID, accountID)
	if err != nil {
		return false, nil, err
	}
	return lead.Status.IsTerminal(), lead.LastActionAt, nil
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	var status, color string
	var outcome, lostReason, outcomeNote *string
	err := row.Scan(&l.ID, &l.AccountID, &l.CustomerName, &l.CustomerPhone, &l.CustomerAddress,
		&l.IssueDescription, &status, &color, &l.Emergency, &l.Commercial, &l.RepeatCaller,
		&l.EstimatedValueCents, &l.RemindAt, &outcome, &l.CallbackOutcomeAt,
		&outcomeNote, &l.ConvertedJobID, &lostReason, &l.LostAt, &l.LastActionAt, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return domain.Lead{}, err
	}
	l.Status = domain.Status(status)
	l.PriorityColor = domain.PriorityColor(color)
	if outcome != nil {
		o := domain.CallbackOutcome(*outcome)
		l.CallbackOutcome = &o
	}
	if lostReason != nil {
		l.LostReason = *lostReason
	}
	if outcomeNote != nil {
		l.CallbackOutcomeNote = *outcomeNote
	}
	return l, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
