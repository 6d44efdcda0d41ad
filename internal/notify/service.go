package notify

import (
	"context"
	"fmt"
	"time"

	accountrepo "opsdesk_backend/internal/accounts/repository"
	"opsdesk_backend/internal/exchange"
	"opsdesk_backend/internal/notify/outbox"

	"github.com/google/uuid"
)

// Gateway is the outbound SMS collaborator.
type Gateway interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// AccountStore supplies recipient, quiet hours and the opt-out flag.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (accountrepo.Account, error)
}

// RecordActivity reports whether the operator acted on a lead, used to
// decide whether an unanswered STANDARD notification escalates.
type RecordActivity interface {
	LeadActivity(ctx context.Context, leadID, accountID uuid.UUID) (terminal bool, lastActionAt *time.Time, err error)
}

// EscalationScheduler arms the delayed escalation check for STANDARD
// sends.
type EscalationScheduler interface {
	ScheduleEscalationCheck(ctx context.Context, accountID, leadID uuid.UUID, after time.Duration) error
}

// ExchangeLog is the audit sink for outbound sends.
type ExchangeLog interface {
	Append(ctx context.Context, e exchange.Entry) error
}

// PromptPointer is the reply-context pointer written for the operator
// phone whenever an outbound prompt references a record, so bare reply
// codes resolve to it.
type PromptPointer struct {
	LeadID       *uuid.UUID
	JobID        *uuid.UUID
	CustomerName string
	PromptedCode string
}

// ContextPrompter stores the per-phone reply context. Last write wins.
type ContextPrompter interface {
	SetPrompt(ctx context.Context, phone string, p PromptPointer) error
}

// OutboxStore persists planned sends.
type OutboxStore interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	AppendToPendingBatch(ctx context.Context, accountID uuid.UUID, recipient, tier, line string) (bool, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	MarkSuppressed(ctx context.Context, id uuid.UUID, reason string) error
	Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	DeliveryFailure(tier, phone string, attempts int, err error)
	SMSExchange(direction, phone, eventType string, success bool)
}

type Service struct {
	accounts   AccountStore
	outbox     OutboxStore
	gateway    Gateway
	exchange   ExchangeLog
	activity   RecordActivity
	escalation EscalationScheduler
	prompter   ContextPrompter
	log        Logger
	now        func() time.Time
}

func NewService(accounts AccountStore, ob OutboxStore, gateway Gateway, exch ExchangeLog, activity RecordActivity, escalation EscalationScheduler, prompter ContextPrompter, log Logger) *Service {
	return &Service{
		accounts:   accounts,
		outbox:     ob,
		gateway:    gateway,
		exchange:   exch,
		activity:   activity,
		escalation: escalation,
		prompter:   prompter,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NotifyParams describes one business event to deliver to the
// operator.
type NotifyParams struct {
	AccountID    uuid.UUID
	Context      Context
	Body         string
	LeadID       *uuid.UUID
	JobID        *uuid.UUID
	CustomerName string
	PromptedCode string
}

// Notify classifies the event and schedules (or suppresses) delivery.
// Opted-out accounts produce no send at all.
func (s *Service) Notify(ctx context.Context, p NotifyParams) error {
	account, err := s.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	if account.SMSUnsubscribed {
		s.log.Info("notification suppressed, account unsubscribed",
			"accountId", p.AccountID, "eventType", p.Context.EventType)
		return nil
	}

	tier := Classify(p.Context)
	behavior := BehaviorFor(tier)
	now := s.now()
	runAt := now

	if !behavior.BypassQuietHours {
		window, err := quietWindowFor(account)
		if err != nil {
			s.log.Warn("invalid account timezone, quiet hours skipped",
				"accountId", p.AccountID, "error", err)
		} else if window.Contains(now) {
			runAt = window.NextOpen(now)
		}
	}

	if behavior.BatchWindow > 0 {
		merged, err := s.outbox.AppendToPendingBatch(ctx, p.AccountID, account.OperatorPhone, string(tier), p.Body)
		if err != nil {
			return fmt.Errorf("merge into batch: %w", err)
		}
		if merged {
			s.setPrompt(ctx, account.OperatorPhone, p)
			s.log.Info("notification merged into pending batch",
				"accountId", p.AccountID, "tier", tier)
			return nil
		}
		batchAt := now.Add(behavior.BatchWindow)
		if batchAt.After(runAt) {
			runAt = batchAt
		}
	}

	id, err := s.outbox.Insert(ctx, outbox.InsertParams{
		AccountID: p.AccountID,
		Tier:      string(tier),
		EventType: p.Context.EventType,
		Recipient: account.OperatorPhone,
		Body:      p.Body,
		LeadID:    p.LeadID,
		JobID:     p.JobID,
		RunAt:     runAt,
	})
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	s.setPrompt(ctx, account.OperatorPhone, p)

	s.log.Info("notification scheduled",
		"outboxId", id, "tier", tier, "eventType", p.Context.EventType, "runAt", runAt)
	return nil
}

// Deliver performs one send attempt for an outbox record. The opt-out
// gate is re-evaluated here so a STOP received after scheduling still
// suppresses the send.
func (s *Service) Deliver(ctx context.Context, id uuid.UUID) error {
	rec, err := s.outbox.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load outbox record: %w", err)
	}
	if rec.Status == outbox.StatusSent || rec.Status == outbox.StatusFailed || rec.Status == outbox.StatusSuppressed {
		return nil
	}

	account, err := s.accounts.GetByID(ctx, rec.AccountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if account.SMSUnsubscribed {
		return s.outbox.MarkSuppressed(ctx, id, "account unsubscribed")
	}

	if err := s.outbox.MarkProcessing(ctx, id); err != nil {
		return err
	}
	attempt := rec.Attempts + 1

	messageID, sendErr := s.gateway.Send(ctx, rec.Recipient, rec.Body)
	if sendErr == nil {
		if err := s.outbox.MarkSent(ctx, id); err != nil {
			return err
		}
		s.logExchange(ctx, rec, messageID, true)
		s.armEscalation(ctx, rec)
		return nil
	}

	behavior := BehaviorFor(Tier(rec.Tier))
	delay, ok := behavior.NextDelay(attempt)
	if !ok {
		s.log.DeliveryFailure(rec.Tier, rec.Recipient, attempt, sendErr)
		if err := s.outbox.MarkFailed(ctx, id, sendErr.Error()); err != nil {
			return err
		}
		s.logExchange(ctx, rec, "", false)
		return nil
	}

	s.log.Warn("send attempt failed, retrying",
		"outboxId", id, "attempt", attempt, "retryIn", delay, "error", sendErr)
	return s.outbox.Reschedule(ctx, id, s.now().Add(delay), sendErr.Error())
}

// CheckEscalation runs when a STANDARD notification's escalate-after
// window elapses. If the lead is terminal or the operator acted since
// the send, nothing happens; otherwise the event re-enters the
// pipeline as URGENT.
func (s *Service) CheckEscalation(ctx context.Context, accountID, leadID uuid.UUID, sentAt time.Time) error {
	terminal, lastActionAt, err := s.activity.LeadActivity(ctx, leadID, accountID)
	if err != nil {
		return fmt.Errorf("load lead activity: %w", err)
	}
	if terminal {
		s.log.Info("escalation suppressed, record is terminal", "leadId", leadID)
		return nil
	}
	if lastActionAt != nil && lastActionAt.After(sentAt) {
		s.log.Info("escalation suppressed, operator acted", "leadId", leadID)
		return nil
	}

	return s.Notify(ctx, NotifyParams{
		AccountID: accountID,
		Context:   Context{EventType: EventEscalation},
		Body:      "⚠ Still awaiting action on a lead. Reply HELP for commands.",
		LeadID:    &leadID,
	})
}

func (s *Service) setPrompt(ctx context.Context, phone string, p NotifyParams) {
	if s.prompter == nil || (p.LeadID == nil && p.JobID == nil) {
		return
	}
	pointer := PromptPointer{
		LeadID:       p.LeadID,
		JobID:        p.JobID,
		CustomerName: p.CustomerName,
		PromptedCode: p.PromptedCode,
	}
	if err := s.prompter.SetPrompt(ctx, phone, pointer); err != nil {
		s.log.Warn("failed to store reply context", "phone", phone, "error", err)
	}
}

func (s *Service) armEscalation(ctx context.Context, rec outbox.Record) {
	if Tier(rec.Tier) != TierStandard || rec.LeadID == nil || s.escalation == nil {
		return
	}
	behavior := BehaviorFor(TierStandard)
	if err := s.escalation.ScheduleEscalationCheck(ctx, rec.AccountID, *rec.LeadID, behavior.EscalateAfter); err != nil {
		s.log.Error("failed to arm escalation check", "outboxId", rec.ID, "error", err)
	}
}

func (s *Service) logExchange(ctx context.Context, rec outbox.Record, messageID string, success bool) {
	entry := exchange.Entry{
		AccountID: rec.AccountID,
		Direction: exchange.DirectionOutbound,
		Phone:     rec.Recipient,
		Body:      rec.Body,
		EventType: rec.EventType,
		Success:   success,
		LeadID:    rec.LeadID,
		JobID:     rec.JobID,
		MessageID: messageID,
	}
	if err := s.exchange.Append(ctx, entry); err != nil {
		s.log.Error("failed to append exchange log", "outboxId", rec.ID, "error", err)
	}
	s.log.SMSExchange("outbound", rec.Recipient, rec.EventType, success)
}
