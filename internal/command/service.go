package command

import (
	"context"
	"errors"
	"strings"
	"time"

	accountrepo "opsdesk_backend/internal/accounts/repository"
	"opsdesk_backend/internal/exchange"
	jobdomain "opsdesk_backend/internal/jobs/domain"
	leaddomain "opsdesk_backend/internal/leads/domain"
	"opsdesk_backend/internal/sms"
	"opsdesk_backend/internal/timeparse"
	"opsdesk_backend/platform/phone"

	"github.com/google/uuid"
)

// Legal opt-out and opt-in keyword sets. A message is an opt-out only
// when its entire trimmed body equals a keyword, so "CANCEL JOB 123"
// still routes as a job command.
var (
	optOutKeywords = map[string]bool{
		"STOP": true, "UNSUBSCRIBE": true, "CANCEL": true, "END": true, "QUIT": true,
	}
	optInKeywords = map[string]bool{
		"START": true, "UNSTOP": true, "SUBSCRIBE": true,
	}
)

// AccountStore mutates the legal subscription flag and resolves the
// owning account for an inbound webhook.
type AccountStore interface {
	GetByServiceNumber(ctx context.Context, serviceNumber string) (accountrepo.Account, error)
	SetSMSUnsubscribed(ctx context.Context, id uuid.UUID, unsubscribed bool) error
}

type LeadStore interface {
	GetByID(ctx context.Context, id, accountID uuid.UUID) (leaddomain.Lead, error)
	UpdateState(ctx context.Context, lead *leaddomain.Lead) error
	AppendNote(ctx context.Context, leadID, accountID uuid.UUID, note string) error
}

type JobStore interface {
	GetByID(ctx context.Context, id, accountID uuid.UUID) (jobdomain.Job, error)
	Create(ctx context.Context, job *jobdomain.Job) error
	UpdateState(ctx context.Context, job *jobdomain.Job) error
}

type Gateway interface {
	Send(ctx context.Context, to, body string) (string, error)
}

type ExchangeLog interface {
	Append(ctx context.Context, e exchange.Entry) error
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	SMSExchange(direction, phone, eventType string, success bool)
}

// Service executes inbound commands: resolve context, validate,
// mutate, confirm, log.
type Service struct {
	router   *Router
	accounts AccountStore
	leads    LeadStore
	jobs     JobStore
	gateway  Gateway
	exchange ExchangeLog
	contexts ContextStore
	parser   timeparse.Parser
	log      Logger
	now      func() time.Time
}

func NewService(accounts AccountStore, leads LeadStore, jobs JobStore, gateway Gateway, exch ExchangeLog, contexts ContextStore, parser timeparse.Parser, log Logger) *Service {
	s := &Service{
		accounts: accounts,
		leads:    leads,
		jobs:     jobs,
		gateway:  gateway,
		exchange: exch,
		contexts: contexts,
		parser:   parser,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.router = NewRouter(s.rules())
	return s
}

// HandleInbound runs one message through the router and the matched
// handler, then sends the confirmation reply and writes the exchange
// log. A send failure never rolls back the state mutation; the log
// records the asymmetry.
func (s *Service) HandleInbound(ctx context.Context, from, to, body string) (Result, error) {
	account, err := s.accounts.GetByServiceNumber(ctx, phone.NormalizeE164(to))
	if err != nil {
		return Result{}, err
	}

	in := Inbound{
		Account:     account,
		PhoneDigits: phone.Digits(from),
		Upper:       strings.ToUpper(strings.TrimSpace(body)),
		Raw:         strings.TrimSpace(body),
	}

	rule, _ := s.router.Route(in.Upper, in.Raw)
	result, handleErr := rule.Handle(ctx, in)
	result.RuleName = rule.Name

	s.logInbound(ctx, in, result)

	if handleErr != nil {
		return result, handleErr
	}

	if result.Reply != "" {
		messageID, sendErr := s.gateway.Send(ctx, from, result.Reply)
		s.logOutbound(ctx, in, result, messageID, sendErr == nil)
		if sendErr != nil {
			s.log.Error("confirmation send failed after state mutation",
				"rule", rule.Name, "phone", in.PhoneDigits, "error", sendErr)
		}
	}

	return result, nil
}

func (s *Service) rules() []Rule {
	return []Rule{
		{
			Name:     "opt-out",
			Priority: 1,
			Match: func(upper, _ string) bool {
				return optOutKeywords[upper]
			},
			Handle: s.handleOptOut,
		},
		{
			Name:     "opt-in",
			Priority: 2,
			Match: func(upper, _ string) bool {
				return optInKeywords[upper]
			},
			Handle: s.handleOptIn,
		},
		{
			Name:     "note-with-payload",
			Priority: 10,
			Match: func(upper, _ string) bool {
				return strings.HasPrefix(upper, "3 ") && strings.TrimSpace(upper[2:]) != ""
			},
			Handle: s.handleNote,
		},
		{
			Name:     "book-with-payload",
			Priority: 10,
			Match: func(upper, _ string) bool {
				return (strings.HasPrefix(upper, "4 ") && strings.TrimSpace(upper[2:]) != "") ||
					(strings.HasPrefix(upper, "BOOK ") && strings.TrimSpace(upper[5:]) != "")
			},
			Handle: s.handleBook,
		},
		{
			Name:     "bare-status-code",
			Priority: 20,
			Match: func(upper, _ string) bool {
				switch upper {
				case "1", "2", "3", "4", "5":
					return true
				}
				return false
			},
			Handle: s.handleBareCode,
		},
		{
			Name:     "status-keyword",
			Priority: 30,
			Match: func(upper, _ string) bool {
				switch upper {
				case "CONTACTED", "THINKING", "VM", "VOICEMAIL", "BOOKED", "CLOSED":
					return true
				}
				return false
			},
			Handle: s.handleStatusKeyword,
		},
		{
			Name:     "job-action",
			Priority: 40,
			Match: func(upper, _ string) bool {
				switch upper {
				case "OMW", "ON MY WAY", "HERE", "ON SITE", "ONSITE", "DONE", "COMPLETE", "CANCEL JOB":
					return true
				}
				return false
			},
			Handle: s.handleJobAction,
		},
		{
			Name:     "confirm",
			Priority: 50,
			Match: func(upper, _ string) bool {
				return upper == "Y" || upper == "YES" || upper == "CONFIRM"
			},
			Handle: s.handleConfirm,
		},
		{
			Name:     "help",
			Priority: 60,
			Match: func(upper, _ string) bool {
				return upper == "HELP" || upper == "?"
			},
			Handle: s.handleHelp,
		},
		{
			Name:     "free-text",
			Priority: 100,
			Match: func(_, _ string) bool {
				return true
			},
			Handle: s.handleFreeText,
		},
	}
}

// handleOptOut honors the legal keyword set. No reply is sent; the
// gateway's carrier-level confirmation is the only response the sender
// sees.
func (s *Service) handleOptOut(ctx context.Context, in Inbound) (Result, error) {
	if err := s.accounts.SetSMSUnsubscribed(ctx, in.Account.ID, true); err != nil {
		return Result{EventType: "opt_out"}, err
	}
	s.log.Info("account unsubscribed via keyword", "accountId", in.Account.ID)
	return Result{Success: true, EventType: "opt_out"}, nil
}

func (s *Service) handleOptIn(ctx context.Context, in Inbound) (Result, error) {
	if err := s.accounts.SetSMSUnsubscribed(ctx, in.Account.ID, false); err != nil {
		return Result{EventType: "opt_in"}, err
	}
	return Result{Success: true, EventType: "opt_in", Reply: sms.OptInConfirmed()}, nil
}

func (s *Service) handleNote(ctx context.Context, in Inbound) (Result, error) {
	lead, result, err := s.resolveLead(ctx, in, "note_added")
	if err != nil || !result.Success {
		return result, err
	}

	note := strings.TrimSpace(in.Raw[2:])
	if err := s.leads.AppendNote(ctx, lead.ID, in.Account.ID, note); err != nil {
		return Result{EventType: "note_added"}, err
	}

	result.Reply = sms.NoteAdded(lead.CustomerName)
	return result, nil
}

func (s *Service) handleBook(ctx context.Context, in Inbound) (Result, error) {
	lead, result, err := s.resolveLead(ctx, in, "booking")
	if err != nil || !result.Success {
		return result, err
	}

	phrase := strings.TrimSpace(in.Raw[strings.Index(in.Raw, " ")+1:])
	scheduledAt, err := s.parser.Parse(phrase, s.now())
	if err != nil {
		var clarify *timeparse.ClarificationError
		if errors.As(err, &clarify) {
			return Result{EventType: "booking", Reply: sms.ClarifyTime(clarify.Prompt)}, nil
		}
		return Result{EventType: "booking"}, err
	}

	job := &jobdomain.Job{
		AccountID:       in.Account.ID,
		LeadID:          &lead.ID,
		CustomerName:    lead.CustomerName,
		CustomerPhone:   lead.CustomerPhone,
		CustomerAddress: lead.CustomerAddress,
		ServiceType:     lead.IssueDescription,
		Urgency:         jobdomain.UrgencyMedium,
		Status:          jobdomain.StatusConfirmed,
		ScheduledAt:     &scheduledAt,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return Result{EventType: "booking"}, err
	}

	if err := lead.Convert(job.ID, s.now()); err != nil {
		return Result{EventType: "booking"}, err
	}
	if err := s.leads.UpdateState(ctx, &lead); err != nil {
		return Result{EventType: "booking"}, err
	}

	s.setContext(ctx, in.PhoneDigits, ReplyContext{
		LeadID:       &lead.ID,
		JobID:        &job.ID,
		CustomerName: lead.CustomerName,
	})

	result.JobID = &job.ID
	result.Reply = sms.BookingConfirmed(lead.CustomerName, scheduledAt)
	return result, nil
}

func (s *Service) handleBareCode(ctx context.Context, in Inbound) (Result, error) {
	switch in.Upper {
	case "1":
		return s.transitionLead(ctx, in, leaddomain.StatusCallbackRequested, "CONTACTED", "status_contacted", sms.NoteLabel())
	case "2":
		return s.transitionLead(ctx, in, leaddomain.StatusThinking, "THINKING", "status_thinking", "")
	case "3":
		return Result{EventType: "note_added", Reply: sms.ClarifyNote()}, nil
	case "4":
		return Result{EventType: "booking", Reply: sms.ClarifyTime("When should that be? Try: 4 tue 2pm")}, nil
	case "5":
		return s.markLost(ctx, in)
	}
	return Result{}, nil
}

func (s *Service) handleStatusKeyword(ctx context.Context, in Inbound) (Result, error) {
	switch in.Upper {
	case "CONTACTED":
		return s.transitionLead(ctx, in, leaddomain.StatusCallbackRequested, "CONTACTED", "status_contacted", sms.NoteLabel())
	case "THINKING":
		return s.transitionLead(ctx, in, leaddomain.StatusThinking, "THINKING", "status_thinking", "")
	case "VM", "VOICEMAIL":
		return s.transitionLead(ctx, in, leaddomain.StatusVoicemailLeft, "VOICEMAIL", "status_voicemail", "")
	case "BOOKED":
		return Result{EventType: "booking", Reply: sms.ClarifyTime("When is it booked for? Try: 4 tue 2pm")}, nil
	case "CLOSED":
		return s.markLost(ctx, in)
	}
	return Result{}, nil
}

func (s *Service) handleJobAction(ctx context.Context, in Inbound) (Result, error) {
	job, result, err := s.resolveJob(ctx, in, "job_status")
	if err != nil || !result.Success {
		return result, err
	}

	var target jobdomain.Status
	switch in.Upper {
	case "OMW", "ON MY WAY":
		target = jobdomain.StatusEnRoute
	case "HERE", "ON SITE", "ONSITE":
		target = jobdomain.StatusOnSite
	case "DONE", "COMPLETE":
		target = jobdomain.StatusComplete
	case "CANCEL JOB":
		target = jobdomain.StatusCancelled
	}

	if err := job.Transition(target, s.now()); err != nil {
		// A rejected transition still gets a reply so the operator is
		// never left with silence after a routine command.
		if target == jobdomain.StatusCancelled {
			return Result{EventType: "job_cancel_rejected", Reply: sms.CannotCancel(job.CustomerName)}, nil
		}
		return Result{EventType: "job_status_rejected", Reply: sms.CannotTransition(job.CustomerName, string(job.Status), string(target))}, nil
	}
	if err := s.jobs.UpdateState(ctx, &job); err != nil {
		return Result{EventType: "job_status"}, err
	}

	if target == jobdomain.StatusCancelled {
		result.Reply = sms.JobCancelled(job.CustomerName)
		result.EventType = "job_cancelled"
		return result, nil
	}
	result.Reply = sms.JobStatus(job.CustomerName, string(target))
	return result, nil
}

func (s *Service) handleConfirm(ctx context.Context, in Inbound) (Result, error) {
	job, result, err := s.resolveJob(ctx, in, "booking_confirmed")
	if err != nil || !result.Success {
		return result, err
	}
	if job.Status.IsTerminal() {
		return Result{EventType: "booking_confirmed", Reply: sms.CannotTransition(job.CustomerName, string(job.Status), "confirmed")}, nil
	}

	if job.Status == jobdomain.StatusNew {
		if err := job.Transition(jobdomain.StatusConfirmed, s.now()); err != nil {
			return Result{EventType: "booking_confirmed"}, err
		}
	} else {
		job.BookingConfirmed = true
	}
	if err := s.jobs.UpdateState(ctx, &job); err != nil {
		return Result{EventType: "booking_confirmed"}, err
	}

	result.Reply = sms.JobStatus(job.CustomerName, "CONFIRMED")
	return result, nil
}

func (s *Service) handleHelp(_ context.Context, _ Inbound) (Result, error) {
	return Result{Success: true, EventType: "help", Reply: sms.Help()}, nil
}

// handleFreeText attaches unmatched text as a note when a record is in
// context. With no context it stays silent so unrelated traffic never
// gets a reply.
func (s *Service) handleFreeText(ctx context.Context, in Inbound) (Result, error) {
	rc, ok, err := s.contexts.Get(ctx, in.PhoneDigits)
	if err != nil {
		s.log.Warn("context lookup failed", "phone", in.PhoneDigits, "error", err)
	}
	if !ok || rc.LeadID == nil {
		s.log.Info("free text with no context, logged only", "phone", in.PhoneDigits)
		return Result{Success: false, EventType: "free_text"}, nil
	}

	lead, err := s.leads.GetByID(ctx, *rc.LeadID, in.Account.ID)
	if err != nil {
		return Result{EventType: "free_text"}, err
	}
	if lead.Status.IsTerminal() {
		return Result{Success: false, EventType: "free_text"}, nil
	}

	if err := s.leads.AppendNote(ctx, lead.ID, in.Account.ID, in.Raw); err != nil {
		return Result{EventType: "free_text"}, err
	}
	return Result{Success: true, EventType: "free_text", Reply: sms.NoteAdded(lead.CustomerName), LeadID: &lead.ID}, nil
}

// resolveLead loads the context pointer's lead and validates it is
// still actionable. A zero-success result carries the guidance reply.
func (s *Service) resolveLead(ctx context.Context, in Inbound, eventType string) (leaddomain.Lead, Result, error) {
	rc, ok, err := s.contexts.Get(ctx, in.PhoneDigits)
	if err != nil {
		s.log.Warn("context lookup failed", "phone", in.PhoneDigits, "error", err)
	}
	if !ok || rc.LeadID == nil {
		return leaddomain.Lead{}, Result{EventType: eventType, Reply: sms.NoContext()}, nil
	}

	lead, err := s.leads.GetByID(ctx, *rc.LeadID, in.Account.ID)
	if err != nil {
		return leaddomain.Lead{}, Result{EventType: eventType}, err
	}
	if lead.Status.IsTerminal() {
		return leaddomain.Lead{}, Result{EventType: eventType, Reply: sms.NoContext()}, nil
	}
	return lead, Result{Success: true, EventType: eventType, LeadID: &lead.ID, ReplyCode: rc.LastPromptedCode}, nil
}

func (s *Service) resolveJob(ctx context.Context, in Inbound, eventType string) (jobdomain.Job, Result, error) {
	rc, ok, err := s.contexts.Get(ctx, in.PhoneDigits)
	if err != nil {
		s.log.Warn("context lookup failed", "phone", in.PhoneDigits, "error", err)
	}
	if !ok || rc.JobID == nil {
		return jobdomain.Job{}, Result{EventType: eventType, Reply: sms.NoContext()}, nil
	}

	job, err := s.jobs.GetByID(ctx, *rc.JobID, in.Account.ID)
	if err != nil {
		return jobdomain.Job{}, Result{EventType: eventType}, err
	}
	return job, Result{Success: true, EventType: eventType, JobID: &job.ID, ReplyCode: rc.LastPromptedCode}, nil
}

func (s *Service) transitionLead(ctx context.Context, in Inbound, target leaddomain.Status, word, eventType, note string) (Result, error) {
	lead, result, err := s.resolveLead(ctx, in, eventType)
	if err != nil || !result.Success {
		return result, err
	}

	if err := lead.Transition(target, s.now()); err != nil {
		return Result{EventType: eventType}, err
	}
	if err := s.leads.UpdateState(ctx, &lead); err != nil {
		return Result{EventType: eventType}, err
	}
	if note != "" {
		if err := s.leads.AppendNote(ctx, lead.ID, in.Account.ID, note); err != nil {
			return Result{EventType: eventType}, err
		}
	}

	result.Reply = sms.MarkedStatus(lead.CustomerName, word)
	return result, nil
}

func (s *Service) markLost(ctx context.Context, in Inbound) (Result, error) {
	lead, result, err := s.resolveLead(ctx, in, "status_closed")
	if err != nil || !result.Success {
		return result, err
	}

	if err := lead.MarkLost("closed via sms", s.now()); err != nil {
		return Result{EventType: "status_closed"}, err
	}
	if err := s.leads.UpdateState(ctx, &lead); err != nil {
		return Result{EventType: "status_closed"}, err
	}

	result.Reply = sms.MarkedStatus(lead.CustomerName, "CLOSED")
	return result, nil
}

func (s *Service) setContext(ctx context.Context, phoneDigits string, rc ReplyContext) {
	if err := s.contexts.Set(ctx, phoneDigits, rc); err != nil {
		s.log.Warn("failed to update reply context", "phone", phoneDigits, "error", err)
	}
}

func (s *Service) logInbound(ctx context.Context, in Inbound, result Result) {
	entry := exchange.Entry{
		AccountID: in.Account.ID,
		Direction: exchange.DirectionInbound,
		Phone:     in.PhoneDigits,
		Body:      in.Raw,
		EventType: result.EventType,
		Success:   result.Success,
		LeadID:    result.LeadID,
		JobID:     result.JobID,
	}
	if err := s.exchange.Append(ctx, entry); err != nil {
		s.log.Error("failed to append inbound exchange log", "phone", in.PhoneDigits, "error", err)
	}
	s.log.SMSExchange("inbound", in.PhoneDigits, result.EventType, result.Success)
}

func (s *Service) logOutbound(ctx context.Context, in Inbound, result Result, messageID string, success bool) {
	entry := exchange.Entry{
		AccountID: in.Account.ID,
		Direction: exchange.DirectionOutbound,
		Phone:     in.PhoneDigits,
		Body:      result.Reply,
		EventType: result.EventType,
		Success:   success,
		LeadID:    result.LeadID,
		JobID:     result.JobID,
		MessageID: messageID,
	}
	if err := s.exchange.Append(ctx, entry); err != nil {
		s.log.Error("failed to append outbound exchange log", "phone", in.PhoneDigits, "error", err)
	}
	s.log.SMSExchange("outbound", in.PhoneDigits, result.EventType, success)
}
