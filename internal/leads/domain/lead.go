// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"time"

	"opsdesk_backend/platform/apperr"

	"github.com/google/uuid"
)

// Status is the closed vocabulary of lead states. Handlers are the only
// permitted mutators of lead status in the SMS subsystem.
type Status string

const (
	StatusCallbackRequested Status = "callback_requested"
	StatusThinking          Status = "thinking"
	StatusVoicemailLeft     Status = "voicemail_left"
	StatusInfoOnly          Status = "info_only"
	StatusDeferred          Status = "deferred"
	StatusConverted         Status = "converted"
	StatusLost              Status = "lost"
	StatusAbandoned         Status = "abandoned"
)

// PriorityColor summarizes a lead's risk/value classification.
type PriorityColor string

const (
	ColorRed   PriorityColor = "red"   // callback risk
	ColorGreen PriorityColor = "green" // commercial / high value
	ColorBlue  PriorityColor = "blue"
	ColorGray  PriorityColor = "gray"
)

// CallbackOutcome records the result of an operator follow-up attempt.
type CallbackOutcome string

const (
	OutcomeBooked   CallbackOutcome = "booked"
	OutcomeResolved CallbackOutcome = "resolved"
	OutcomeTryAgain CallbackOutcome = "try_again"
	OutcomeNoAnswer CallbackOutcome = "no_answer"
)

var knownStatuses = map[Status]struct{}{
	StatusCallbackRequested: {},
	StatusThinking:          {},
	StatusVoicemailLeft:     {},
	StatusInfoOnly:          {},
	StatusDeferred:          {},
	StatusConverted:         {},
	StatusLost:              {},
	StatusAbandoned:         {},
}

// IsKnownStatus reports whether s is part of the closed status vocabulary.
func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// terminalStatuses are lead states excluded from the active action queue
// and from command targeting.
var terminalStatuses = map[Status]bool{
	StatusConverted: true,
	StatusLost:      true,
}

// IsTerminal reports whether the status ends the lead's lifecycle.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// transitions lists the permitted next statuses for every active status.
// Every active status may be deferred (setting a future remind_at defers
// the lead), and every active status may reach the terminal pair.
var transitions = map[Status][]Status{
	StatusCallbackRequested: {StatusThinking, StatusVoicemailLeft, StatusInfoOnly, StatusDeferred, StatusAbandoned, StatusConverted, StatusLost},
	StatusThinking:          {StatusCallbackRequested, StatusVoicemailLeft, StatusInfoOnly, StatusDeferred, StatusAbandoned, StatusConverted, StatusLost},
	StatusVoicemailLeft:     {StatusCallbackRequested, StatusThinking, StatusInfoOnly, StatusDeferred, StatusAbandoned, StatusConverted, StatusLost},
	StatusInfoOnly:          {StatusCallbackRequested, StatusThinking, StatusVoicemailLeft, StatusDeferred, StatusAbandoned, StatusConverted, StatusLost},
	StatusDeferred:          {StatusCallbackRequested, StatusThinking, StatusVoicemailLeft, StatusInfoOnly, StatusAbandoned, StatusConverted, StatusLost},
	StatusAbandoned:         {StatusCallbackRequested, StatusThinking, StatusVoicemailLeft, StatusInfoOnly, StatusDeferred, StatusConverted, StatusLost},
	StatusConverted:         {},
	StatusLost:              {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lead represents an unconverted inbound call or opportunity.
type Lead struct {
	ID                  uuid.UUID
	AccountID           uuid.UUID
	CustomerName        string
	CustomerPhone       string
	CustomerAddress     string
	IssueDescription    string
	Status              Status
	PriorityColor       PriorityColor
	Emergency           bool
	Commercial          bool
	RepeatCaller        bool
	EstimatedValueCents int64
	RemindAt            *time.Time
	CallbackOutcome     *CallbackOutcome
	CallbackOutcomeAt   *time.Time
	CallbackOutcomeNote string
	ConvertedJobID      *uuid.UUID
	LostReason          string
	LostAt              *time.Time
	LastActionAt        *time.Time
	CreatedAt           time.Time
}

// Transition applies a status change together with its satellite fields.
// Entering lost requires a reason and stamps LostAt; entering converted
// requires the created job's id; entering deferred requires a future
// remind_at. The companion fields are invariants of the status value, not
// independent data.
func (l *Lead) Transition(to Status, now time.Time) error {
	if !IsKnownStatus(to) {
		return apperr.Validation("unknown lead status: " + string(to))
	}
	if l.Status.IsTerminal() {
		return apperr.Conflict("lead is already " + string(l.Status))
	}
	if l.Status == to {
		// Re-sending the same status code is idempotent.
		l.LastActionAt = &now
		return nil
	}
	if !CanTransition(l.Status, to) {
		return apperr.Conflict("cannot move lead from " + string(l.Status) + " to " + string(to))
	}

	l.Status = to
	l.LastActionAt = &now

	switch to {
	case StatusLost:
		l.LostAt = &now
	case StatusConverted:
		// ConvertedJobID is set by Convert.
	case StatusDeferred:
		// RemindAt is set by Defer.
	default:
		l.RemindAt = nil
	}
	return nil
}

// Convert marks the lead converted and links the job created from it.
func (l *Lead) Convert(jobID uuid.UUID, now time.Time) error {
	if err := l.Transition(StatusConverted, now); err != nil {
		return err
	}
	l.ConvertedJobID = &jobID
	return nil
}

// MarkLost marks the lead lost with a required reason code.
func (l *Lead) MarkLost(reason string, now time.Time) error {
	if reason == "" {
		return apperr.Validation("a loss reason is required")
	}
	if err := l.Transition(StatusLost, now); err != nil {
		return err
	}
	l.LostReason = reason
	return nil
}

// Defer snoozes the lead until remindAt.
func (l *Lead) Defer(remindAt time.Time, now time.Time) error {
	if !remindAt.After(now) {
		return apperr.Validation("remind time must be in the future")
	}
	if err := l.Transition(StatusDeferred, now); err != nil {
		return err
	}
	l.RemindAt = &remindAt
	return nil
}
