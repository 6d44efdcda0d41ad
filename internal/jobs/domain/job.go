// Package domain provides core business rules for the jobs bounded context.
package domain

import (
	"time"

	"opsdesk_backend/platform/apperr"

	"github.com/google/uuid"
)

// Status is the closed vocabulary of job states. Transitions move
// monotonically forward; cancelled is reachable from any non-terminal
// status but never reversible.
type Status string

const (
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusEnRoute   Status = "en_route"
	StatusOnSite    Status = "on_site"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// Urgency classifies how soon a job needs attention.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

// forwardOrder gives each forward status its position. Cancelled sits
// outside the forward chain.
var forwardOrder = map[Status]int{
	StatusNew:       0,
	StatusConfirmed: 1,
	StatusEnRoute:   2,
	StatusOnSite:    3,
	StatusComplete:  4,
}

// IsTerminal reports whether the status ends the job's lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusCancelled
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusCancelled {
		// A job already on site can still be cancelled; a completed one cannot.
		return true
	}
	fromPos, okFrom := forwardOrder[from]
	toPos, okTo := forwardOrder[to]
	if !okFrom || !okTo {
		return false
	}
	// Forward skips are legal: an operator can mark a confirmed job DONE
	// without walking through en_route and on_site first.
	return toPos > fromPos
}

// Job is a scheduled or in-progress service engagement.
type Job struct {
	ID               uuid.UUID
	AccountID        uuid.UUID
	LeadID           *uuid.UUID
	CustomerName     string
	CustomerPhone    string
	CustomerAddress  string
	ServiceType      string
	Urgency          Urgency
	Status           Status
	ScheduledAt      *time.Time
	IsAIBooked       bool
	BookingConfirmed bool
	NeedsAction      bool
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	LastActionAt     *time.Time
	CreatedAt        time.Time
}

// Transition applies a status change with its companion timestamps.
func (j *Job) Transition(to Status, now time.Time) error {
	if j.Status == to {
		j.LastActionAt = &now
		return nil
	}
	if !CanTransition(j.Status, to) {
		if j.Status == StatusComplete && to == StatusCancelled {
			return apperr.Conflict("a completed job cannot be cancelled")
		}
		return apperr.Conflict("cannot move job from " + string(j.Status) + " to " + string(to))
	}

	j.Status = to
	j.LastActionAt = &now

	switch to {
	case StatusComplete:
		j.CompletedAt = &now
		j.NeedsAction = false
	case StatusCancelled:
		j.CancelledAt = &now
		j.NeedsAction = false
	case StatusConfirmed:
		j.BookingConfirmed = true
	}
	return nil
}
