// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"opsdesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when inbound-call ingestion creates a new lead.
type LeadCreated struct {
	BaseEvent
	LeadID              uuid.UUID `json:"leadId"`
	AccountID           uuid.UUID `json:"accountId"`
	CustomerName        string    `json:"customerName"`
	CustomerPhone       string    `json:"customerPhone"`
	IssueDescription    string    `json:"issueDescription,omitempty"`
	PriorityColor       string    `json:"priorityColor,omitempty"`
	Emergency           bool      `json:"emergency"`
	Commercial          bool      `json:"commercial"`
	RepeatCaller        bool      `json:"repeatCaller"`
	EstimatedValueCents int64     `json:"estimatedValueCents"`
	Source              string    `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// CallEnded is published when an inbound call finishes, including calls
// that never produced contact (abandoned, customer hangup).
type CallEnded struct {
	BaseEvent
	AccountID    uuid.UUID  `json:"accountId"`
	LeadID       *uuid.UUID `json:"leadId,omitempty"`
	CallerPhone  string     `json:"callerPhone"`
	CustomerName string     `json:"customerName,omitempty"`
	EndReason    string     `json:"endReason"` // completed, customer_hangup, abandoned
	RepeatCaller bool       `json:"repeatCaller"`
	Emergency    bool       `json:"emergency"`
}

func (e CallEnded) EventName() string { return "leads.call.ended" }

// LeadConverted is published when a lead becomes a booked job.
type LeadConverted struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	JobID     uuid.UUID `json:"jobId"`
	AccountID uuid.UUID `json:"accountId"`
}

func (e LeadConverted) EventName() string { return "leads.lead.converted" }

// LeadLost is published when a lead is marked lost.
type LeadLost struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	AccountID uuid.UUID `json:"accountId"`
	Reason    string    `json:"reason"`
}

func (e LeadLost) EventName() string { return "leads.lead.lost" }

// SnoozeExpired is published when a deferred lead's remind_at passes.
type SnoozeExpired struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	AccountID    uuid.UUID `json:"accountId"`
	CustomerName string    `json:"customerName"`
}

func (e SnoozeExpired) EventName() string { return "leads.snooze.expired" }

// =============================================================================
// Jobs Domain Events
// =============================================================================

// JobBooked is published when a job is scheduled, either directly or by
// converting a lead.
type JobBooked struct {
	BaseEvent
	JobID        uuid.UUID  `json:"jobId"`
	LeadID       *uuid.UUID `json:"leadId,omitempty"`
	AccountID    uuid.UUID  `json:"accountId"`
	CustomerName string     `json:"customerName"`
	ScheduledAt  time.Time  `json:"scheduledAt"`
	SameDay      bool       `json:"sameDay"`
	AIBooked     bool       `json:"aiBooked"`
	Confirmed    bool       `json:"confirmed"`
}

func (e JobBooked) EventName() string { return "jobs.job.booked" }

// JobStatusChanged is published on every job status transition.
type JobStatusChanged struct {
	BaseEvent
	JobID     uuid.UUID `json:"jobId"`
	AccountID uuid.UUID `json:"accountId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e JobStatusChanged) EventName() string { return "jobs.job.status_changed" }

// =============================================================================
// Notification Domain Events
// =============================================================================

// DigestDue is published by the scheduler when a periodic digest should
// be assembled for an account.
type DigestDue struct {
	BaseEvent
	AccountID uuid.UUID `json:"accountId"`
	Period    string    `json:"period"` // daily, weekly
}

func (e DigestDue) EventName() string { return "notify.digest.due" }
