// Package transport defines the HTTP request/response shapes for leads.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type IngestCallRequest struct {
	CustomerName        string `json:"customerName" validate:"required,max=200"`
	CustomerPhone       string `json:"customerPhone" validate:"required,max=32"`
	CustomerAddress     string `json:"customerAddress" validate:"max=500"`
	IssueDescription    string `json:"issueDescription" validate:"max=2000"`
	PriorityColor       string `json:"priorityColor" validate:"omitempty,oneof=red green blue gray"`
	Emergency           bool   `json:"emergency"`
	Commercial          bool   `json:"commercial"`
	EstimatedValueCents int64  `json:"estimatedValueCents" validate:"gte=0"`
	EndReason           string `json:"endReason" validate:"omitempty,oneof=completed customer_hangup abandoned"`
	Source              string `json:"source" validate:"max=100"`
}

type CallbackOutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=booked resolved try_again no_answer"`
	Note    string `json:"note" validate:"max=2000"`
}

type SnoozeRequest struct {
	RemindAt time.Time `json:"remindAt" validate:"required"`
}

type MarkLostRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type LeadResponse struct {
	ID               uuid.UUID  `json:"id"`
	CustomerName     string     `json:"customerName"`
	CustomerPhone    string     `json:"customerPhone"`
	CustomerAddress  string     `json:"customerAddress,omitempty"`
	IssueDescription string     `json:"issueDescription,omitempty"`
	Status           string     `json:"status"`
	PriorityColor    string     `json:"priorityColor,omitempty"`
	RemindAt         *time.Time `json:"remindAt,omitempty"`
	ConvertedJobID   *uuid.UUID `json:"convertedJobId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type QueueItem struct {
	Lead  LeadResponse `json:"lead"`
	Tier  string       `json:"tier"`
	Score float64      `json:"score"`
}
