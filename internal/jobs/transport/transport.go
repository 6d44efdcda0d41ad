// Package transport defines the HTTP request/response shapes for jobs.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateJobRequest struct {
	LeadID          *uuid.UUID `json:"leadId"`
	CustomerName    string     `json:"customerName" validate:"required,max=200"`
	CustomerPhone   string     `json:"customerPhone" validate:"required,max=32"`
	CustomerAddress string     `json:"customerAddress" validate:"max=500"`
	ServiceType     string     `json:"serviceType" validate:"max=200"`
	Urgency         string     `json:"urgency" validate:"omitempty,oneof=low medium high emergency"`
	ScheduledAt     time.Time  `json:"scheduledAt" validate:"required"`
	AIBooked        bool       `json:"aiBooked"`
	Confirmed       bool       `json:"confirmed"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed en_route on_site complete cancelled"`
}

type JobResponse struct {
	ID               uuid.UUID  `json:"id"`
	LeadID           *uuid.UUID `json:"leadId,omitempty"`
	CustomerName     string     `json:"customerName"`
	CustomerPhone    string     `json:"customerPhone"`
	CustomerAddress  string     `json:"customerAddress,omitempty"`
	ServiceType      string     `json:"serviceType,omitempty"`
	Urgency          string     `json:"urgency"`
	Status           string     `json:"status"`
	ScheduledAt      *time.Time `json:"scheduledAt,omitempty"`
	IsAIBooked       bool       `json:"isAiBooked"`
	BookingConfirmed bool       `json:"bookingConfirmed"`
	NeedsAction      bool       `json:"needsAction"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}
