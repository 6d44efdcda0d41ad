package handler

import (
	"net/http"

	"opsdesk_backend/internal/leads/service"
	"opsdesk_backend/internal/leads/transport"
	"opsdesk_backend/platform/httpkit"
	"opsdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for leads
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new leads handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the lead routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ActionQueue)
	rg.POST("/ingest-call", h.IngestCall)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/callback-outcome", h.RecordCallbackOutcome)
	rg.POST("/:id/snooze", h.Snooze)
	rg.POST("/:id/lost", h.MarkLost)
}

// ActionQueue handles GET /api/v1/leads
func (h *Handler) ActionQueue(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.ActionQueue(c.Request.Context(), identity.AccountID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, items)
}

// IngestCall handles POST /api/v1/leads/ingest-call
func (h *Handler) IngestCall(c *gin.Context) {
	var req transport.IngestCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	lead, err := h.svc.IngestCall(c.Request.Context(), identity.AccountID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, service.ToResponse(lead))
}

// GetByID handles GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id, identity.AccountID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, service.ToResponse(lead))
}

// RecordCallbackOutcome handles POST /api/v1/leads/:id/callback-outcome
func (h *Handler) RecordCallbackOutcome(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.CallbackOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.RecordCallbackOutcome(c.Request.Context(), id, identity.AccountID(), req); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"recorded": true})
}

// Snooze handles POST /api/v1/leads/:id/snooze
func (h *Handler) Snooze(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SnoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	lead, err := h.svc.Snooze(c.Request.Context(), id, identity.AccountID(), req.RemindAt)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, service.ToResponse(lead))
}

// MarkLost handles POST /api/v1/leads/:id/lost
func (h *Handler) MarkLost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.MarkLostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	lead, err := h.svc.MarkLost(c.Request.Context(), id, identity.AccountID(), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, service.ToResponse(lead))
}
