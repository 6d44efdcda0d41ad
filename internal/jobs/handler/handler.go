package handler

import (
	"net/http"

	"opsdesk_backend/internal/jobs/domain"
	"opsdesk_backend/internal/jobs/service"
	"opsdesk_backend/internal/jobs/transport"
	"opsdesk_backend/platform/httpkit"
	"opsdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for jobs
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new jobs handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the job routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListOpen)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/cancel", h.Cancel)
}

// ListOpen handles GET /api/v1/jobs
func (h *Handler) ListOpen(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	jobs, err := h.svc.ListOpen(c.Request.Context(), identity.AccountID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, jobs)
}

// Create handles POST /api/v1/jobs
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateJobRequest
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

	job, err := h.svc.Create(c.Request.Context(), identity.AccountID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, service.ToResponse(job))
}

// GetByID handles GET /api/v1/jobs/:id
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

	job, err := h.svc.Get(c.Request.Context(), id, identity.AccountID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, service.ToResponse(job))
}

// UpdateStatus handles PATCH /api/v1/jobs/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateStatusRequest
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

	job, err := h.svc.UpdateStatus(c.Request.Context(), id, identity.AccountID(), domain.Status(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, service.ToResponse(job))
}

// Cancel handles POST /api/v1/jobs/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	job, err := h.svc.Cancel(c.Request.Context(), id, identity.AccountID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, service.ToResponse(job))
}
