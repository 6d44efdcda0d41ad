package command

import (
	"net/http"

	"opsdesk_backend/platform/httpkit"
	"opsdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler runs the gateway's form-encoded delivery callback
// through the command pipeline.
type WebhookHandler struct {
	service *Service
	log     *logger.Logger
}

func NewWebhookHandler(service *Service, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, log: log}
}

type webhookRequest struct {
	From string `form:"From" binding:"required"`
	To   string `form:"To" binding:"required"`
	Body string `form:"Body"`
}

// Webhook accepts one inbound message. The gateway only needs a 2xx
// acknowledgment; command failures are handled inside the pipeline and
// never surface here as errors.
func (h *WebhookHandler) Webhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid webhook payload", nil)
		return
	}

	if _, err := h.service.HandleInbound(c.Request.Context(), req.From, req.To, req.Body); err != nil {
		// Acknowledge anyway so the gateway does not redeliver.
		h.log.Error("inbound command failed", "from", req.From, "error", err)
	}
	c.Status(http.StatusNoContent)
}
