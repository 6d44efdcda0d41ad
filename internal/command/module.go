package command

import (
	apphttp "opsdesk_backend/internal/http"
	"opsdesk_backend/platform/config"
	"opsdesk_backend/platform/httpkit"
	"opsdesk_backend/platform/logger"
)

// Module wires the inbound SMS webhook into the router.
type Module struct {
	handler       *WebhookHandler
	webhookSecret string
}

func NewModule(service *Service, cfg config.SMSConfig, log *logger.Logger) *Module {
	return &Module{
		handler:       NewWebhookHandler(service, log),
		webhookSecret: cfg.GetSMSWebhookSecret(),
	}
}

func (m *Module) Name() string { return "command" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	webhook := ctx.V1.Group("/webhook")
	if m.webhookSecret != "" {
		webhook.Use(httpkit.WebhookSignature(m.webhookSecret))
	}
	webhook.POST("/sms", m.handler.Webhook)
}
