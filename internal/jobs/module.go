// Package jobs provides the jobs domain module.
package jobs

import (
	"opsdesk_backend/internal/events"
	apphttp "opsdesk_backend/internal/http"
	"opsdesk_backend/internal/jobs/handler"
	"opsdesk_backend/internal/jobs/repository"
	"opsdesk_backend/internal/jobs/service"
	"opsdesk_backend/platform/logger"
	"opsdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the jobs domain module
type Module struct {
	handler    *handler.Handler
	Service    *service.Service
	Repository *repository.Repository
}

// NewModule creates a new jobs module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, accounts service.AccountStore, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, accounts, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler:    h,
		Service:    svc,
		Repository: repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "jobs"
}

// RegisterRoutes registers the module's routes under /api/v1/jobs
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobs := ctx.Protected.Group("/jobs")
	m.handler.RegisterRoutes(jobs)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
