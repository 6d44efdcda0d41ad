package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountrepo "opsdesk_backend/internal/accounts/repository"
	"opsdesk_backend/internal/command"
	"opsdesk_backend/internal/events"
	"opsdesk_backend/internal/exchange"
	apphttp "opsdesk_backend/internal/http"
	"opsdesk_backend/internal/http/router"
	"opsdesk_backend/internal/jobs"
	"opsdesk_backend/internal/leads"
	leadservice "opsdesk_backend/internal/leads/service"
	"opsdesk_backend/internal/notify"
	"opsdesk_backend/internal/notify/outbox"
	"opsdesk_backend/internal/scheduler"
	"opsdesk_backend/internal/sms"
	"opsdesk_backend/internal/timeparse"
	"opsdesk_backend/platform/config"
	"opsdesk_backend/platform/db"
	"opsdesk_backend/platform/logger"
	"opsdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Delayed-task client: escalation checks and snooze wake-ups ride
	// through Redis. Without it those features degrade, the API stays up.
	var escalations notify.EscalationScheduler
	var snoozes leadservice.SnoozeScheduler
	schedClient, closeSched := initSchedulerClient(cfg, log)
	if closeSched != nil {
		defer closeSched()
	}
	if schedClient != nil {
		escalations = schedClient
		snoozes = schedClient
	}

	contextStore := initContextStore(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	accountsRepo := accountrepo.New(pool)
	exchangeRepo := exchange.NewRepository(pool)
	outboxRepo := outbox.New(pool)
	smsGateway := sms.NewClient(cfg, log)

	leadsModule := leads.NewModule(pool, val, eventBus, snoozes, log)
	jobsModule := jobs.NewModule(pool, val, accountsRepo, eventBus, log)

	notifySvc := notify.NewService(
		accountsRepo,
		outboxRepo,
		smsGateway,
		exchangeRepo,
		leadsModule.Repository,
		escalations,
		command.NewPromptWriter(contextStore),
		log,
	)
	notifyModule := notify.NewModule(notifySvc, leadsModule.Repository, jobsModule.Repository, log)
	notifyModule.RegisterSubscribers(eventBus)

	commandSvc := command.NewService(
		accountsRepo,
		leadsModule.Repository,
		jobsModule.Repository,
		smsGateway,
		exchangeRepo,
		contextStore,
		timeparse.New(),
		log,
	)
	commandModule := command.NewModule(commandSvc, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &router.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			leadsModule,
			jobsModule,
			commandModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initSchedulerClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; escalation checks and snooze wake-ups disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initContextStore(cfg *config.Config, log *logger.Logger) command.ContextStore {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not configured; reply contexts held in memory only")
		return command.NewMemoryStore()
	}

	store, err := command.NewRedisStore(cfg)
	if err != nil {
		log.Error("failed to initialize reply context store", "error", err)
		return command.NewMemoryStore()
	}
	return store
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}
