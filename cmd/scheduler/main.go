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
	jobrepo "opsdesk_backend/internal/jobs/repository"
	leadrepo "opsdesk_backend/internal/leads/repository"
	"opsdesk_backend/internal/notify"
	"opsdesk_backend/internal/notify/outbox"
	"opsdesk_backend/internal/scheduler"
	"opsdesk_backend/internal/sms"
	"opsdesk_backend/platform/config"
	"opsdesk_backend/platform/db"
	"opsdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.RedisURL == "" {
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	schedClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer schedClient.Close()

	contextStore, err := command.NewRedisStore(cfg)
	if err != nil {
		log.Error("failed to initialize reply context store", "error", err)
		panic("failed to initialize reply context store: " + err.Error())
	}

	accountsRepo := accountrepo.New(pool)
	leadsRepo := leadrepo.New(pool)
	jobsRepo := jobrepo.New(pool)
	exchangeRepo := exchange.NewRepository(pool)
	outboxRepo := outbox.New(pool)
	smsGateway := sms.NewClient(cfg, log)

	notifySvc := notify.NewService(
		accountsRepo,
		outboxRepo,
		smsGateway,
		exchangeRepo,
		leadsRepo,
		schedClient,
		command.NewPromptWriter(contextStore),
		log,
	)
	notifyModule := notify.NewModule(notifySvc, leadsRepo, jobsRepo, log)
	notifyModule.RegisterSubscribers(eventBus)

	worker, err := scheduler.NewWorker(cfg, pool, notifySvc, eventBus, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	dispatcher, err := scheduler.NewOutboxDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer dispatcher.Close()

	planner := scheduler.NewDigestPlanner(schedClient, accountsRepo, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		planner.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
	}
	log.Info("scheduler shut down")
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
