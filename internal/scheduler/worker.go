package scheduler

import (
	"context"
	"fmt"
	"time"

	"opsdesk_backend/internal/events"
	leadrepo "opsdesk_backend/internal/leads/repository"
	"opsdesk_backend/platform/config"
	"opsdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deliverer performs notification sends and escalation checks.
type Deliverer interface {
	Deliver(ctx context.Context, outboxID uuid.UUID) error
	CheckEscalation(ctx context.Context, accountID, leadID uuid.UUID, sentAt time.Time) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	notify Deliverer
	leads  *leadrepo.Repository
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, notify Deliverer, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		notify: notify,
		leads:  leadrepo.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskNotificationDue, w.handleNotificationDue)
	mux.HandleFunc(TaskEscalationCheck, w.handleEscalationCheck)
	mux.HandleFunc(TaskSnoozeExpired, w.handleSnoozeExpired)
	mux.HandleFunc(TaskDigestDue, w.handleDigestDue)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleNotificationDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	return w.notify.Deliver(ctx, outboxID)
}

func (w *Worker) handleEscalationCheck(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEscalationCheckPayload(task)
	if err != nil {
		return err
	}

	accountID, err := uuid.Parse(payload.AccountID)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	return w.notify.CheckEscalation(ctx, accountID, leadID, payload.SentAt)
}

// handleSnoozeExpired re-surfaces a deferred lead unless the operator
// already handled it or the snooze was pushed further out.
func (w *Worker) handleSnoozeExpired(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSnoozeExpiredPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	accountID, err := uuid.Parse(payload.AccountID)
	if err != nil {
		return err
	}

	lead, err := w.leads.GetByID(ctx, leadID, accountID)
	if err != nil {
		return err
	}

	if lead.Status.IsTerminal() || lead.RemindAt == nil {
		return nil
	}
	if lead.RemindAt.After(time.Now()) {
		// Snooze was extended after this wake was scheduled.
		return nil
	}

	if w.bus == nil {
		return nil
	}
	w.bus.Publish(ctx, events.SnoozeExpired{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		AccountID:    lead.AccountID,
		CustomerName: lead.CustomerName,
	})
	return nil
}

func (w *Worker) handleDigestDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDigestDuePayload(task)
	if err != nil {
		return err
	}

	accountID, err := uuid.Parse(payload.AccountID)
	if err != nil {
		return err
	}

	if w.bus == nil {
		return nil
	}

	period := payload.Period
	if period == "" {
		period = "daily"
	}
	return w.bus.PublishSync(ctx, events.DigestDue{
		BaseEvent: events.NewBaseEvent(),
		AccountID: accountID,
		Period:    period,
	})
}
