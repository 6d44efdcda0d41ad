package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"opsdesk_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleEscalationCheck arms a delayed re-evaluation of an
// unanswered STANDARD notification.
func (c *Client) ScheduleEscalationCheck(ctx context.Context, accountID, leadID uuid.UUID, after time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewEscalationCheckTask(EscalationCheckPayload{
		AccountID: accountID.String(),
		LeadID:    leadID.String(),
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessIn(after), asynq.Queue(c.queue))
	return err
}

// ScheduleSnoozeWake fires when a deferred lead's remind_at passes.
func (c *Client) ScheduleSnoozeWake(ctx context.Context, accountID, leadID uuid.UUID, at time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewSnoozeExpiredTask(SnoozeExpiredPayload{
		LeadID:    leadID.String(),
		AccountID: accountID.String(),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(at), asynq.Queue(c.queue))
	return err
}

// ScheduleDigest enqueues the periodic digest for an account. The task
// id makes re-planning the same digest slot a no-op.
func (c *Client) ScheduleDigest(ctx context.Context, accountID uuid.UUID, period string, at time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewDigestDueTask(DigestDuePayload{
		AccountID: accountID.String(),
		Period:    period,
	})
	if err != nil {
		return err
	}

	taskID := fmt.Sprintf("digest:%s:%s:%s", period, accountID, at.UTC().Format("2006-01-02"))
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at), asynq.Queue(c.queue), asynq.TaskID(taskID))
	if err != nil && errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
