package scheduler

import (
	"context"
	"time"

	accountrepo "opsdesk_backend/internal/accounts/repository"
	"opsdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Daily digests go out at this local hour.
const digestHour = 7

// AccountLister enumerates the accounts to plan digests for.
type AccountLister interface {
	List(ctx context.Context) ([]accountrepo.Account, error)
}

// DigestScheduler enqueues a digest task for one account.
type DigestScheduler interface {
	ScheduleDigest(ctx context.Context, accountID uuid.UUID, period string, at time.Time) error
}

// DigestPlanner keeps the next daily digest enqueued for every account.
// Scheduling is idempotent per account and day, so re-planning on every
// tick is safe.
type DigestPlanner struct {
	scheduler DigestScheduler
	accounts  AccountLister
	log       *logger.Logger
	interval  time.Duration
	now       func() time.Time
}

func NewDigestPlanner(scheduler DigestScheduler, accounts AccountLister, log *logger.Logger) *DigestPlanner {
	return &DigestPlanner{
		scheduler: scheduler,
		accounts:  accounts,
		log:       log,
		interval:  time.Hour,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (p *DigestPlanner) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil || p.accounts == nil {
		return
	}

	p.plan(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.plan(ctx)
		}
	}
}

func (p *DigestPlanner) plan(ctx context.Context) {
	accounts, err := p.accounts.List(ctx)
	if err != nil {
		p.log.Error("failed to list accounts for digest planning", "error", err)
		return
	}

	for _, account := range accounts {
		at := p.nextSlot(account)
		if err := p.scheduler.ScheduleDigest(ctx, account.ID, "daily", at); err != nil {
			p.log.Error("failed to schedule digest", "accountId", account.ID, "error", err)
		}
	}
}

// nextSlot returns the next digestHour in the account's local timezone.
func (p *DigestPlanner) nextSlot(account accountrepo.Account) time.Time {
	loc := time.UTC
	if account.Timezone != "" {
		if l, err := time.LoadLocation(account.Timezone); err == nil {
			loc = l
		}
	}

	now := p.now().In(loc)
	slot := time.Date(now.Year(), now.Month(), now.Day(), digestHour, 0, 0, 0, loc)
	if !slot.After(now) {
		slot = slot.AddDate(0, 0, 1)
	}
	return slot
}
