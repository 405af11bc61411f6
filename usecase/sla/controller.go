package sla

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/pkg/clock"
	"github.com/workreport/backend/repository"
)

const defaultMaxRetries = 3

// Controller applies task lifecycle events to SLA timers. Every operation is
// one read-modify-write of the timer row, serialized by the repository's
// version check; when a write loses the race the whole operation is retried
// a bounded number of times and then surfaced as a conflict.
type Controller struct {
	timers     repository.TimerRepository
	clock      clock.Clock
	logger     *zap.Logger
	maxRetries int
}

func NewController(timers repository.TimerRepository, clk clock.Clock, logger *zap.Logger) *Controller {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		timers:     timers,
		clock:      clk,
		logger:     logger,
		maxRetries: defaultMaxRetries,
	}
}

// EnsureTimer returns the task's timer, creating it on first use. Creation
// is an explicit factory call; nothing happens as a storage side effect.
// An existing timer is returned untouched.
func (c *Controller) EnsureTimer(ctx context.Context, taskID string) (*domain.SlaTimer, error) {
	if taskID == "" {
		return nil, domain.ErrInvalidPayload
	}
	timer, err := c.timers.Get(ctx, taskID)
	if err == nil {
		return timer, nil
	}
	if !errors.Is(err, domain.ErrTimerNotFound) {
		return nil, err
	}
	return c.apply(ctx, taskID, func(*domain.SlaTimer, time.Time) {})
}

// OnStatusChanged aligns the timer with a status transition. Entering a
// paused status opens a pause interval, leaving it closes one, and terminal
// statuses settle every open interval so the frozen elapsed figure stays
// stable. The paused-status trigger is derived from the new status alone,
// which makes replaying the same transition a no-op.
func (c *Controller) OnStatusChanged(ctx context.Context, taskID string, oldStatus, newStatus domain.Status) (*domain.SlaTimer, error) {
	if oldStatus.IsPausedStatus() == newStatus.IsPausedStatus() && !newStatus.IsTerminal() && !oldStatus.IsTerminal() {
		// Paused-ness unchanged; nothing to record, but the timer must
		// still exist for later reads.
		return c.EnsureTimer(ctx, taskID)
	}
	return c.apply(ctx, taskID, func(timer *domain.SlaTimer, now time.Time) {
		timer.StatusPause = newStatus.IsPausedStatus()
		if newStatus.IsTerminal() {
			timer.StatusPause = false
			timer.ManualPause = false
		}
		timer.Reconcile(now)
	})
}

// OnManualPause suspends the clock on explicit user request, independent of
// task status. Pausing an already paused timer does not open a second
// interval.
func (c *Controller) OnManualPause(ctx context.Context, taskID string) (*domain.SlaTimer, error) {
	return c.apply(ctx, taskID, func(timer *domain.SlaTimer, now time.Time) {
		timer.ManualPause = true
		timer.Reconcile(now)
	})
}

// OnManualResume releases the manual trigger. The clock resumes only when
// the status trigger is clear as well.
func (c *Controller) OnManualResume(ctx context.Context, taskID string) (*domain.SlaTimer, error) {
	return c.apply(ctx, taskID, func(timer *domain.SlaTimer, now time.Time) {
		timer.ManualPause = false
		timer.Reconcile(now)
	})
}

// OnReopen resumes accrual after a task leaves a terminal status. Pause
// history is preserved: TotalPausedSeconds never resets.
func (c *Controller) OnReopen(ctx context.Context, taskID string) (*domain.SlaTimer, error) {
	return c.apply(ctx, taskID, func(timer *domain.SlaTimer, now time.Time) {
		timer.StatusPause = false
		timer.ManualPause = false
		timer.Reconcile(now)
	})
}

func (c *Controller) apply(ctx context.Context, taskID string, mutate func(*domain.SlaTimer, time.Time)) (*domain.SlaTimer, error) {
	if taskID == "" {
		return nil, domain.ErrInvalidPayload
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		timer, err := c.timers.Get(ctx, taskID)
		created := false
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrTimerNotFound):
			timer = domain.NewSlaTimer(taskID, c.clock.Now())
			created = true
		default:
			return nil, err
		}

		now := c.clock.Now()
		mutate(timer, now)
		timer.UpdatedAt = now

		if created {
			err = c.timers.Create(ctx, timer)
		} else {
			err = c.timers.Save(ctx, timer)
		}
		if err == nil {
			return timer, nil
		}
		if !errors.Is(err, domain.ErrTimerConflict) {
			return nil, err
		}
		lastErr = err
		c.logger.Debug("sla timer write conflict, retrying",
			zap.String("task_id", taskID), zap.Int("attempt", attempt+1))
	}
	return nil, domain.WrapError(domain.ErrCodeConflict, "sla timer update retries exhausted", lastErr)
}
