package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/workreport/backend/internal/infrastructure/queue"
	"github.com/workreport/backend/repository"
	"github.com/workreport/backend/usecase/sla"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// Notifier delivers a reminder to whatever channel the deployment uses.
type Notifier interface {
	Notify(ctx context.Context, reminder queue.Reminder) error
}

// LogNotifier writes reminders to the structured log. It is the default
// sink until a real channel (mail, chat webhook) is wired in.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, reminder queue.Reminder) error {
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("sla reminder",
		zap.String("task_id", reminder.TaskID),
		zap.String("assignee", reminder.Assignee),
		zap.String("level", string(reminder.Level)),
		zap.Int64("remaining_seconds", reminder.RemainingSeconds),
		zap.Time("deadline", reminder.Deadline))
	return nil
}

// SweeperConfig controls the sweep and drain cadence.
type SweeperConfig struct {
	Schedule      string
	DrainInterval time.Duration
	BatchSize     int
	MaxRetries    int
	SweepLimit    int
	Retention     time.Duration
}

// Sweeper periodically evaluates every active task, queues reminders for
// those at amber or worse, and drains the queue into a notifier. Sweep and
// drain run on separate schedules so a slow notifier never delays health
// evaluation.
type Sweeper struct {
	tasks    repository.TaskRepository
	health   *sla.Service
	store    *queue.Store
	notifier Notifier
	monitor  ConnectionHealth
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      SweeperConfig
}

func NewSweeper(
	tasks repository.TaskRepository,
	health *sla.Service,
	store *queue.Store,
	notifier Notifier,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg SweeperConfig,
) *Sweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.SweepLimit <= 0 {
		cfg.SweepLimit = 1000
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}

	s := &Sweeper{
		tasks:    tasks,
		health:   health,
		store:    store,
		notifier: notifier,
		monitor:  monitor,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	_, _ = s.cron.AddFunc(toSixField(cfg.Schedule), func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("sla sweep failed", zap.Error(err))
		}
	})
	_, _ = s.cron.AddFunc(toSixField(cfg.DrainInterval.String()), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DrainInterval)
		defer cancel()
		if err := s.Drain(ctx); err != nil {
			s.logger.Error("reminder drain failed", zap.Error(err))
		}
	})

	return s
}

// Start launches the cron scheduler.
func (s *Sweeper) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("sla sweeper started", zap.String("schedule", s.cfg.Schedule))
}

// Stop gracefully stops the scheduler.
func (s *Sweeper) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("sla sweeper stopped")
}

// Sweep evaluates all active tasks and enqueues a reminder for every task
// at amber or worse. Evaluation failures on single tasks are logged and
// skipped so one broken row never starves the rest of the sweep.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if s == nil || s.store == nil {
		return nil
	}
	if s.monitor != nil && !s.monitor.IsOnline() {
		s.logger.Debug("skipping sla sweep (offline)")
		return nil
	}

	tasks, err := s.tasks.List(ctx, repository.TaskFilter{Active: true, Limit: s.cfg.SweepLimit})
	if err != nil {
		return err
	}

	urgent, err := s.health.Urgent(ctx, tasks)
	if err != nil {
		return err
	}

	for _, item := range urgent {
		reminder := queue.Reminder{
			TaskID:           item.Task.ID,
			ProjectID:        item.Task.ProjectID,
			Assignee:         item.Task.Assignee,
			Title:            item.Task.Title,
			Level:            item.Result.Level,
			RemainingSeconds: item.Result.RemainingSeconds,
			Deadline:         item.Result.Deadline,
		}
		if err := s.store.Enqueue(reminder); err != nil {
			s.logger.Error("failed to enqueue reminder",
				zap.String("task_id", reminder.TaskID), zap.Error(err))
		}
	}

	s.logger.Debug("sla sweep finished",
		zap.Int("evaluated", len(tasks)), zap.Int("urgent", len(urgent)))
	return nil
}

// Drain hands pending reminders to the notifier, oldest worst-severity
// first. Failed deliveries are requeued until MaxRetries, then dropped.
// Each drain cycle also expires reminders older than the retention window,
// so a dead notifier cannot grow the queue without bound.
func (s *Sweeper) Drain(ctx context.Context) error {
	if s == nil || s.store == nil {
		return nil
	}

	if err := s.store.Cleanup(time.Now().Add(-s.cfg.Retention)); err != nil {
		s.logger.Warn("reminder retention cleanup failed", zap.Error(err))
	}

	reminders, err := s.store.GetBatch(s.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, reminder := range reminders {
		if err := s.notifier.Notify(ctx, reminder); err != nil {
			s.logger.Error("reminder delivery failed",
				zap.String("reminder_id", reminder.ID),
				zap.String("task_id", reminder.TaskID),
				zap.Error(err))

			if reminder.Attempts+1 >= s.cfg.MaxRetries {
				s.logger.Warn("dropping reminder (max retries reached)",
					zap.String("reminder_id", reminder.ID))
				_ = s.store.Remove(reminder)
				continue
			}
			if err := s.store.Requeue(reminder); err != nil {
				s.logger.Error("failed to requeue reminder", zap.Error(err))
			}
			continue
		}

		if err := s.store.Remove(reminder); err != nil {
			s.logger.Warn("failed to purge delivered reminder", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of pending reminders.
func (s *Sweeper) Size() int {
	if s == nil || s.store == nil {
		return 0
	}
	size, err := s.store.Size()
	if err != nil {
		return 0
	}
	return size
}

// toSixField passes @-descriptors through untouched and leaves standard
// specs to the parser. Durations become @every descriptors.
func toSixField(spec string) string {
	if spec == "" {
		return spec
	}
	if spec[0] == '@' {
		return spec
	}
	if _, err := time.ParseDuration(spec); err == nil {
		return "@every " + spec
	}
	return spec
}
