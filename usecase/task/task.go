// Package task orchestrates work-item mutations and keeps the SLA timer in
// step with every status transition.
package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/pkg/clock"
	"github.com/workreport/backend/repository"
	"github.com/workreport/backend/usecase/sla"
)

type UseCase struct {
	tasks   repository.TaskRepository
	history repository.HistoryRepository
	timers  *sla.Controller
	health  *sla.Service
	clock   clock.Clock
	logger  *zap.Logger
}

func New(
	tasks repository.TaskRepository,
	history repository.HistoryRepository,
	timers *sla.Controller,
	health *sla.Service,
	clk clock.Clock,
	logger *zap.Logger,
) *UseCase {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:   tasks,
		history: history,
		timers:  timers,
		health:  health,
		clock:   clk,
		logger:  logger,
	}
}

func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil || task.Title == "" {
		return nil, domain.ErrInvalidPayload
	}
	if task.Category == "" {
		task.Category = domain.CategoryTask
	}
	if task.Status == "" {
		task.Status = domain.InitialStatus(task.Category)
	}
	if !task.Status.Valid() {
		return nil, domain.ErrInvalidPayload
	}

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	// Timer creation is an explicit factory call at task creation, not a
	// storage side effect. A failure here is recoverable: the controller
	// lazily creates missing timers on the first transition.
	if _, err := uc.timers.EnsureTimer(ctx, created.ID); err != nil {
		uc.logger.Warn("sla timer creation deferred", zap.String("task_id", created.ID), zap.Error(err))
	}
	return created, nil
}

func (uc *UseCase) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, id)
}

func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return uc.tasks.List(ctx, filter)
}

// UpdateTask applies non-lifecycle edits. A status change smuggled into the
// payload is routed through the same validated transition path as the
// dedicated endpoint so the timer can never fall out of step.
func (uc *UseCase) UpdateTask(ctx context.Context, task *domain.Task, actor string) (*domain.Task, error) {
	if task == nil || task.ID == "" {
		return nil, domain.ErrInvalidPayload
	}

	current, err := uc.tasks.GetByID(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	newStatus := task.Status
	task.Status = current.Status
	task.CompletedAt = current.CompletedAt
	task.Category = current.Category
	task.CreatedAt = current.CreatedAt

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	if newStatus != "" && newStatus != current.Status {
		return uc.ChangeStatus(ctx, task.ID, newStatus, actor)
	}
	return task, nil
}

func (uc *UseCase) DeleteTask(ctx context.Context, id string) error {
	return uc.tasks.Delete(ctx, id)
}

// ChangeStatus moves a task through its state machine and applies the
// matching timer event. The timer update runs under its own per-task
// optimistic lock; concurrent bulk operations on other tasks are unaffected.
func (uc *UseCase) ChangeStatus(ctx context.Context, taskID string, newStatus domain.Status, actor string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	oldStatus := task.Status
	if !domain.ValidTransition(task.Category, oldStatus, newStatus) {
		return nil, domain.ErrInvalidTransition
	}
	if oldStatus == newStatus {
		return task, nil
	}

	task.Status = newStatus
	switch {
	case newStatus.IsTerminal():
		now := uc.clock.Now()
		task.CompletedAt = &now
	case oldStatus.IsTerminal():
		task.CompletedAt = nil
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	uc.appendHistory(ctx, taskID, actor, "status", string(oldStatus), string(newStatus))

	if oldStatus.IsTerminal() && !newStatus.IsTerminal() {
		_, err = uc.timers.OnReopen(ctx, taskID)
	} else {
		_, err = uc.timers.OnStatusChanged(ctx, taskID, oldStatus, newStatus)
	}
	if err != nil {
		// The task row already moved; report the timer failure instead of
		// leaving it to silently drift.
		return nil, err
	}
	return task, nil
}

// CompleteTask is a shorthand for the done transition used by list actions.
func (uc *UseCase) CompleteTask(ctx context.Context, taskID, actor string) (*domain.Task, error) {
	return uc.ChangeStatus(ctx, taskID, domain.StatusDone, actor)
}

// ReopenTask brings a terminal task back into play at its category's
// initial status. Pause history survives the reopen.
func (uc *UseCase) ReopenTask(ctx context.Context, taskID, actor string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Status.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}
	return uc.ChangeStatus(ctx, taskID, domain.InitialStatus(task.Category), actor)
}

// PauseTimer and ResumeTimer drive the manual pause trigger. They are
// independent of task status: pausing does not block the task, and a task
// blocked by status stays paused after a manual resume.
func (uc *UseCase) PauseTimer(ctx context.Context, taskID, actor string) (*domain.SlaTimer, error) {
	if _, err := uc.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	timer, err := uc.timers.OnManualPause(ctx, taskID)
	if err != nil {
		return nil, err
	}
	uc.appendHistory(ctx, taskID, actor, "sla_timer", "running", "paused")
	return timer, nil
}

func (uc *UseCase) ResumeTimer(ctx context.Context, taskID, actor string) (*domain.SlaTimer, error) {
	if _, err := uc.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	timer, err := uc.timers.OnManualResume(ctx, taskID)
	if err != nil {
		return nil, err
	}
	uc.appendHistory(ctx, taskID, actor, "sla_timer", "paused", "running")
	return timer, nil
}

// BulkResult summarizes a bulk status change. Failures are reported per
// task; one bad task never rolls back or blocks the rest.
type BulkResult struct {
	Updated int               `json:"updated"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// BulkChangeStatus applies one status to many tasks as independent per-task
// transitions. Each task takes and releases its own timer lock; the batch
// never holds a lock across items.
func (uc *UseCase) BulkChangeStatus(ctx context.Context, taskIDs []string, newStatus domain.Status, actor string) (BulkResult, error) {
	if !newStatus.Valid() {
		return BulkResult{}, domain.ErrInvalidPayload
	}
	result := BulkResult{Failed: make(map[string]string)}
	for _, id := range taskIDs {
		if _, err := uc.ChangeStatus(ctx, id, newStatus, actor); err != nil {
			uc.logger.Warn("bulk status change skipped task",
				zap.String("task_id", id), zap.String("status", string(newStatus)), zap.Error(err))
			result.Failed[id] = err.Error()
			continue
		}
		result.Updated++
	}
	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result, nil
}

// TaskHealth evaluates one task's SLA state on demand.
func (uc *UseCase) TaskHealth(ctx context.Context, taskID string) (domain.HealthResult, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return domain.HealthResult{}, err
	}
	return uc.health.Health(ctx, task)
}

// UrgentTasks lists active tasks at amber or worse, most urgent first.
func (uc *UseCase) UrgentTasks(ctx context.Context, filter repository.TaskFilter) ([]sla.BatchItem, error) {
	filter.Active = true
	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return uc.health.Urgent(ctx, tasks)
}

// ProjectStats aggregates SLA health for dashboards.
type ProjectStats struct {
	ProjectID   string               `json:"project_id"`
	Total       int                  `json:"total"`
	LevelCounts map[domain.Level]int `json:"level_counts"`
	OnTimeRate  float64              `json:"on_time_rate"`
}

func (uc *UseCase) Stats(ctx context.Context, projectID string) (ProjectStats, error) {
	tasks, err := uc.tasks.List(ctx, repository.TaskFilter{ProjectID: projectID, Limit: 100})
	if err != nil {
		return ProjectStats{}, err
	}
	items, err := uc.health.HealthAll(ctx, tasks)
	if err != nil {
		return ProjectStats{}, err
	}
	return ProjectStats{
		ProjectID:   projectID,
		Total:       len(tasks),
		LevelCounts: sla.LevelCounts(items),
		OnTimeRate:  sla.OnTimeRate(items),
	}, nil
}

// TaskHistory returns the recorded field changes, newest first.
func (uc *UseCase) TaskHistory(ctx context.Context, taskID string, limit int) ([]domain.HistoryEntry, error) {
	return uc.history.ListByTask(ctx, taskID, limit)
}

func (uc *UseCase) appendHistory(ctx context.Context, taskID, actor, field, oldValue, newValue string) {
	if uc.history == nil {
		return
	}
	entry := domain.HistoryEntry{
		TaskID:   taskID,
		Field:    field,
		OldValue: oldValue,
		NewValue: newValue,
		Actor:    actor,
	}
	if err := uc.history.Append(ctx, entry); err != nil {
		uc.logger.Warn("history append failed", zap.String("task_id", taskID), zap.Error(err))
	}
}
