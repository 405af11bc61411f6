package repository

import (
	"context"

	"github.com/workreport/backend/domain"
)

// TimerRepository persists per-task SLA timers.
//
// Save enforces optimistic locking on SlaTimer.Version: the write succeeds
// only when the stored version still matches the one the caller read, and
// returns domain.ErrTimerConflict otherwise. That check is what serializes
// concurrent mutations of a single timer; the controller retries around it.
type TimerRepository interface {
	Get(ctx context.Context, taskID string) (*domain.SlaTimer, error)
	// GetMany returns timers for the given task ids, keyed by task id.
	// Tasks without a timer are simply absent from the map.
	GetMany(ctx context.Context, taskIDs []string) (map[string]*domain.SlaTimer, error)
	Create(ctx context.Context, timer *domain.SlaTimer) error
	Save(ctx context.Context, timer *domain.SlaTimer) error
	Delete(ctx context.Context, taskID string) error
}
