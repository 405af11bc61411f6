package repository

import (
	"context"

	"github.com/workreport/backend/domain"
)

type TaskFilter struct {
	ProjectID string
	Assignee  string
	Status    domain.Status
	// Active selects only non-terminal tasks; used by the SLA sweeper.
	Active bool
	Limit  int
	Offset int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
}
