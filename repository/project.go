package repository

import (
	"context"

	"github.com/workreport/backend/domain"
)

type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, limit, offset int) ([]domain.Project, error)
	Upsert(ctx context.Context, project *domain.Project) error
}
