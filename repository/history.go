package repository

import (
	"context"

	"github.com/workreport/backend/domain"
)

type HistoryRepository interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
	ListByTask(ctx context.Context, taskID string, limit int) ([]domain.HistoryEntry, error)
}
