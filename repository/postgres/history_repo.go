package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/repository"
)

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository returns a Postgres-backed append-only history log.
func NewHistoryRepository(pool *pgxpool.Pool) repository.HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Append(ctx context.Context, entry domain.HistoryEntry) error {
	if entry.TaskID == "" || entry.Field == "" {
		return domain.ErrInvalidPayload
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO task_history (id, task_id, field, old_value, new_value, actor, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.TaskID,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.Actor,
		marshalMap(entry.Metadata),
	)
	return err
}

func (r *historyRepository) ListByTask(ctx context.Context, taskID string, limit int) ([]domain.HistoryEntry, error) {
	const query = `
	SELECT id, task_id, field, old_value, new_value, actor, metadata, created_at
	FROM task_history
	WHERE task_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, taskID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		var metadata []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Actor,
			&metadata,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &entry.Metadata)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
