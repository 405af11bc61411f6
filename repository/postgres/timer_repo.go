package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/repository"
)

type timerRepository struct {
	pool *pgxpool.Pool
}

// NewTimerRepository returns a Postgres-backed TimerRepository. Writes are
// guarded by a version column: Save only touches the row when the version
// still matches what the caller read, so two concurrent read-modify-write
// cycles on the same timer cannot silently merge.
func NewTimerRepository(pool *pgxpool.Pool) repository.TimerRepository {
	return &timerRepository{pool: pool}
}

const timerColumns = `task_id, paused_at, total_paused_seconds, status_pause, manual_pause, version, created_at, updated_at`

func (r *timerRepository) Get(ctx context.Context, taskID string) (*domain.SlaTimer, error) {
	query := `
	SELECT ` + timerColumns + `
	FROM sla_timers
	WHERE task_id = $1
	`
	row := r.pool.QueryRow(ctx, query, taskID)
	return scanTimer(row)
}

func (r *timerRepository) GetMany(ctx context.Context, taskIDs []string) (map[string]*domain.SlaTimer, error) {
	if len(taskIDs) == 0 {
		return map[string]*domain.SlaTimer{}, nil
	}
	query := `
	SELECT ` + timerColumns + `
	FROM sla_timers
	WHERE task_id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, taskIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	timers := make(map[string]*domain.SlaTimer, len(taskIDs))
	for rows.Next() {
		timer, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		timers[timer.TaskID] = timer
	}
	return timers, rows.Err()
}

func (r *timerRepository) Create(ctx context.Context, timer *domain.SlaTimer) error {
	if timer == nil || timer.TaskID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO sla_timers (task_id, paused_at, total_paused_seconds, status_pause, manual_pause, version)
	VALUES ($1, $2, $3, $4, $5, 1)
	ON CONFLICT (task_id) DO NOTHING
	RETURNING created_at, updated_at
	`

	var pausedAt interface{}
	if timer.PausedAt != nil {
		pausedAt = *timer.PausedAt
	}

	err := r.pool.QueryRow(ctx, query,
		timer.TaskID,
		pausedAt,
		timer.TotalPausedSeconds,
		timer.StatusPause,
		timer.ManualPause,
	).Scan(&timer.CreatedAt, &timer.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Another writer created the row first; the caller reloads
			// and retries as an update.
			return domain.ErrTimerConflict
		}
		return err
	}

	timer.Version = 1
	return nil
}

func (r *timerRepository) Save(ctx context.Context, timer *domain.SlaTimer) error {
	if timer == nil || timer.TaskID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE sla_timers
	SET paused_at = $2,
		total_paused_seconds = $3,
		status_pause = $4,
		manual_pause = $5,
		version = version + 1,
		updated_at = NOW()
	WHERE task_id = $1 AND version = $6
	RETURNING version, updated_at
	`

	var pausedAt interface{}
	if timer.PausedAt != nil {
		pausedAt = *timer.PausedAt
	}

	err := r.pool.QueryRow(ctx, query,
		timer.TaskID,
		pausedAt,
		timer.TotalPausedSeconds,
		timer.StatusPause,
		timer.ManualPause,
		timer.Version,
	).Scan(&timer.Version, &timer.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Row missing or version moved underneath us. Tell the two
			// apart so deleted timers do not look like live contention.
			var exists bool
			if probeErr := r.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM sla_timers WHERE task_id = $1)`,
				timer.TaskID,
			).Scan(&exists); probeErr == nil && !exists {
				return domain.ErrTimerNotFound
			}
			return domain.ErrTimerConflict
		}
		return err
	}
	return nil
}

func (r *timerRepository) Delete(ctx context.Context, taskID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sla_timers WHERE task_id = $1`, taskID)
	return err
}

func scanTimer(row interface {
	Scan(dest ...interface{}) error
}) (*domain.SlaTimer, error) {
	var timer domain.SlaTimer
	if err := row.Scan(
		&timer.TaskID,
		&timer.PausedAt,
		&timer.TotalPausedSeconds,
		&timer.StatusPause,
		&timer.ManualPause,
		&timer.Version,
		&timer.CreatedAt,
		&timer.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTimerNotFound
		}
		return nil, err
	}
	return &timer, nil
}
