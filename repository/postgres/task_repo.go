package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, project_id, assignee, title, description, category, status, priority, due_at, completed_at, metadata, created_at, updated_at`

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR project_id = $1)
	  AND ($2 = '' OR assignee = $2)
	  AND ($3 = '' OR status = $3)
	  AND (NOT $4 OR status NOT IN ('done', 'closed'))
	ORDER BY created_at DESC
	LIMIT $5 OFFSET $6
	`
	rows, err := r.pool.Query(ctx, query,
		filter.ProjectID,
		filter.Assignee,
		string(filter.Status),
		filter.Active,
		clampLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, project_id, assignee, title, description, category, status, priority, due_at, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING created_at, updated_at
	`

	var due interface{}
	if task.DueAt != nil {
		due = *task.DueAt
	}

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.ProjectID,
		task.Assignee,
		task.Title,
		task.Description,
		string(task.Category),
		string(task.Status),
		task.Priority,
		due,
		marshalMap(task.Metadata),
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET project_id = $2,
		assignee = $3,
		title = $4,
		description = $5,
		category = $6,
		status = $7,
		priority = $8,
		due_at = $9,
		completed_at = $10,
		metadata = $11,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`

	var due, completed interface{}
	if task.DueAt != nil {
		due = *task.DueAt
	}
	if task.CompletedAt != nil {
		completed = *task.CompletedAt
	}

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.ProjectID,
		task.Assignee,
		task.Title,
		task.Description,
		string(task.Category),
		string(task.Status),
		task.Priority,
		due,
		completed,
		marshalMap(task.Metadata),
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var (
		category  string
		status    string
		due       *time.Time
		completed *time.Time
		metadata  []byte
	)

	if err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Assignee,
		&task.Title,
		&task.Description,
		&category,
		&status,
		&task.Priority,
		&due,
		&completed,
		&metadata,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Category = domain.Category(category)
	task.Status = domain.Status(status)
	task.DueAt = due
	task.CompletedAt = completed
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &task.Metadata)
	}

	return &task, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
