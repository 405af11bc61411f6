package domain

import "time"

// Task represents a tracked work item. The SLA engine only ever reads tasks;
// mutations flow through the task use case, which keeps the timer in step.
type Task struct {
	ID          string            `json:"id"`
	ProjectID   string            `json:"project_id,omitempty"`
	Assignee    string            `json:"assignee,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Category    Category          `json:"category"`
	Status      Status            `json:"status"`
	Priority    int               `json:"priority"`
	DueAt       *time.Time        `json:"due_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (t *Task) IsTerminal() bool {
	return t != nil && t.Status.IsTerminal()
}

// Project carries the subset of project state the SLA engine cares about:
// an optional per-project deadline override in hours.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SlaHours  int       `json:"sla_hours,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
