package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/workreport/backend/domain"
)

// Reminder is one pending deadline notification. Reminders survive process
// restarts; the sweeper writes them and the drainer hands them to a notifier.
type Reminder struct {
	ID               string       `json:"id"`
	TaskID           string       `json:"task_id"`
	ProjectID        string       `json:"project_id,omitempty"`
	Assignee         string       `json:"assignee,omitempty"`
	Title            string       `json:"title,omitempty"`
	Level            domain.Level `json:"level"`
	RemainingSeconds int64        `json:"remaining_seconds"`
	Deadline         time.Time    `json:"deadline"`
	Attempts         int          `json:"attempts"`
	EnqueuedAt       time.Time    `json:"enqueued_at"`

	bucketKey []byte
}

func (r *Reminder) normalize() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.EnqueuedAt.IsZero() {
		r.EnqueuedAt = time.Now()
	}
}

// priority orders reminders so the worst breaches drain first.
func (r *Reminder) priority() int {
	switch r.Level {
	case domain.LevelOverdue:
		return 1
	case domain.LevelRed:
		return 2
	case domain.LevelAmber:
		return 3
	default:
		return 4
	}
}
