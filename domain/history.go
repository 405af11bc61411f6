package domain

import "time"

// HistoryEntry records a single field change on a task, written alongside
// every status transition so reviews can reconstruct how a task moved.
type HistoryEntry struct {
	ID        string            `json:"id"`
	TaskID    string            `json:"task_id"`
	Field     string            `json:"field"`
	OldValue  string            `json:"old_value"`
	NewValue  string            `json:"new_value"`
	Actor     string            `json:"actor,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
