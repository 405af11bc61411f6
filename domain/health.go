package domain

import (
	"math"
	"time"
)

// Level is the traffic-light classification of time remaining before the
// deadline.
type Level string

const (
	LevelGreen   Level = "green"
	LevelAmber   Level = "amber"
	LevelRed     Level = "red"
	LevelOverdue Level = "overdue"
)

// TerminalSortValue sinks completed tasks to the bottom of urgency-ordered
// views. Kept finite so results stay JSON-encodable.
const TerminalSortValue = int64(math.MaxInt64)

// HealthResult is the computed SLA state of a single task. It is derived on
// read and never persisted.
//
// For terminal tasks the evaluation clock is frozen at completion time, so
// Level reports the historical classification ("was overdue when closed")
// rather than a live one; Terminal lets callers tell the two apart.
type HealthResult struct {
	TaskID               string    `json:"task_id"`
	Deadline             time.Time `json:"deadline"`
	RemainingSeconds     int64     `json:"remaining_seconds"`
	ElapsedActiveSeconds int64     `json:"elapsed_active_seconds"`
	Level                Level     `json:"level"`
	Paused               bool      `json:"paused"`
	Terminal             bool      `json:"terminal"`
	SortValue            int64     `json:"sort_value"`
}

// Urgent reports whether the result should trigger a reminder.
func (r HealthResult) Urgent() bool {
	if r.Terminal {
		return false
	}
	switch r.Level {
	case LevelAmber, LevelRed, LevelOverdue:
		return true
	}
	return false
}
