package domain

import "time"

// SlaTimer tracks accumulated paused time for a single task. It is the only
// record the SLA engine mutates; every write goes through the timer
// controller under the row's optimistic lock.
//
// Two independent triggers can suspend the clock: a paused task status
// (e.g. blocked) and an explicit user pause. The timer holds one flag per
// trigger and keeps exactly one open interval while any trigger is active,
// so the clock resumes only when both have released.
type SlaTimer struct {
	TaskID             string     `json:"task_id"`
	PausedAt           *time.Time `json:"paused_at,omitempty"`
	TotalPausedSeconds int64      `json:"total_paused_seconds"`
	StatusPause        bool       `json:"status_pause"`
	ManualPause        bool       `json:"manual_pause"`
	Version            int        `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewSlaTimer returns a fresh timer for the given task.
func NewSlaTimer(taskID string, now time.Time) *SlaTimer {
	return &SlaTimer{
		TaskID:    taskID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsPaused reports whether an open pause interval exists. It must agree with
// PausedAt != nil at all times.
func (t *SlaTimer) IsPaused() bool {
	return t != nil && t.PausedAt != nil
}

// PausedSecondsAt returns the accumulated paused seconds as of now, including
// the still-open interval when the timer is currently paused.
func (t *SlaTimer) PausedSecondsAt(now time.Time) int64 {
	if t == nil {
		return 0
	}
	total := t.TotalPausedSeconds
	if t.PausedAt != nil {
		if d := now.Sub(*t.PausedAt); d > 0 {
			total += int64(d / time.Second)
		}
	}
	return total
}

// Reconcile aligns the open pause interval with the trigger flags: an
// interval is open exactly while at least one trigger is active. Closing an
// interval folds its duration into TotalPausedSeconds. Calling Reconcile
// again with unchanged flags is a no-op, which makes every controller
// operation idempotent.
func (t *SlaTimer) Reconcile(now time.Time) {
	if t == nil {
		return
	}
	if t.StatusPause || t.ManualPause {
		if t.PausedAt == nil {
			at := now
			t.PausedAt = &at
		}
		return
	}
	if t.PausedAt != nil {
		if d := now.Sub(*t.PausedAt); d > 0 {
			t.TotalPausedSeconds += int64(d / time.Second)
		}
		t.PausedAt = nil
	}
}
