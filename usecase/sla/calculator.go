// Package sla implements the deadline-health engine: a pure calculator, a
// policy resolver and a timer controller. Read paths evaluate freely; all
// timer writes funnel through the controller.
package sla

import (
	"time"

	"github.com/workreport/backend/domain"
)

// Evaluate computes the SLA health of one task. It is a pure function: no
// I/O, no ambient clock, deterministic given its inputs. A nil timer means
// the task has never been paused.
func Evaluate(task *domain.Task, timer *domain.SlaTimer, policy domain.Policy, now time.Time) (domain.HealthResult, error) {
	if task == nil || task.CreatedAt.IsZero() {
		return domain.HealthResult{}, domain.ErrInvalidSnapshot
	}

	deadline := deadlineFor(task, policy)

	// Terminal tasks freeze the clock at completion so their classification
	// never drifts after closure.
	evalAt := now
	terminal := task.Status.IsTerminal()
	if terminal && task.CompletedAt != nil {
		evalAt = *task.CompletedAt
	}

	elapsed := int64(evalAt.Sub(task.CreatedAt)/time.Second) - timer.PausedSecondsAt(evalAt)
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := int64(deadline.Sub(evalAt) / time.Second)

	result := domain.HealthResult{
		TaskID:               task.ID,
		Deadline:             deadline,
		RemainingSeconds:     remaining,
		ElapsedActiveSeconds: elapsed,
		Level:                classify(remaining, policy),
		Paused:               !terminal && timer.IsPaused(),
		Terminal:             terminal,
		SortValue:            remaining,
	}
	if terminal {
		result.SortValue = domain.TerminalSortValue
	}
	return result, nil
}

// deadlineFor picks the deadline anchor: an explicit due date wins,
// otherwise the policy window counted from creation. The deadline is a fixed
// calendar point; paused time shows up in ElapsedActiveSeconds but never
// shifts the anchor.
func deadlineFor(task *domain.Task, policy domain.Policy) time.Time {
	if task.DueAt != nil {
		return *task.DueAt
	}
	if policy.DeadlineHours <= 0 {
		// A non-positive window means the deadline has already passed.
		return task.CreatedAt
	}
	return task.CreatedAt.Add(time.Duration(policy.DeadlineHours) * time.Hour)
}

// classify maps remaining seconds onto the traffic-light scale. Threshold
// boundaries are inclusive: exactly red-hours remaining is red. Terminal
// tasks pass through the same mapping with their frozen remaining value and
// are told apart by HealthResult.Terminal.
func classify(remaining int64, policy domain.Policy) domain.Level {
	switch {
	case remaining <= 0:
		return domain.LevelOverdue
	case remaining <= int64(policy.RedWindow()/time.Second):
		return domain.LevelRed
	case remaining <= int64(policy.AmberWindow()/time.Second):
		return domain.LevelAmber
	default:
		return domain.LevelGreen
	}
}

// BatchItem carries one task's evaluation outcome inside a sweep.
type BatchItem struct {
	Task   domain.Task
	Result domain.HealthResult
	Err    error
}

// EvaluateAll evaluates every task against its timer and the policy served
// by policyFor. Per-task failures are recorded on the item, never
// propagated: one malformed snapshot must not abort the rest of a sweep.
func EvaluateAll(tasks []domain.Task, timers map[string]*domain.SlaTimer, policyFor func(projectID string) domain.Policy, now time.Time) []BatchItem {
	items := make([]BatchItem, 0, len(tasks))
	for i := range tasks {
		task := tasks[i]
		result, err := Evaluate(&task, timers[task.ID], policyFor(task.ProjectID), now)
		items = append(items, BatchItem{Task: task, Result: result, Err: err})
	}
	return items
}
