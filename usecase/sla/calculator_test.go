package sla

import (
	"errors"
	"testing"
	"time"

	"github.com/workreport/backend/domain"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func activeTask(status domain.Status) *domain.Task {
	return &domain.Task{
		ID:        "task-1",
		Category:  domain.CategoryTask,
		Status:    status,
		CreatedAt: t0,
	}
}

func defaultTestPolicy() domain.Policy {
	return domain.Policy{DeadlineHours: 24, AmberHours: 6, RedHours: 2}
}

func TestDeadlineDerivedFromPolicy(t *testing.T) {
	result, err := Evaluate(activeTask(domain.StatusTodo), nil, defaultTestPolicy(), t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	want := t0.Add(24 * time.Hour)
	if !result.Deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", result.Deadline, want)
	}
}

func TestExplicitDueDateWins(t *testing.T) {
	task := activeTask(domain.StatusTodo)
	due := t0.Add(72 * time.Hour)
	task.DueAt = &due

	result, err := Evaluate(task, nil, defaultTestPolicy(), t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Deadline.Equal(due) {
		t.Fatalf("deadline = %v, want explicit due %v", result.Deadline, due)
	}
}

func TestAmberAtFourHoursRemaining(t *testing.T) {
	result, err := Evaluate(activeTask(domain.StatusInProgress), nil, defaultTestPolicy(), t0.Add(20*time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.RemainingSeconds != 4*3600 {
		t.Fatalf("remaining = %d, want %d", result.RemainingSeconds, 4*3600)
	}
	if result.Level != domain.LevelAmber {
		t.Fatalf("level = %s, want amber", result.Level)
	}
}

func TestRedAtOneHourRemaining(t *testing.T) {
	result, err := Evaluate(activeTask(domain.StatusInProgress), nil, defaultTestPolicy(), t0.Add(23*time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.RemainingSeconds != 3600 {
		t.Fatalf("remaining = %d, want 3600", result.RemainingSeconds)
	}
	if result.Level != domain.LevelRed {
		t.Fatalf("level = %s, want red", result.Level)
	}
}

func TestThresholdBoundariesInclusive(t *testing.T) {
	policy := defaultTestPolicy()

	// Exactly red-hours remaining is red.
	atRed, err := Evaluate(activeTask(domain.StatusTodo), nil, policy, t0.Add(22*time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if atRed.Level != domain.LevelRed {
		t.Fatalf("level at red boundary = %s, want red", atRed.Level)
	}

	// One second above the boundary is amber.
	aboveRed, err := Evaluate(activeTask(domain.StatusTodo), nil, policy, t0.Add(22*time.Hour-time.Second))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if aboveRed.Level != domain.LevelAmber {
		t.Fatalf("level above red boundary = %s, want amber", aboveRed.Level)
	}

	atAmber, err := Evaluate(activeTask(domain.StatusTodo), nil, policy, t0.Add(18*time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if atAmber.Level != domain.LevelAmber {
		t.Fatalf("level at amber boundary = %s, want amber", atAmber.Level)
	}

	aboveAmber, err := Evaluate(activeTask(domain.StatusTodo), nil, policy, t0.Add(18*time.Hour-time.Second))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if aboveAmber.Level != domain.LevelGreen {
		t.Fatalf("level above amber boundary = %s, want green", aboveAmber.Level)
	}
}

func TestPausedTimeDoesNotMoveDeadline(t *testing.T) {
	// Paused 5h (10h..15h after creation), evaluated at +26h: the deadline
	// stays anchored at +24h, so the task is 2h overdue even though only
	// 21h of active time elapsed.
	timer := &domain.SlaTimer{TaskID: "task-1", TotalPausedSeconds: 5 * 3600}

	result, err := Evaluate(activeTask(domain.StatusInProgress), timer, defaultTestPolicy(), t0.Add(26*time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.RemainingSeconds != -2*3600 {
		t.Fatalf("remaining = %d, want %d", result.RemainingSeconds, -2*3600)
	}
	if result.Level != domain.LevelOverdue {
		t.Fatalf("level = %s, want overdue", result.Level)
	}
	if result.ElapsedActiveSeconds != 21*3600 {
		t.Fatalf("elapsed active = %d, want %d", result.ElapsedActiveSeconds, 21*3600)
	}
}

func TestOpenPauseIntervalCountedOnDemand(t *testing.T) {
	pausedAt := t0.Add(10 * time.Hour)
	timer := &domain.SlaTimer{
		TaskID:      "task-1",
		PausedAt:    &pausedAt,
		StatusPause: true,
	}

	result, err := Evaluate(activeTask(domain.StatusBlocked), timer, defaultTestPolicy(), t0.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.ElapsedActiveSeconds != 10*3600 {
		t.Fatalf("elapsed active = %d, want %d", result.ElapsedActiveSeconds, 10*3600)
	}
	if !result.Paused {
		t.Fatalf("expected result to report paused")
	}
}

func TestTerminalEvaluationFrozen(t *testing.T) {
	task := activeTask(domain.StatusClosed)
	completed := t0.Add(30 * time.Hour)
	task.CompletedAt = &completed

	first, err := Evaluate(task, nil, defaultTestPolicy(), t0.Add(31*time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	second, err := Evaluate(task, nil, defaultTestPolicy(), t0.Add(400*time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if first.Level != domain.LevelOverdue || second.Level != domain.LevelOverdue {
		t.Fatalf("levels = %s/%s, want overdue/overdue", first.Level, second.Level)
	}
	if first.RemainingSeconds != second.RemainingSeconds {
		t.Fatalf("frozen remaining drifted: %d vs %d", first.RemainingSeconds, second.RemainingSeconds)
	}
	if !first.Terminal || !second.Terminal {
		t.Fatalf("expected terminal results")
	}
	if first.SortValue != domain.TerminalSortValue {
		t.Fatalf("sort value = %d, want terminal sentinel", first.SortValue)
	}
}

func TestTerminalOnTimeKeepsHistoricalLevel(t *testing.T) {
	task := activeTask(domain.StatusDone)
	completed := t0.Add(10 * time.Hour)
	task.CompletedAt = &completed

	result, err := Evaluate(task, nil, defaultTestPolicy(), t0.Add(100*time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Level != domain.LevelGreen {
		t.Fatalf("level = %s, want green (14h remained at completion)", result.Level)
	}
	if !result.Terminal {
		t.Fatalf("expected terminal result")
	}
}

func TestMissingCreatedAtRejected(t *testing.T) {
	_, err := Evaluate(&domain.Task{ID: "broken", Status: domain.StatusTodo}, nil, defaultTestPolicy(), t0)
	if !errors.Is(err, domain.ErrInvalidSnapshot) {
		t.Fatalf("err = %v, want ErrInvalidSnapshot", err)
	}
}

func TestNonPositiveDeadlineHoursMeansOverdue(t *testing.T) {
	policy := domain.Policy{DeadlineHours: -5, AmberHours: 6, RedHours: 2}
	result, err := Evaluate(activeTask(domain.StatusTodo), nil, policy, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Level != domain.LevelOverdue {
		t.Fatalf("level = %s, want overdue", result.Level)
	}
}

func TestClockSkewClampsElapsed(t *testing.T) {
	result, err := Evaluate(activeTask(domain.StatusTodo), nil, defaultTestPolicy(), t0.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.ElapsedActiveSeconds != 0 {
		t.Fatalf("elapsed active = %d, want 0", result.ElapsedActiveSeconds)
	}
}

func TestEvaluateAllIsolatesFailures(t *testing.T) {
	good := activeTask(domain.StatusTodo)
	tasks := []domain.Task{
		{ID: "broken", Status: domain.StatusTodo},
		*good,
	}

	items := EvaluateAll(tasks, nil, func(string) domain.Policy { return defaultTestPolicy() }, t0.Add(time.Hour))
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Err == nil {
		t.Fatalf("expected failure for broken snapshot")
	}
	if items[1].Err != nil {
		t.Fatalf("good task failed: %v", items[1].Err)
	}
	if items[1].Result.Level != domain.LevelGreen {
		t.Fatalf("level = %s, want green", items[1].Result.Level)
	}
}
