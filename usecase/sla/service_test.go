package sla

import (
	"context"
	"testing"
	"time"

	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/pkg/clock"
)

func newTestService(repo *memTimerRepo, now time.Time) *Service {
	provider := StaticPolicy{Policy: defaultTestPolicy()}
	return NewService(repo, provider, clock.NewFixed(now), nil)
}

func TestHealthToleratesMissingTimer(t *testing.T) {
	svc := newTestService(newMemTimerRepo(), t0.Add(time.Hour))

	result, err := svc.Health(context.Background(), activeTask(domain.StatusTodo))
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if result.Paused {
		t.Fatalf("task without timer reported as paused")
	}
	if result.Level != domain.LevelGreen {
		t.Fatalf("level = %s, want green", result.Level)
	}
}

func TestUrgentFiltersAndSorts(t *testing.T) {
	repo := newMemTimerRepo()
	now := t0.Add(23 * time.Hour)

	overdueDue := t0.Add(20 * time.Hour)
	doneAt := t0.Add(time.Hour)
	tasks := []domain.Task{
		{ID: "green", Status: domain.StatusTodo, CreatedAt: now.Add(-time.Hour)},
		{ID: "red", Status: domain.StatusInProgress, CreatedAt: t0},
		{ID: "overdue", Status: domain.StatusInProgress, CreatedAt: t0, DueAt: &overdueDue},
		{ID: "done", Status: domain.StatusDone, CreatedAt: t0, CompletedAt: &doneAt},
		{ID: "broken", Status: domain.StatusTodo},
	}

	svc := newTestService(repo, now)
	urgent, err := svc.Urgent(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Urgent failed: %v", err)
	}

	if len(urgent) != 2 {
		t.Fatalf("urgent count = %d, want 2", len(urgent))
	}
	if urgent[0].Task.ID != "overdue" || urgent[1].Task.ID != "red" {
		t.Fatalf("urgent order = %s, %s; want overdue, red", urgent[0].Task.ID, urgent[1].Task.ID)
	}
}

func TestLevelCountsSkipsFailures(t *testing.T) {
	items := []BatchItem{
		{Result: domain.HealthResult{Level: domain.LevelRed}},
		{Result: domain.HealthResult{Level: domain.LevelRed}},
		{Result: domain.HealthResult{Level: domain.LevelGreen}},
		{Err: domain.ErrInvalidSnapshot},
	}
	counts := LevelCounts(items)
	if counts[domain.LevelRed] != 2 || counts[domain.LevelGreen] != 1 {
		t.Fatalf("counts = %v, want red:2 green:1", counts)
	}
}

func TestOnTimeRate(t *testing.T) {
	items := []BatchItem{
		{Result: domain.HealthResult{Terminal: true, Level: domain.LevelGreen}},
		{Result: domain.HealthResult{Terminal: true, Level: domain.LevelOverdue}},
		{Result: domain.HealthResult{Terminal: false, Level: domain.LevelOverdue}},
	}
	if rate := OnTimeRate(items); rate != 50 {
		t.Fatalf("on-time rate = %v, want 50", rate)
	}
	if rate := OnTimeRate(nil); rate != 0 {
		t.Fatalf("on-time rate without terminals = %v, want 0", rate)
	}
}
