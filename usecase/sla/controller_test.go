package sla

import (
	"context"
	"testing"
	"time"

	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/pkg/clock"
)

func newTestController(repo *memTimerRepo, clk clock.Clock) *Controller {
	return NewController(repo, clk, nil)
}

func TestStatusPauseRoundTrip(t *testing.T) {
	repo := newMemTimerRepo()
	clk := clock.NewFixed(t0)
	c := newTestController(repo, clk)
	ctx := context.Background()

	clk.Set(t0.Add(10 * time.Hour))
	timer, err := c.OnStatusChanged(ctx, "task-1", domain.StatusInProgress, domain.StatusBlocked)
	if err != nil {
		t.Fatalf("pause transition failed: %v", err)
	}
	if !timer.IsPaused() {
		t.Fatalf("expected timer paused after entering blocked")
	}

	clk.Set(t0.Add(15 * time.Hour))
	timer, err = c.OnStatusChanged(ctx, "task-1", domain.StatusBlocked, domain.StatusInProgress)
	if err != nil {
		t.Fatalf("resume transition failed: %v", err)
	}
	if timer.IsPaused() {
		t.Fatalf("expected timer resumed after leaving blocked")
	}
	if timer.PausedAt != nil {
		t.Fatalf("paused_at should be cleared, got %v", timer.PausedAt)
	}
	if timer.TotalPausedSeconds != 5*3600 {
		t.Fatalf("total paused = %d, want %d", timer.TotalPausedSeconds, 5*3600)
	}
}

func TestRepeatedTransitionDoesNotDoubleCount(t *testing.T) {
	repo := newMemTimerRepo()
	clk := clock.NewFixed(t0.Add(time.Hour))
	c := newTestController(repo, clk)
	ctx := context.Background()

	if _, err := c.OnStatusChanged(ctx, "task-1", domain.StatusTodo, domain.StatusBlocked); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}
	first, _ := repo.Get(ctx, "task-1")

	clk.Advance(30 * time.Minute)
	if _, err := c.OnStatusChanged(ctx, "task-1", domain.StatusTodo, domain.StatusBlocked); err != nil {
		t.Fatalf("replayed transition failed: %v", err)
	}
	second, _ := repo.Get(ctx, "task-1")

	if !first.PausedAt.Equal(*second.PausedAt) {
		t.Fatalf("replay moved paused_at from %v to %v", first.PausedAt, second.PausedAt)
	}
	if second.TotalPausedSeconds != 0 {
		t.Fatalf("replay accumulated %d paused seconds", second.TotalPausedSeconds)
	}

	// Replaying the resume transition must not subtract or re-add time.
	clk.Set(t0.Add(3 * time.Hour))
	if _, err := c.OnStatusChanged(ctx, "task-1", domain.StatusBlocked, domain.StatusInProgress); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	clk.Advance(time.Hour)
	timer, err := c.OnStatusChanged(ctx, "task-1", domain.StatusBlocked, domain.StatusInProgress)
	if err != nil {
		t.Fatalf("replayed resume failed: %v", err)
	}
	if timer.TotalPausedSeconds != 2*3600 {
		t.Fatalf("total paused = %d, want %d", timer.TotalPausedSeconds, 2*3600)
	}
}

func TestManualAndStatusTriggersBooleanOR(t *testing.T) {
	repo := newMemTimerRepo()
	clk := clock.NewFixed(t0)
	c := newTestController(repo, clk)
	ctx := context.Background()

	if _, err := c.OnManualPause(ctx, "task-1"); err != nil {
		t.Fatalf("manual pause failed: %v", err)
	}

	clk.Advance(time.Hour)
	if _, err := c.OnStatusChanged(ctx, "task-1", domain.StatusInProgress, domain.StatusBlocked); err != nil {
		t.Fatalf("status pause failed: %v", err)
	}

	// Releasing only the manual trigger keeps the clock stopped.
	clk.Advance(time.Hour)
	timer, err := c.OnManualResume(ctx, "task-1")
	if err != nil {
		t.Fatalf("manual resume failed: %v", err)
	}
	if !timer.IsPaused() {
		t.Fatalf("timer resumed while status trigger still active")
	}
	if timer.TotalPausedSeconds != 0 {
		t.Fatalf("interval closed early: total paused = %d", timer.TotalPausedSeconds)
	}

	// Releasing the last trigger closes the single open interval.
	clk.Advance(time.Hour)
	timer, err = c.OnStatusChanged(ctx, "task-1", domain.StatusBlocked, domain.StatusInProgress)
	if err != nil {
		t.Fatalf("status resume failed: %v", err)
	}
	if timer.IsPaused() {
		t.Fatalf("timer still paused with no active trigger")
	}
	if timer.TotalPausedSeconds != 3*3600 {
		t.Fatalf("total paused = %d, want %d", timer.TotalPausedSeconds, 3*3600)
	}
}

func TestCompletionSettlesOpenInterval(t *testing.T) {
	repo := newMemTimerRepo()
	clk := clock.NewFixed(t0)
	c := newTestController(repo, clk)
	ctx := context.Background()

	if _, err := c.OnManualPause(ctx, "task-1"); err != nil {
		t.Fatalf("manual pause failed: %v", err)
	}

	clk.Advance(2 * time.Hour)
	timer, err := c.OnStatusChanged(ctx, "task-1", domain.StatusInProgress, domain.StatusDone)
	if err != nil {
		t.Fatalf("completion transition failed: %v", err)
	}
	if timer.IsPaused() {
		t.Fatalf("timer paused after completion")
	}
	if timer.ManualPause || timer.StatusPause {
		t.Fatalf("triggers survived completion: manual=%v status=%v", timer.ManualPause, timer.StatusPause)
	}
	if timer.TotalPausedSeconds != 2*3600 {
		t.Fatalf("total paused = %d, want %d", timer.TotalPausedSeconds, 2*3600)
	}
}

func TestReopenPreservesPauseHistory(t *testing.T) {
	repo := newMemTimerRepo()
	clk := clock.NewFixed(t0)
	c := newTestController(repo, clk)
	ctx := context.Background()

	if _, err := c.OnManualPause(ctx, "task-1"); err != nil {
		t.Fatalf("manual pause failed: %v", err)
	}
	clk.Advance(time.Hour)
	if _, err := c.OnStatusChanged(ctx, "task-1", domain.StatusInProgress, domain.StatusClosed); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	clk.Advance(24 * time.Hour)
	timer, err := c.OnReopen(ctx, "task-1")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if timer.IsPaused() {
		t.Fatalf("timer paused after reopen")
	}
	if timer.TotalPausedSeconds != 3600 {
		t.Fatalf("reopen reset pause history: total = %d, want 3600", timer.TotalPausedSeconds)
	}
}

func TestTotalPausedSecondsNeverDecreases(t *testing.T) {
	repo := newMemTimerRepo()
	clk := clock.NewFixed(t0)
	c := newTestController(repo, clk)
	ctx := context.Background()

	ops := []func() (*domain.SlaTimer, error){
		func() (*domain.SlaTimer, error) { return c.OnManualPause(ctx, "task-1") },
		func() (*domain.SlaTimer, error) { return c.OnManualResume(ctx, "task-1") },
		func() (*domain.SlaTimer, error) {
			return c.OnStatusChanged(ctx, "task-1", domain.StatusTodo, domain.StatusBlocked)
		},
		func() (*domain.SlaTimer, error) { return c.OnManualResume(ctx, "task-1") },
		func() (*domain.SlaTimer, error) {
			return c.OnStatusChanged(ctx, "task-1", domain.StatusBlocked, domain.StatusInReview)
		},
		func() (*domain.SlaTimer, error) { return c.OnManualPause(ctx, "task-1") },
		func() (*domain.SlaTimer, error) {
			return c.OnStatusChanged(ctx, "task-1", domain.StatusInReview, domain.StatusDone)
		},
		func() (*domain.SlaTimer, error) { return c.OnReopen(ctx, "task-1") },
	}

	var prev int64
	for i, op := range ops {
		clk.Advance(13 * time.Minute)
		timer, err := op()
		if err != nil {
			t.Fatalf("op %d failed: %v", i, err)
		}
		if timer.TotalPausedSeconds < prev {
			t.Fatalf("op %d decreased total paused: %d -> %d", i, prev, timer.TotalPausedSeconds)
		}
		prev = timer.TotalPausedSeconds
		if timer.IsPaused() != (timer.ManualPause || timer.StatusPause) {
			t.Fatalf("op %d broke pause invariant: paused_at=%v manual=%v status=%v",
				i, timer.PausedAt, timer.ManualPause, timer.StatusPause)
		}
	}
}

func TestConflictRetriesThenSucceeds(t *testing.T) {
	repo := newMemTimerRepo()
	clk := clock.NewFixed(t0)
	c := newTestController(repo, clk)
	ctx := context.Background()

	if _, err := c.EnsureTimer(ctx, "task-1"); err != nil {
		t.Fatalf("EnsureTimer failed: %v", err)
	}

	repo.failSaves = 2
	if _, err := c.OnManualPause(ctx, "task-1"); err != nil {
		t.Fatalf("expected retries to absorb conflicts, got %v", err)
	}
}

func TestConflictRetriesExhausted(t *testing.T) {
	repo := newMemTimerRepo()
	clk := clock.NewFixed(t0)
	c := newTestController(repo, clk)
	ctx := context.Background()

	if _, err := c.EnsureTimer(ctx, "task-1"); err != nil {
		t.Fatalf("EnsureTimer failed: %v", err)
	}

	repo.failSaves = 10
	_, err := c.OnManualPause(ctx, "task-1")
	if err == nil {
		t.Fatalf("expected conflict error after exhausting retries")
	}
	if !domain.IsDomainError(err, domain.ErrCodeConflict) {
		t.Fatalf("err = %v, want CONFLICT domain error", err)
	}
}

func TestEnsureTimerIsLazyAndStable(t *testing.T) {
	repo := newMemTimerRepo()
	clk := clock.NewFixed(t0)
	c := newTestController(repo, clk)
	ctx := context.Background()

	first, err := c.EnsureTimer(ctx, "task-1")
	if err != nil {
		t.Fatalf("EnsureTimer failed: %v", err)
	}
	if first.IsPaused() || first.TotalPausedSeconds != 0 {
		t.Fatalf("fresh timer not pristine: %+v", first)
	}

	clk.Advance(time.Hour)
	second, err := c.EnsureTimer(ctx, "task-1")
	if err != nil {
		t.Fatalf("second EnsureTimer failed: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("EnsureTimer recreated an existing timer")
	}
}
