package domain

import (
	"testing"
	"time"
)

func TestReconcileSingleOpenInterval(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	timer := NewSlaTimer("task-1", base)

	timer.StatusPause = true
	timer.Reconcile(base)
	if !timer.IsPaused() {
		t.Fatalf("expected open interval after first trigger")
	}
	opened := *timer.PausedAt

	// A second trigger joins the existing interval instead of opening
	// another one.
	timer.ManualPause = true
	timer.Reconcile(base.Add(time.Hour))
	if !timer.PausedAt.Equal(opened) {
		t.Fatalf("second trigger moved paused_at from %v to %v", opened, timer.PausedAt)
	}

	timer.StatusPause = false
	timer.Reconcile(base.Add(2 * time.Hour))
	if !timer.IsPaused() {
		t.Fatalf("interval closed while manual trigger still active")
	}

	timer.ManualPause = false
	timer.Reconcile(base.Add(3 * time.Hour))
	if timer.IsPaused() {
		t.Fatalf("interval still open with no trigger")
	}
	if timer.TotalPausedSeconds != 3*3600 {
		t.Fatalf("total paused = %d, want %d", timer.TotalPausedSeconds, 3*3600)
	}
}

func TestPausedSecondsAtIncludesOpenInterval(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	timer := NewSlaTimer("task-1", base)
	timer.TotalPausedSeconds = 600
	timer.ManualPause = true
	timer.Reconcile(base)

	if got := timer.PausedSecondsAt(base.Add(30 * time.Second)); got != 630 {
		t.Fatalf("paused seconds = %d, want 630", got)
	}
	// A clock reading before the interval opened must not subtract time.
	if got := timer.PausedSecondsAt(base.Add(-time.Minute)); got != 600 {
		t.Fatalf("paused seconds with skewed clock = %d, want 600", got)
	}
}

func TestPausedSecondsNilTimer(t *testing.T) {
	var timer *SlaTimer
	if got := timer.PausedSecondsAt(time.Now()); got != 0 {
		t.Fatalf("nil timer paused seconds = %d, want 0", got)
	}
	if timer.IsPaused() {
		t.Fatalf("nil timer reported paused")
	}
}

func TestPolicyNormalize(t *testing.T) {
	p := Policy{DeadlineHours: 48, AmberHours: 5, RedHours: 10}.Normalize()
	if p.AmberHours != DefaultAmberHours || p.RedHours != DefaultRedHours {
		t.Fatalf("red>amber not replaced by defaults: %+v", p)
	}
	if p.DeadlineHours != 48 {
		t.Fatalf("deadline hours changed by threshold normalization: %+v", p)
	}

	p = Policy{DeadlineHours: 0, AmberHours: 0, RedHours: 0}.Normalize()
	if p != DefaultPolicy() {
		t.Fatalf("zero policy = %+v, want defaults", p)
	}
}
