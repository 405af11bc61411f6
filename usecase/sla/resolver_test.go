package sla

import (
	"context"
	"errors"
	"testing"

	"github.com/workreport/backend/domain"
)

func TestResolveProjectOverrideWins(t *testing.T) {
	projects := &memProjectRepo{projects: map[string]domain.Project{
		"proj-1": {ID: "proj-1", SlaHours: 72},
	}}
	settings := &memSettingsRepo{values: map[string]string{"sla_hours": "36"}}
	r := NewResolver(projects, settings, nil, domain.DefaultPolicy(), nil)

	policy := r.Resolve(context.Background(), "proj-1")
	if policy.DeadlineHours != 72 {
		t.Fatalf("deadline hours = %d, want project override 72", policy.DeadlineHours)
	}
}

func TestResolveFallsBackToSettings(t *testing.T) {
	projects := &memProjectRepo{}
	settings := &memSettingsRepo{values: map[string]string{"sla_hours": "36"}}
	r := NewResolver(projects, settings, nil, domain.DefaultPolicy(), nil)

	policy := r.Resolve(context.Background(), "unknown-project")
	if policy.DeadlineHours != 36 {
		t.Fatalf("deadline hours = %d, want settings value 36", policy.DeadlineHours)
	}
}

func TestResolveDefaultsWhenUnconfigured(t *testing.T) {
	r := NewResolver(&memProjectRepo{}, &memSettingsRepo{}, nil, domain.DefaultPolicy(), nil)

	policy := r.Resolve(context.Background(), "")
	if policy.DeadlineHours != domain.DefaultDeadlineHours {
		t.Fatalf("deadline hours = %d, want default %d", policy.DeadlineHours, domain.DefaultDeadlineHours)
	}
	if policy.AmberHours != domain.DefaultAmberHours || policy.RedHours != domain.DefaultRedHours {
		t.Fatalf("thresholds = %d/%d, want defaults %d/%d",
			policy.AmberHours, policy.RedHours, domain.DefaultAmberHours, domain.DefaultRedHours)
	}
}

func TestResolveMalformedHoursFailClosed(t *testing.T) {
	settings := &memSettingsRepo{values: map[string]string{"sla_hours": "soon"}}
	r := NewResolver(&memProjectRepo{}, settings, nil, domain.DefaultPolicy(), nil)

	policy := r.Resolve(context.Background(), "")
	if policy.DeadlineHours != domain.DefaultDeadlineHours {
		t.Fatalf("deadline hours = %d, want default on malformed setting", policy.DeadlineHours)
	}
}

func TestResolveThresholdsFromSettings(t *testing.T) {
	settings := &memSettingsRepo{values: map[string]string{
		"sla_thresholds": `{"amber": 8, "red": 3}`,
	}}
	r := NewResolver(&memProjectRepo{}, settings, nil, domain.DefaultPolicy(), nil)

	policy := r.Resolve(context.Background(), "")
	if policy.AmberHours != 8 || policy.RedHours != 3 {
		t.Fatalf("thresholds = %d/%d, want 8/3", policy.AmberHours, policy.RedHours)
	}
}

func TestResolveRedAboveAmberFailsClosed(t *testing.T) {
	settings := &memSettingsRepo{values: map[string]string{
		"sla_thresholds": `{"amber": 5, "red": 10}`,
	}}
	r := NewResolver(&memProjectRepo{}, settings, nil, domain.DefaultPolicy(), nil)

	policy := r.Resolve(context.Background(), "")
	if policy.AmberHours != domain.DefaultAmberHours || policy.RedHours != domain.DefaultRedHours {
		t.Fatalf("thresholds = %d/%d, want defaults (red inside amber)", policy.AmberHours, policy.RedHours)
	}
}

func TestResolveSettingsErrorFailsClosed(t *testing.T) {
	settings := &memSettingsRepo{err: errors.New("store down")}
	projects := &memProjectRepo{err: errors.New("store down")}
	r := NewResolver(projects, settings, nil, domain.DefaultPolicy(), nil)

	policy := r.Resolve(context.Background(), "proj-1")
	if policy != domain.DefaultPolicy() {
		t.Fatalf("policy = %+v, want defaults when every source fails", policy)
	}
}

type stubCache struct {
	stored map[string]domain.Policy
	sets   int
}

func (c *stubCache) Get(_ context.Context, projectID string) (domain.Policy, bool) {
	policy, ok := c.stored[projectID]
	return policy, ok
}

func (c *stubCache) Set(_ context.Context, projectID string, policy domain.Policy) {
	if c.stored == nil {
		c.stored = make(map[string]domain.Policy)
	}
	c.stored[projectID] = policy
	c.sets++
}

func TestResolveServesCachedPolicy(t *testing.T) {
	cache := &stubCache{stored: map[string]domain.Policy{
		"proj-1": {DeadlineHours: 99, AmberHours: 9, RedHours: 1},
	}}
	// Backing stores disagree with the cache; the stale value must win
	// until it expires.
	settings := &memSettingsRepo{values: map[string]string{"sla_hours": "36"}}
	r := NewResolver(&memProjectRepo{}, settings, cache, domain.DefaultPolicy(), nil)

	policy := r.Resolve(context.Background(), "proj-1")
	if policy.DeadlineHours != 99 {
		t.Fatalf("deadline hours = %d, want cached 99", policy.DeadlineHours)
	}
}

func TestResolvePopulatesCacheOnMiss(t *testing.T) {
	cache := &stubCache{}
	settings := &memSettingsRepo{values: map[string]string{"sla_hours": "36"}}
	r := NewResolver(&memProjectRepo{}, settings, cache, domain.DefaultPolicy(), nil)

	r.Resolve(context.Background(), "proj-1")
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}
	if cache.stored["proj-1"].DeadlineHours != 36 {
		t.Fatalf("cached deadline hours = %d, want 36", cache.stored["proj-1"].DeadlineHours)
	}
}
