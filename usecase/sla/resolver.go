package sla

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/repository"
)

// PolicyProvider resolves the effective SLA policy for a project context.
// An empty project id resolves the global policy.
type PolicyProvider interface {
	Resolve(ctx context.Context, projectID string) domain.Policy
}

// PolicyCache fronts the resolver with a short-lived cache. Implementations
// may serve values stale up to their TTL; the resolver tolerates that and
// treats every cache failure as a miss.
type PolicyCache interface {
	Get(ctx context.Context, projectID string) (domain.Policy, bool)
	Set(ctx context.Context, projectID string, policy domain.Policy)
}

// Resolver derives policies from the per-project override, then the settings
// store, then configured defaults. Resolve never returns an error: malformed
// or missing configuration fails closed to defaults. This is a resolution
// layer, not a validation layer.
type Resolver struct {
	projects repository.ProjectRepository
	settings repository.SettingsRepository
	cache    PolicyCache
	defaults domain.Policy
	logger   *zap.Logger
}

func NewResolver(projects repository.ProjectRepository, settings repository.SettingsRepository, cache PolicyCache, defaults domain.Policy, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		projects: projects,
		settings: settings,
		cache:    cache,
		defaults: defaults.Normalize(),
		logger:   logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, projectID string) domain.Policy {
	if r.cache != nil {
		if policy, ok := r.cache.Get(ctx, projectID); ok {
			return policy.Normalize()
		}
	}

	policy := domain.Policy{
		DeadlineHours: r.deadlineHours(ctx, projectID),
		AmberHours:    r.defaults.AmberHours,
		RedHours:      r.defaults.RedHours,
	}
	r.applyThresholds(ctx, &policy)
	policy = policy.Normalize()

	if r.cache != nil {
		r.cache.Set(ctx, projectID, policy)
	}
	return policy
}

func (r *Resolver) deadlineHours(ctx context.Context, projectID string) int {
	if projectID != "" && r.projects != nil {
		project, err := r.projects.GetByID(ctx, projectID)
		switch {
		case err == nil && project.SlaHours > 0:
			return project.SlaHours
		case err != nil && !errors.Is(err, domain.ErrProjectNotFound):
			r.logger.Warn("project lookup failed, falling back to global sla hours",
				zap.String("project_id", projectID), zap.Error(err))
		}
	}

	if raw := r.setting(ctx, repository.SettingSlaHours); raw != "" {
		if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
			return hours
		}
		r.logger.Warn("ignoring malformed sla_hours setting", zap.String("value", raw))
	}
	return r.defaults.DeadlineHours
}

func (r *Resolver) applyThresholds(ctx context.Context, policy *domain.Policy) {
	raw := r.setting(ctx, repository.SettingSlaThresholds)
	if raw == "" {
		return
	}
	var cfg struct {
		Amber int `json:"amber"`
		Red   int `json:"red"`
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		r.logger.Warn("ignoring malformed sla_thresholds setting", zap.String("value", raw), zap.Error(err))
		return
	}
	policy.AmberHours = cfg.Amber
	policy.RedHours = cfg.Red
}

func (r *Resolver) setting(ctx context.Context, key string) string {
	if r.settings == nil {
		return ""
	}
	value, err := r.settings.Get(ctx, key)
	if err != nil {
		r.logger.Warn("settings lookup failed, using defaults", zap.String("key", key), zap.Error(err))
		return ""
	}
	return value
}

// StaticPolicy is a PolicyProvider pinned to one policy, handy for tests and
// for callers that resolved a policy upfront.
type StaticPolicy struct {
	Policy domain.Policy
}

func (s StaticPolicy) Resolve(context.Context, string) domain.Policy {
	return s.Policy.Normalize()
}
