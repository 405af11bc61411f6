package sla

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/pkg/clock"
	"github.com/workreport/backend/repository"
)

// Service is the read-side glue: it loads timers, resolves policies and runs
// the calculator for list views, dashboards and the reminder sweep. Reads
// never create timers and tolerate a missing one.
type Service struct {
	timers   repository.TimerRepository
	policies PolicyProvider
	clock    clock.Clock
	logger   *zap.Logger
}

func NewService(timers repository.TimerRepository, policies PolicyProvider, clk clock.Clock, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		timers:   timers,
		policies: policies,
		clock:    clk,
		logger:   logger,
	}
}

// Health evaluates one task. A missing timer degrades to "never paused"
// rather than failing the read.
func (s *Service) Health(ctx context.Context, task *domain.Task) (domain.HealthResult, error) {
	if task == nil {
		return domain.HealthResult{}, domain.ErrInvalidSnapshot
	}
	timer, err := s.timers.Get(ctx, task.ID)
	if err != nil && !errors.Is(err, domain.ErrTimerNotFound) {
		return domain.HealthResult{}, err
	}
	policy := s.policies.Resolve(ctx, task.ProjectID)
	return Evaluate(task, timer, policy, s.clock.Now())
}

// HealthAll evaluates a batch of tasks with one timer fetch and per-project
// policy memoization. Per-task failures stay on their item.
func (s *Service) HealthAll(ctx context.Context, tasks []domain.Task) ([]BatchItem, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(tasks))
	for i := range tasks {
		ids = append(ids, tasks[i].ID)
	}
	timers, err := s.timers.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]domain.Policy)
	policyFor := func(projectID string) domain.Policy {
		if policy, ok := resolved[projectID]; ok {
			return policy
		}
		policy := s.policies.Resolve(ctx, projectID)
		resolved[projectID] = policy
		return policy
	}

	return EvaluateAll(tasks, timers, policyFor, s.clock.Now()), nil
}

// Urgent returns the evaluated active tasks at amber or worse, most urgent
// first. Evaluation failures are logged and skipped so one bad snapshot
// cannot hide the rest of the list.
func (s *Service) Urgent(ctx context.Context, tasks []domain.Task) ([]BatchItem, error) {
	items, err := s.HealthAll(ctx, tasks)
	if err != nil {
		return nil, err
	}
	urgent := items[:0]
	for _, item := range items {
		if item.Err != nil {
			s.logger.Warn("skipping unevaluable task", zap.String("task_id", item.Task.ID), zap.Error(item.Err))
			continue
		}
		if item.Result.Urgent() {
			urgent = append(urgent, item)
		}
	}
	sort.SliceStable(urgent, func(i, j int) bool {
		return urgent[i].Result.SortValue < urgent[j].Result.SortValue
	})
	return urgent, nil
}

// LevelCounts aggregates evaluated tasks per health level for dashboards.
func LevelCounts(items []BatchItem) map[domain.Level]int {
	counts := make(map[domain.Level]int)
	for _, item := range items {
		if item.Err != nil {
			continue
		}
		counts[item.Result.Level]++
	}
	return counts
}

// OnTimeRate returns the percentage of terminal tasks whose frozen
// classification was not overdue, or 0 when no terminal tasks exist.
func OnTimeRate(items []BatchItem) float64 {
	var terminal, onTime int
	for _, item := range items {
		if item.Err != nil || !item.Result.Terminal {
			continue
		}
		terminal++
		if item.Result.Level != domain.LevelOverdue {
			onTime++
		}
	}
	if terminal == 0 {
		return 0
	}
	return float64(onTime) / float64(terminal) * 100
}
