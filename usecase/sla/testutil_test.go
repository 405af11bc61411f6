package sla

import (
	"context"
	"sync"

	"github.com/workreport/backend/domain"
)

// memTimerRepo is an in-memory TimerRepository with the same optimistic
// locking behavior as the Postgres implementation. failSaves makes the next
// n writes lose the version race.
type memTimerRepo struct {
	mu        sync.Mutex
	timers    map[string]domain.SlaTimer
	failSaves int
	saves     int
}

func newMemTimerRepo() *memTimerRepo {
	return &memTimerRepo{timers: make(map[string]domain.SlaTimer)}
}

func (r *memTimerRepo) Get(_ context.Context, taskID string) (*domain.SlaTimer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timer, ok := r.timers[taskID]
	if !ok {
		return nil, domain.ErrTimerNotFound
	}
	copied := timer
	return &copied, nil
}

func (r *memTimerRepo) GetMany(_ context.Context, taskIDs []string) (map[string]*domain.SlaTimer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*domain.SlaTimer, len(taskIDs))
	for _, id := range taskIDs {
		if timer, ok := r.timers[id]; ok {
			copied := timer
			out[id] = &copied
		}
	}
	return out, nil
}

func (r *memTimerRepo) Create(_ context.Context, timer *domain.SlaTimer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.timers[timer.TaskID]; ok {
		return domain.ErrTimerConflict
	}
	timer.Version = 1
	r.timers[timer.TaskID] = *timer
	return nil
}

func (r *memTimerRepo) Save(_ context.Context, timer *domain.SlaTimer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.failSaves > 0 {
		r.failSaves--
		return domain.ErrTimerConflict
	}
	stored, ok := r.timers[timer.TaskID]
	if !ok {
		return domain.ErrTimerNotFound
	}
	if stored.Version != timer.Version {
		return domain.ErrTimerConflict
	}
	timer.Version++
	r.timers[timer.TaskID] = *timer
	return nil
}

func (r *memTimerRepo) Delete(_ context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.timers, taskID)
	return nil
}

type memProjectRepo struct {
	projects map[string]domain.Project
	err      error
}

func (r *memProjectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	if r.err != nil {
		return nil, r.err
	}
	project, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	copied := project
	return &copied, nil
}

func (r *memProjectRepo) List(context.Context, int, int) ([]domain.Project, error) {
	return nil, nil
}

func (r *memProjectRepo) Upsert(_ context.Context, project *domain.Project) error {
	if r.projects == nil {
		r.projects = make(map[string]domain.Project)
	}
	r.projects[project.ID] = *project
	return nil
}

type memSettingsRepo struct {
	values map[string]string
	err    error
}

func (r *memSettingsRepo) Get(_ context.Context, key string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.values[key], nil
}

func (r *memSettingsRepo) Set(_ context.Context, key, value string) error {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	r.values[key] = value
	return nil
}
