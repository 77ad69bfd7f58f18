package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"study-planner/internal/model"
)

const (
	// FreeActiveTaskLimit caps the active tasks of a free user.
	FreeActiveTaskLimit = 10
	// LocalRetention is how long completed tasks stay visible in the local store.
	LocalRetention = 30 * 24 * time.Hour
)

// TaskStore persists tasks and enforces plan limits. It keeps no cache.
type TaskStore struct {
	storage StorageConfig
	now     func() time.Time
	newID   func() string
}

func NewTaskStore(storage StorageConfig) *TaskStore {
	return &TaskStore{
		storage: storage,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock replaces the time source.
func (s *TaskStore) WithClock(now func() time.Time) *TaskStore {
	s.now = now
	return s
}

// Create validates input and stores a new active task, returning its id.
// Free users at FreeActiveTaskLimit active tasks get ErrQuotaExceeded.
func (s *TaskStore) Create(ctx context.Context, userID string, input model.TaskInput, isPremium bool) (string, error) {
	if err := input.Validate(); err != nil {
		return "", err
	}

	if !isPremium {
		active, err := s.Count(ctx, userID, isPremium)
		if err != nil {
			return "", err
		}
		if active >= FreeActiveTaskLimit {
			return "", fmt.Errorf("%w: %d of %d", ErrQuotaExceeded, active, FreeActiveTaskLimit)
		}
		input.Color = nil
	}

	task := input.Task(s.newID(), userID, s.now().UTC())
	backend := s.storage.tasks(isPremium)
	if err := backend.repo.Insert(ctx, task); err != nil {
		return "", wrap("create", backend.remote, err)
	}
	return task.ID, nil
}

// List returns the user's tasks sorted by due date. Outside the remote store,
// completed tasks older than LocalRetention are hidden.
func (s *TaskStore) List(ctx context.Context, userID string, isPremium bool) ([]model.Task, error) {
	backend := s.storage.tasks(isPremium)
	tasks, err := backend.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, wrap("list", backend.remote, err)
	}

	visible := make([]model.Task, 0, len(tasks))
	cutoff := s.now().Add(-LocalRetention)
	for _, task := range tasks {
		if task.UserID != userID {
			continue
		}
		if !backend.remote && task.IsCompleted && task.CreatedAt.Before(cutoff) {
			continue
		}
		visible = append(visible, task)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].DueDate < visible[j].DueDate
	})
	return visible, nil
}

// Update merges patch into the task held by the selected store.
// A missing task is a no-op. Colors are dropped for free users.
func (s *TaskStore) Update(ctx context.Context, taskID string, patch model.TaskPatch, isPremium bool) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if !isPremium {
		patch.Color = nil
	}
	if patch.Empty() {
		return nil
	}
	backend := s.storage.tasks(isPremium)
	return wrap("update", backend.remote, backend.repo.Update(ctx, taskID, patch))
}

func (s *TaskStore) Delete(ctx context.Context, taskID string, isPremium bool) error {
	backend := s.storage.tasks(isPremium)
	return wrap("delete", backend.remote, backend.repo.Delete(ctx, taskID))
}

// Count returns the number of active tasks visible to List.
func (s *TaskStore) Count(ctx context.Context, userID string, isPremium bool) (int, error) {
	tasks, err := s.List(ctx, userID, isPremium)
	if err != nil {
		return 0, err
	}
	active := 0
	for _, task := range tasks {
		if !task.IsCompleted {
			active++
		}
	}
	return active, nil
}
