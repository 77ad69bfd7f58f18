package service

import (
	"context"
	"fmt"

	"study-planner/internal/model"
)

// TaskRepository is a backend holding task records.
type TaskRepository interface {
	Insert(ctx context.Context, task model.Task) error
	ListByOwner(ctx context.Context, userID string) ([]model.Task, error)
	Update(ctx context.Context, taskID string, patch model.TaskPatch) error
	Delete(ctx context.Context, taskID string) error
	DeleteByOwner(ctx context.Context, userID string) error
}

// ProfileRepository is a backend holding user profiles.
type ProfileRepository interface {
	Get(ctx context.Context, uid string) (model.Profile, bool, error)
	Put(ctx context.Context, profile model.Profile) error
	Delete(ctx context.Context, uid string) error
	List(ctx context.Context) ([]model.Profile, error)
	Top(ctx context.Context, n int) ([]model.Profile, error)
}

// StorageConfig is resolved once at startup and shared by the task store and the ledger.
// Remote backends may be nil when RemoteAvailable is false.
type StorageConfig struct {
	Remote          TaskRepository
	Local           TaskRepository
	RemoteProfiles  ProfileRepository
	LocalProfiles   ProfileRepository
	RemoteAvailable bool
}

// taskBackend is the repository chosen for one call.
type taskBackend struct {
	repo   TaskRepository
	remote bool
}

// tasks selects the remote repository only for premium users with a reachable backend.
func (c StorageConfig) tasks(isPremium bool) taskBackend {
	if isPremium && c.RemoteAvailable && c.Remote != nil {
		return taskBackend{repo: c.Remote, remote: true}
	}
	return taskBackend{repo: c.Local}
}

// profiles selects the remote profile repository whenever the backend is reachable.
func (c StorageConfig) profiles() (ProfileRepository, bool) {
	if c.RemoteAvailable && c.RemoteProfiles != nil {
		return c.RemoteProfiles, true
	}
	return c.LocalProfiles, false
}

// wrap tags remote failures; local failures get plain context.
func wrap(op string, remote bool, err error) error {
	if err == nil {
		return nil
	}
	if remote {
		return &RemoteStoreError{Op: op, Err: err}
	}
	return fmt.Errorf("local store: %s: %w", op, err)
}
