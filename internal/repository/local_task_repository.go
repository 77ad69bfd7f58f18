package repository

import (
	"context"
	"fmt"

	"study-planner/internal/model"
)

const tasksKey = "tasks"

// LocalTaskRepository keeps every task in a single "tasks" blob.
type LocalTaskRepository struct {
	store *BlobStore
}

func NewLocalTaskRepository(store *BlobStore) *LocalTaskRepository {
	return &LocalTaskRepository{store: store}
}

func (r *LocalTaskRepository) Insert(ctx context.Context, task model.Task) error {
	var tasks []model.Task
	err := r.store.Update(ctx, tasksKey, &tasks, func(bool) error {
		tasks = append(tasks, task)
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// ListByOwner returns the user's tasks in storage order.
func (r *LocalTaskRepository) ListByOwner(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if _, err := r.store.Load(ctx, tasksKey, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	owned := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.UserID == userID {
			owned = append(owned, task)
		}
	}
	return owned, nil
}

// Update merges patch into the task; unknown ids are ignored.
func (r *LocalTaskRepository) Update(ctx context.Context, taskID string, patch model.TaskPatch) error {
	var tasks []model.Task
	err := r.store.Update(ctx, tasksKey, &tasks, func(bool) error {
		for i := range tasks {
			if tasks[i].ID == taskID {
				patch.Apply(&tasks[i])
				return nil
			}
		}
		return errSkipWrite
	})
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (r *LocalTaskRepository) Delete(ctx context.Context, taskID string) error {
	return r.remove(ctx, "delete task", func(task model.Task) bool { return task.ID == taskID })
}

func (r *LocalTaskRepository) DeleteByOwner(ctx context.Context, userID string) error {
	return r.remove(ctx, "delete user tasks", func(task model.Task) bool { return task.UserID == userID })
}

func (r *LocalTaskRepository) remove(ctx context.Context, op string, match func(model.Task) bool) error {
	var tasks []model.Task
	err := r.store.Update(ctx, tasksKey, &tasks, func(bool) error {
		kept := tasks[:0]
		for _, task := range tasks {
			if !match(task) {
				kept = append(kept, task)
			}
		}
		if len(kept) == len(tasks) {
			return errSkipWrite
		}
		tasks = kept
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
