package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"study-planner/internal/model"
)

// FirestoreTaskRepository stores tasks as documents of the "tasks" collection keyed by task id.
type FirestoreTaskRepository struct {
	client *firestore.Client
}

func NewFirestoreTaskRepository(client *firestore.Client) *FirestoreTaskRepository {
	return &FirestoreTaskRepository{client: client}
}

func (r *FirestoreTaskRepository) Insert(ctx context.Context, task model.Task) error {
	if _, err := r.client.Collection(tasksCollection).Doc(task.ID).Create(ctx, task); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *FirestoreTaskRepository) ListByOwner(ctx context.Context, userID string) ([]model.Task, error) {
	docs, err := r.client.Collection(tasksCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]model.Task, 0, len(docs))
	for _, doc := range docs {
		var task model.Task
		if err := doc.DataTo(&task); err != nil {
			return nil, fmt.Errorf("decode task %s: %w", doc.Ref.ID, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Update merges patch into the document; a missing document is ignored.
func (r *FirestoreTaskRepository) Update(ctx context.Context, taskID string, patch model.TaskPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	_, err := r.client.Collection(tasksCollection).Doc(taskID).Update(ctx, updates)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (r *FirestoreTaskRepository) Delete(ctx context.Context, taskID string) error {
	if _, err := r.client.Collection(tasksCollection).Doc(taskID).Delete(ctx); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// DeleteByOwner removes every task of the user with a bulk writer.
func (r *FirestoreTaskRepository) DeleteByOwner(ctx context.Context, userID string) error {
	refs, err := r.client.Collection(tasksCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("delete user tasks: %w", err)
	}
	if len(refs) == 0 {
		return nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, doc := range refs {
		job, err := bw.Delete(doc.Ref)
		if err != nil {
			bw.End()
			return fmt.Errorf("delete user tasks: %w", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete user tasks: %w", err)
		}
	}
	return nil
}
