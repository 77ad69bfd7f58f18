package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-planner/internal/model"
)

// newEmulatorClient connects to the Firestore emulator; tests are skipped without one.
func newEmulatorClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "study-planner-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFirestoreTaskRepository(t *testing.T) {
	repo := NewFirestoreTaskRepository(newEmulatorClient(t))
	ctx := context.Background()
	owner := uuid.NewString()
	created := time.Now().UTC().Truncate(time.Millisecond)

	task := model.Task{ID: uuid.NewString(), UserID: owner, Subject: "Chemistry", Title: "titration", DueDate: "2025-03-05", Priority: model.PriorityLow, CreatedAt: created}
	require.NoError(t, repo.Insert(ctx, task))

	tasks, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "titration", tasks[0].Title)
	assert.True(t, created.Equal(tasks[0].CreatedAt))

	require.NoError(t, repo.Update(ctx, task.ID, model.Completed(true)))
	require.NoError(t, repo.Update(ctx, uuid.NewString(), model.Completed(true)))
	tasks, err = repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.True(t, tasks[0].IsCompleted)

	require.NoError(t, repo.DeleteByOwner(ctx, owner))
	tasks, err = repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestFirestoreProfileRepository(t *testing.T) {
	repo := NewFirestoreProfileRepository(newEmulatorClient(t))
	ctx := context.Background()
	uid := uuid.NewString()

	_, ok, err := repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Put(ctx, model.Profile{UID: uid, Plan: model.PlanPremium, XP: 4200, Level: 5}))
	got, ok, err := repo.Get(ctx, uid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.PlanPremium, got.Plan)

	top, err := repo.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.GreaterOrEqual(t, top[0].XP, 4200)

	require.NoError(t, repo.Delete(ctx, uid))
	_, ok, err = repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.False(t, ok)
}
