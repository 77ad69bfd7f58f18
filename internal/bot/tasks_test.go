package bot

import (
	"context"
	"strconv"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-planner/internal/model"
	"study-planner/internal/repository"
	"study-planner/internal/service"
)

var (
	alice = &tgbotapi.User{ID: 1}
	bob   = &tgbotapi.User{ID: 2}
)

func newLocalBot(t *testing.T) *Bot {
	t.Helper()
	db, err := repository.NewDB(":memory:")
	require.NoError(t, err)
	store := repository.NewBlobStore(db)
	storage := service.StorageConfig{
		Local:         repository.NewLocalTaskRepository(store),
		LocalProfiles: repository.NewLocalProfileRepository(store),
	}
	return &Bot{
		tasks:  service.NewTaskStore(storage),
		ledger: service.NewLedger(storage, time.UTC),
	}
}

func addTask(t *testing.T, b *Bot, owner *tgbotapi.User, priority model.Priority) string {
	t.Helper()
	id, err := b.tasks.Create(context.Background(), uidOf(owner), model.TaskInput{
		Subject:  "Math",
		Title:    "Exercises 1-10",
		DueDate:  time.Now().AddDate(0, 0, 2).Format(model.DateLayout),
		Priority: priority,
	}, false)
	require.NoError(t, err)
	return id
}

func TestRemoveTaskChecksOwner(t *testing.T) {
	b := newLocalBot(t)
	ctx := context.Background()
	id := addTask(t, b, alice, model.PriorityMedium)

	assert.ErrorIs(t, b.removeTask(ctx, bob, id), errTaskNotFound)
	tasks, err := b.tasks.List(ctx, uidOf(alice), false)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	require.NoError(t, b.removeTask(ctx, alice, id))
	tasks, err = b.tasks.List(ctx, uidOf(alice), false)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestFinishTaskAwardsXP(t *testing.T) {
	b := newLocalBot(t)
	ctx := context.Background()
	id := addTask(t, b, alice, model.PriorityHigh)

	_, _, err := b.finishTask(ctx, bob, id)
	assert.ErrorIs(t, err, errTaskNotFound)

	task, award, err := b.finishTask(ctx, alice, id)
	require.NoError(t, err)
	assert.True(t, task.IsCompleted)
	assert.Equal(t, 100, award.XP)
	assert.Equal(t, 1, award.NewStreak)
	assert.True(t, award.StreakExtended)

	tasks, err := b.tasks.List(ctx, uidOf(alice), false)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].IsCompleted)

	profile, err := b.ledger.GetProfile(ctx, uidOf(alice))
	require.NoError(t, err)
	assert.Equal(t, 100, profile.XP)

	_, _, err = b.finishTask(ctx, alice, id)
	assert.ErrorIs(t, err, errTaskDone)
	profile, err = b.ledger.GetProfile(ctx, uidOf(alice))
	require.NoError(t, err)
	assert.Equal(t, 100, profile.XP)
}

func TestCompletionText(t *testing.T) {
	task := model.Task{Title: "Essay <draft>"}
	tests := []struct {
		name        string
		award       service.Award
		levelUp     bool
		streakShown bool
	}{
		{"neither", service.Award{NewLevel: 1, NewStreak: 3}, false, false},
		{"level up only", service.Award{DidLevelUp: true, NewLevel: 2, NewStreak: 3}, true, false},
		{"streak only", service.Award{NewLevel: 1, StreakExtended: true, NewStreak: 4}, false, true},
		{"both", service.Award{DidLevelUp: true, NewLevel: 3, StreakExtended: true, NewStreak: 5}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := completionText(task, 50, tt.award)
			assert.Contains(t, text, "«Essay &lt;draft&gt;» done! +50 XP")
			if tt.levelUp {
				assert.Contains(t, text, "You are now level "+strconv.Itoa(tt.award.NewLevel))
			} else {
				assert.NotContains(t, text, "Level up")
			}
			if tt.streakShown {
				assert.Contains(t, text, "Streak: "+strconv.Itoa(tt.award.NewStreak)+" days")
			} else {
				assert.NotContains(t, text, "Streak")
			}
		})
	}
}

func TestErrorTextTaskLookups(t *testing.T) {
	assert.Equal(t, "Task not found. Refresh with /tasks.", errorText(errTaskNotFound))
	assert.Equal(t, "That task is already done.", errorText(errTaskDone))
}
