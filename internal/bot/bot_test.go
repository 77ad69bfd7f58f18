package bot

import (
	"errors"
	"fmt"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"study-planner/internal/config"
	"study-planner/internal/model"
	"study-planner/internal/service"
)

func TestErrorText(t *testing.T) {
	quota := fmt.Errorf("%w: 10 of 10", service.ErrQuotaExceeded)
	remote := &service.RemoteStoreError{Op: "create", Err: errors.New("unavailable")}
	invalid := fmt.Errorf("%w: Title failed \"notblank\"", model.ErrInvalidTask)

	assert.Contains(t, errorText(quota), "premium")
	assert.Contains(t, errorText(remote), "retry")
	assert.Contains(t, errorText(invalid), "&#34;notblank&#34;")
	assert.Equal(t, "Something went wrong. Please try again.", errorText(errors.New("disk")))
}

func TestUIDRoundTrip(t *testing.T) {
	uid := uidOf(&tgbotapi.User{ID: 123456789})
	assert.Equal(t, "123456789", uid)

	chatID, ok := chatIDOf(uid)
	assert.True(t, ok)
	assert.Equal(t, int64(123456789), chatID)

	_, ok = chatIDOf("firebase-uid")
	assert.False(t, ok)
}

func TestParseDueDate(t *testing.T) {
	b := &Bot{config: &config.Config{Location: time.UTC}}

	due, ok := b.parseDueDate("2025-03-05")
	assert.True(t, ok)
	assert.Equal(t, "2025-03-05", due)

	today, ok := b.parseDueDate(btnToday)
	assert.True(t, ok)
	assert.Equal(t, time.Now().UTC().Format(model.DateLayout), today)

	_, ok = b.parseDueDate("next friday")
	assert.False(t, ok)
}

func TestFindTask(t *testing.T) {
	tasks := []model.Task{{ID: "a"}, {ID: "b"}}

	task, ok := findTask(tasks, "b")
	assert.True(t, ok)
	assert.Equal(t, "b", task.ID)

	_, ok = findTask(tasks, "c")
	assert.False(t, ok)
}

func TestSubjectKeyboard(t *testing.T) {
	kb := subjectKeyboard([]string{"Art", "Biology", "Chemistry", "Math"})

	assert.Len(t, kb.Keyboard, 3)
	assert.Len(t, kb.Keyboard[0], 3)
	assert.Len(t, kb.Keyboard[1], 1)
	assert.Equal(t, btnCancelDialog, kb.Keyboard[2][0].Text)
}
