package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-planner/internal/model"
)

func reminderTask(id string, reminder model.Reminder) model.Task {
	return model.Task{ID: id, UserID: "u1", Subject: "Physics", Title: "Lab " + id, DueDate: "2025-03-05", Reminder: reminder}
}

func TestFireTime(t *testing.T) {
	s := NewReminderService(time.UTC)
	custom := "18:30"

	tests := []struct {
		name   string
		task   model.Task
		want   time.Time
		wantOK bool
	}{
		{"none", reminderTask("a", model.ReminderNone), time.Time{}, false},
		{"same day", reminderTask("b", model.ReminderSameDay), time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC), true},
		{"one day before", reminderTask("c", model.ReminderOneDay), time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC), true},
		{"two hours before end of day", reminderTask("d", model.ReminderTwoHours), time.Date(2025, 3, 5, 22, 0, 0, 0, time.UTC), true},
		{"custom", func() model.Task {
			task := reminderTask("e", model.ReminderCustom)
			task.ReminderCustomTime = &custom
			return task
		}(), time.Date(2025, 3, 5, 18, 30, 0, 0, time.UTC), true},
		{"custom without time", reminderTask("f", model.ReminderCustom), time.Time{}, false},
		{"completed", func() model.Task {
			task := reminderTask("g", model.ReminderSameDay)
			task.IsCompleted = true
			return task
		}(), time.Time{}, false},
		{"bad date", func() model.Task {
			task := reminderTask("h", model.ReminderSameDay)
			task.DueDate = "soon"
			return task
		}(), time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.FireTime(tt.task)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDueWindow(t *testing.T) {
	s := NewReminderService(time.UTC)
	tasks := []model.Task{
		reminderTask("late", model.ReminderTwoHours),
		reminderTask("morning", model.ReminderSameDay),
		reminderTask("eve", model.ReminderOneDay),
	}

	from := time.Date(2025, 3, 5, 7, 55, 0, 0, time.UTC)
	to := time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC)
	due := s.Due(tasks, from, to)
	require.Len(t, due, 1)
	assert.Equal(t, "morning", due[0].Task.ID)

	// The window is open at the start: a reminder at exactly `from` already fired.
	assert.Empty(t, s.Due(tasks, to, to.Add(5*time.Minute)))

	all := s.Due(tasks, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC))
	require.Len(t, all, 3)
	assert.Equal(t, []string{"eve", "morning", "late"}, []string{all[0].Task.ID, all[1].Task.ID, all[2].Task.ID})
}

func TestDailySummary(t *testing.T) {
	s := NewReminderService(time.UTC)
	now := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	profile := model.Profile{UID: "u1", XP: 1250, Level: 2, Streak: 4}
	tasks := []model.Task{
		{Title: "Old <essay>", Subject: "History", DueDate: "2025-03-01"},
		{Title: "Lab", Subject: "Physics", DueDate: "2025-03-05", Priority: model.PriorityHigh},
		{Title: "Reading", Subject: "Literature", DueDate: "2025-03-09"},
		{Title: "Done already", Subject: "Math", DueDate: "2025-03-05", IsCompleted: true},
	}

	text := s.DailySummary(profile, tasks, now)

	assert.Contains(t, text, "2025-03-05")
	assert.Contains(t, text, "Level 2 · 1250 XP · 🔥 4-day streak")
	assert.Contains(t, text, "Old &lt;essay&gt;")
	assert.NotContains(t, text, "Done already")

	overdue := strings.Index(text, "Overdue")
	lab := strings.Index(text, "Lab")
	upcoming := strings.Index(text, "Upcoming")
	reading := strings.Index(text, "Reading")
	assert.True(t, overdue < lab && lab < upcoming && upcoming < reading)
}

func TestFormatTask(t *testing.T) {
	line := FormatTask(model.Task{Title: "Lab", Subject: "Physics", DueDate: "2025-03-05", Priority: model.PriorityHigh, Notes: "bring goggles"})

	assert.True(t, strings.HasPrefix(line, "🔴 Lab <i>(Physics)</i> · 2025-03-05"))
	assert.Contains(t, line, "bring goggles")
}
