package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"study-planner/internal/model"
)

const (
	reminderMorningHour = 8
	// "2h" reminders fire two hours before the due day ends.
	twoHoursBeforeEndHour = 22
)

// DueReminder is a reminder whose fire time has been reached.
type DueReminder struct {
	Task   model.Task
	FireAt time.Time
}

// ReminderService computes reminder fire times and renders daily summaries.
type ReminderService struct {
	loc *time.Location
}

func NewReminderService(loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{loc: loc}
}

// FireTime returns when the task's reminder goes off. Tasks without a reminder,
// completed tasks and malformed dates report false.
func (s *ReminderService) FireTime(task model.Task) (time.Time, bool) {
	if task.IsCompleted || task.Reminder == model.ReminderNone {
		return time.Time{}, false
	}
	due, err := task.Due(s.loc)
	if err != nil {
		return time.Time{}, false
	}

	switch task.Reminder {
	case model.ReminderSameDay:
		return s.at(due, reminderMorningHour, 0), true
	case model.ReminderOneDay:
		return s.at(due.AddDate(0, 0, -1), reminderMorningHour, 0), true
	case model.ReminderTwoHours:
		return s.at(due, twoHoursBeforeEndHour, 0), true
	case model.ReminderCustom:
		if task.ReminderCustomTime == nil {
			return time.Time{}, false
		}
		clock, err := time.Parse("15:04", *task.ReminderCustomTime)
		if err != nil {
			return time.Time{}, false
		}
		return s.at(due, clock.Hour(), clock.Minute()), true
	default:
		return time.Time{}, false
	}
}

func (s *ReminderService) at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, s.loc)
}

// Due returns reminders firing in (from, to], earliest first.
func (s *ReminderService) Due(tasks []model.Task, from, to time.Time) []DueReminder {
	var due []DueReminder
	for _, task := range tasks {
		at, ok := s.FireTime(task)
		if !ok || !at.After(from) || at.After(to) {
			continue
		}
		due = append(due, DueReminder{Task: task, FireAt: at})
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].FireAt.Before(due[j].FireAt)
	})
	return due
}

// FormatReminder renders a reminder notification.
func (s *ReminderService) FormatReminder(r DueReminder) string {
	return fmt.Sprintf("⏰ <b>%s</b> · %s\n   due %s",
		html.EscapeString(r.Task.Title),
		html.EscapeString(r.Task.Subject),
		r.Task.DueDate,
	)
}

// DailySummary renders overdue, today's and upcoming active tasks plus progression.
func (s *ReminderService) DailySummary(profile model.Profile, tasks []model.Task, now time.Time) string {
	today := now.In(s.loc).Format(model.DateLayout)

	var overdue, dueToday, upcoming []model.Task
	for _, task := range tasks {
		if task.IsCompleted {
			continue
		}
		switch {
		case task.DueDate < today:
			overdue = append(overdue, task)
		case task.DueDate == today:
			dueToday = append(dueToday, task)
		default:
			upcoming = append(upcoming, task)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily summary</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", today))
	builder.WriteString(fmt.Sprintf("⭐ Level %d · %d XP · 🔥 %d-day streak\n", profile.Level, profile.XP, profile.Streak))

	writeSection(&builder, "⚠️ <b>Overdue</b>", overdue)
	writeSection(&builder, "📌 <b>Due today</b>", dueToday)
	writeSection(&builder, "📅 <b>Upcoming</b>", upcoming)

	return strings.TrimSpace(builder.String())
}

func writeSection(b *strings.Builder, title string, tasks []model.Task) {
	b.WriteString("\n" + title + "\n")
	if len(tasks) == 0 {
		b.WriteString("— nothing here\n")
		return
	}
	for _, task := range tasks {
		b.WriteString(FormatTask(task))
	}
}

// FormatTask renders one task line for chat messages.
func FormatTask(task model.Task) string {
	icon := "🟢"
	switch task.Priority {
	case model.PriorityHigh:
		icon = "🔴"
	case model.PriorityMedium:
		icon = "🟡"
	}
	if task.IsCompleted {
		icon = "✅"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s <i>(%s)</i> · %s", icon,
		html.EscapeString(task.Title), html.EscapeString(task.Subject), task.DueDate))
	if notes := strings.TrimSpace(task.Notes); notes != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(notes)))
	}
	sb.WriteByte('\n')
	return sb.String()
}
