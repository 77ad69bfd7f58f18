package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout of Task.DueDate.
const DateLayout = "2006-01-02"

// ErrInvalidTask is returned when task fields fail validation.
var ErrInvalidTask = errors.New("invalid task")

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Reminder string

const (
	ReminderNone     Reminder = ""
	ReminderSameDay  Reminder = "sameday"
	ReminderTwoHours Reminder = "2h"
	ReminderOneDay   Reminder = "1d"
	ReminderCustom   Reminder = "custom"
)

// FreeReminder reports whether r is available without a premium plan.
func (r Reminder) FreeReminder() bool {
	return r == ReminderNone || r == ReminderSameDay
}

// Task is a single homework or study item owned by one user.
type Task struct {
	ID                 string    `json:"id" firestore:"id"`
	UserID             string    `json:"userId" firestore:"userId"`
	Subject            string    `json:"subject" firestore:"subject"`
	Title              string    `json:"title" firestore:"title"`
	DueDate            string    `json:"dueDate" firestore:"dueDate"`
	Priority           Priority  `json:"priority" firestore:"priority"`
	Notes              string    `json:"notes,omitempty" firestore:"notes,omitempty"`
	Color              *string   `json:"color" firestore:"color"`
	Reminder           Reminder  `json:"reminder" firestore:"reminder"`
	ReminderCustomTime *string   `json:"reminderCustomTime" firestore:"reminderCustomTime"`
	IsCompleted        bool      `json:"isCompleted" firestore:"isCompleted"`
	CreatedAt          time.Time `json:"createdAt" firestore:"createdAt"`
}

// Due parses DueDate in loc.
func (t Task) Due(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, t.DueDate, loc)
}

// TaskInput holds the caller-supplied fields of a new task.
type TaskInput struct {
	Subject            string   `validate:"notblank"`
	Title              string   `validate:"notblank"`
	DueDate            string   `validate:"required,datetime=2006-01-02"`
	Priority           Priority `validate:"omitempty,oneof=low medium high"`
	Notes              string
	Color              *string  `validate:"omitempty,hexcolor"`
	Reminder           Reminder `validate:"omitempty,oneof=sameday 2h 1d custom"`
	ReminderCustomTime *string
}

// Validate checks required fields and enum values.
func (in TaskInput) Validate() error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.Reminder == ReminderCustom {
		if in.ReminderCustomTime == nil {
			return fmt.Errorf("%w: reminderCustomTime is required for a custom reminder", ErrInvalidTask)
		}
		return validateVar("reminderCustomTime", *in.ReminderCustomTime, "datetime=15:04")
	}
	return nil
}

// Task builds the record for the given owner. Priority defaults to medium.
func (in TaskInput) Task(id, userID string, createdAt time.Time) Task {
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	task := Task{
		ID:          id,
		UserID:      userID,
		Subject:     strings.TrimSpace(in.Subject),
		Title:       strings.TrimSpace(in.Title),
		DueDate:     in.DueDate,
		Priority:    priority,
		Notes:       in.Notes,
		Color:       in.Color,
		Reminder:    in.Reminder,
		IsCompleted: false,
		CreatedAt:   createdAt,
	}
	if in.Reminder == ReminderCustom {
		task.ReminderCustomTime = in.ReminderCustomTime
	}
	return task
}

// TaskPatch is a partial update. Nil fields are left untouched.
// Owner, id and creation time are not patchable.
type TaskPatch struct {
	Subject            *string
	Title              *string
	DueDate            *string
	Priority           *Priority
	Notes              *string
	Color              **string
	Reminder           *Reminder
	ReminderCustomTime **string
	IsCompleted        *bool
}

// Completed is shorthand for a patch that only toggles completion.
func Completed(done bool) TaskPatch {
	return TaskPatch{IsCompleted: &done}
}

// Validate checks the set fields with the same rules as TaskInput.
func (p TaskPatch) Validate() error {
	checks := []struct {
		name  string
		set   bool
		value func() interface{}
		tag   string
	}{
		{"subject", p.Subject != nil, func() interface{} { return *p.Subject }, "notblank"},
		{"title", p.Title != nil, func() interface{} { return *p.Title }, "notblank"},
		{"dueDate", p.DueDate != nil, func() interface{} { return *p.DueDate }, "datetime=2006-01-02"},
		{"priority", p.Priority != nil, func() interface{} { return string(*p.Priority) }, "oneof=low medium high"},
		{"color", p.Color != nil && *p.Color != nil, func() interface{} { return **p.Color }, "hexcolor"},
		{"reminder", p.Reminder != nil && *p.Reminder != ReminderNone, func() interface{} { return string(*p.Reminder) }, "oneof=sameday 2h 1d custom"},
		{"reminderCustomTime", p.ReminderCustomTime != nil && *p.ReminderCustomTime != nil, func() interface{} { return **p.ReminderCustomTime }, "datetime=15:04"},
	}
	for _, c := range checks {
		if !c.set {
			continue
		}
		if err := validateVar(c.name, c.value(), c.tag); err != nil {
			return err
		}
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Apply merges the set fields into task.
func (p TaskPatch) Apply(task *Task) {
	if p.Subject != nil {
		task.Subject = strings.TrimSpace(*p.Subject)
	}
	if p.Title != nil {
		task.Title = strings.TrimSpace(*p.Title)
	}
	if p.DueDate != nil {
		task.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.Notes != nil {
		task.Notes = *p.Notes
	}
	if p.Color != nil {
		task.Color = *p.Color
	}
	if p.Reminder != nil {
		task.Reminder = *p.Reminder
	}
	if p.ReminderCustomTime != nil {
		task.ReminderCustomTime = *p.ReminderCustomTime
	}
	if p.IsCompleted != nil {
		task.IsCompleted = *p.IsCompleted
	}
}

// Fields returns the set fields keyed by their stored names.
func (p TaskPatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Subject != nil {
		fields["subject"] = strings.TrimSpace(*p.Subject)
	}
	if p.Title != nil {
		fields["title"] = strings.TrimSpace(*p.Title)
	}
	if p.DueDate != nil {
		fields["dueDate"] = *p.DueDate
	}
	if p.Priority != nil {
		fields["priority"] = string(*p.Priority)
	}
	if p.Notes != nil {
		fields["notes"] = *p.Notes
	}
	if p.Color != nil {
		fields["color"] = *p.Color
	}
	if p.Reminder != nil {
		fields["reminder"] = string(*p.Reminder)
	}
	if p.ReminderCustomTime != nil {
		fields["reminderCustomTime"] = *p.ReminderCustomTime
	}
	if p.IsCompleted != nil {
		fields["isCompleted"] = *p.IsCompleted
	}
	return fields
}
