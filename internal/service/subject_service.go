package service

import (
	"context"
	"sort"
	"strings"
)

// SubjectService lists the subjects a user already files tasks under.
type SubjectService struct {
	tasks *TaskStore
}

func NewSubjectService(tasks *TaskStore) *SubjectService {
	return &SubjectService{tasks: tasks}
}

// List returns distinct subjects of the user's visible tasks, case-insensitively
// deduplicated and sorted by name.
func (s *SubjectService) List(ctx context.Context, userID string, isPremium bool) ([]string, error) {
	tasks, err := s.tasks.List(ctx, userID, isPremium)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var subjects []string
	for _, task := range tasks {
		name := strings.TrimSpace(task.Subject)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		subjects = append(subjects, name)
	}
	sort.Slice(subjects, func(i, j int) bool {
		return strings.ToLower(subjects[i]) < strings.ToLower(subjects[j])
	})
	return subjects, nil
}
