package store

import (
	"strings"

	"github.com/amirbrooks/taskcards/internal/task"
)

// Filter narrows a feed before it reaches the renderer. Zero fields match
// everything; matching is exact except for Tag and Search.
type Filter struct {
	Status   string
	Priority string
	Category string
	Tag      string
	Search   string
}

func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Apply returns the matching tasks in their original order.
func (f Filter) Apply(tasks []task.Task) []task.Task {
	if f.IsZero() {
		return tasks
	}
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	return out
}

func (f Filter) matches(t task.Task) bool {
	if f.Status != "" && string(t.Status) != f.Status {
		return false
	}
	if f.Priority != "" && string(t.Priority) != f.Priority {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Tag != "" && !containsString(task.NormalizeTags(t.Tags), f.Tag) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

func containsString(list []string, v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	for _, s := range list {
		if strings.ToLower(s) == v {
			return true
		}
	}
	return false
}
