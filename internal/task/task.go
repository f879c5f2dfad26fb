// Package task holds the display-side task model: the record shape received
// from a feed, the tag union and its normalizer, and the priority/status
// classifier.
package task

import (
	"encoding/json"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DescriptionPlaceholder is shown when a task has no description.
const DescriptionPlaceholder = "No description provided."

// DefaultDateLayout matches an en-US locale date (1/5/2024).
const DefaultDateLayout = "1/2/2006"

// Task is an externally supplied record. Renderers never mutate it.
type Task struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
	Status      Status   `json:"status,omitempty" yaml:"status,omitempty"`
	DueDate     *DueDate `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	Tags        Tags     `json:"tags" yaml:"tags"`
}

// Due reports the due date when one is present and parseable.
func (t Task) Due() (DueDate, bool) {
	if t.DueDate == nil || t.DueDate.IsZero() {
		return DueDate{}, false
	}
	return *t.DueDate, true
}

func (t Task) DescriptionText() string {
	if strings.TrimSpace(t.Description) == "" {
		return DescriptionPlaceholder
	}
	return t.Description
}

func (t Task) Completed() bool {
	return t.Status == StatusCompleted
}

var dueLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DueDate is a calendar date or timestamp as sent by the backend. Text that
// does not parse decodes to the zero value, which Task.Due treats as absent.
type DueDate struct {
	time.Time
}

func ParseDueDate(s string) (DueDate, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DueDate{}, false
	}
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DueDate{Time: t}, true
		}
	}
	return DueDate{}, false
}

// Locale formats the date part only. An empty layout uses DefaultDateLayout.
func (d DueDate) Locale(layout string) string {
	if d.IsZero() {
		return ""
	}
	if layout == "" {
		layout = DefaultDateLayout
	}
	return d.Time.Format(layout)
}

func (d *DueDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// numbers, objects and friends are not dates
		d.Time = time.Time{}
		return nil
	}
	parsed, _ := ParseDueDate(s)
	*d = parsed
	return nil
}

func (d DueDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.wire())
}

func (d *DueDate) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		d.Time = time.Time{}
		return nil
	}
	parsed, _ := ParseDueDate(value.Value)
	*d = parsed
	return nil
}

func (d DueDate) MarshalYAML() (any, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.wire(), nil
}

func (d DueDate) wire() string {
	h, m, s := d.Clock()
	if h == 0 && m == 0 && s == 0 && d.Nanosecond() == 0 {
		return d.Time.Format("2006-01-02")
	}
	return d.Time.Format(time.RFC3339)
}
