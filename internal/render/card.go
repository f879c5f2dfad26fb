// Package render turns tasks into technology-neutral cards and draws those
// cards for a terminal, an HTML page or a plain-text message.
package render

import (
	"strings"

	"github.com/amirbrooks/taskcards/internal/task"
)

type ActionKind string

const (
	ActionComplete ActionKind = "complete"
	ActionDelete   ActionKind = "delete"
	ActionView     ActionKind = "view"
)

// Callbacks are owned by whoever owns the task collection. Rendering only
// binds them to actions; it never changes a task itself. Nil fields are
// no-ops.
type Callbacks struct {
	OnComplete func(id string)
	OnDelete   func(id string)
	OnNavigate func(route string)
}

// Action is one button on a card's action row.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
	Route string     `json:"route,omitempty"`

	invoke func()
}

// Invoke runs the callback the action was bound to.
func (a Action) Invoke() {
	if a.invoke != nil {
		a.invoke()
	}
}

// Card is the display model for one task.
type Card struct {
	Key           string          `json:"key"`
	Title         string          `json:"title"`
	Struck        bool            `json:"struck"`
	Description   string          `json:"description"`
	Priority      task.StyleToken `json:"priority"`
	PriorityLabel string          `json:"priority_label"`
	Accent        task.StyleToken `json:"accent"`
	Due           string          `json:"due,omitempty"`
	Category      string          `json:"category,omitempty"`
	Tags          []string        `json:"tags"`
	Status        task.StyleToken `json:"status"`
	StatusLabel   string          `json:"status_label"`
	Actions       []Action        `json:"actions"`
}

// Action returns the card's action of the given kind, if offered.
func (c Card) Action(kind ActionKind) (Action, bool) {
	for _, a := range c.Actions {
		if a.Kind == kind {
			return a, true
		}
	}
	return Action{}, false
}

func (c Card) HasAction(kind ActionKind) bool {
	_, ok := c.Action(kind)
	return ok
}

// DetailRoute is where the view action of a task navigates.
func DetailRoute(id string) string {
	return "/tasks/" + id
}

// Options tweak presentation details that have no bearing on the card's
// content rules.
type Options struct {
	DateLayout string
}

// RenderCard builds the card for t. The complete action is left out for
// completed tasks; delete and view are always offered.
func RenderCard(t task.Task, cb Callbacks) Card {
	return RenderCardWith(t, cb, Options{})
}

func RenderCardWith(t task.Task, cb Callbacks, opts Options) Card {
	c := Card{
		Key:           t.ID,
		Title:         t.Title,
		Struck:        t.Completed(),
		Description:   t.DescriptionText(),
		Priority:      task.PriorityCategory(t.Priority),
		PriorityLabel: string(t.Priority),
		Accent:        task.PriorityAccent(t.Priority),
		Category:      strings.TrimSpace(t.Category),
		Tags:          task.NormalizeTags(t.Tags),
		Status:        task.StatusCategory(t.Status),
		StatusLabel:   task.StatusLabel(t.Status),
	}
	if due, ok := t.Due(); ok {
		c.Due = due.Locale(opts.DateLayout)
	}

	id := t.ID
	if !t.Completed() {
		c.Actions = append(c.Actions, Action{
			Kind:  ActionComplete,
			Label: "Complete",
			invoke: func() {
				if cb.OnComplete != nil {
					cb.OnComplete(id)
				}
			},
		})
	}
	c.Actions = append(c.Actions, Action{
		Kind:  ActionDelete,
		Label: "Delete",
		invoke: func() {
			if cb.OnDelete != nil {
				cb.OnDelete(id)
			}
		},
	})
	route := DetailRoute(id)
	c.Actions = append(c.Actions, Action{
		Kind:  ActionView,
		Label: "View",
		Route: route,
		invoke: func() {
			if cb.OnNavigate != nil {
				cb.OnNavigate(route)
			}
		},
	})
	return c
}
