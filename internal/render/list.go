package render

import "github.com/amirbrooks/taskcards/internal/task"

const (
	PlaceholderHeadline = "No tasks found matching your criteria."
	PlaceholderHint     = "Try adjusting filters or create a new task."
)

type Placeholder struct {
	Headline string `json:"headline"`
	Hint     string `json:"hint"`
}

// List is the rendered task list: either a placeholder or one card per
// task, never both.
type List struct {
	Placeholder *Placeholder `json:"placeholder,omitempty"`
	Cards       []Card       `json:"cards"`
}

func (l List) Empty() bool {
	return l.Placeholder != nil
}

// RenderList renders tasks in input order without filtering or sorting.
func RenderList(tasks []task.Task, cb Callbacks) List {
	return RenderListWith(tasks, cb, Options{})
}

func RenderListWith(tasks []task.Task, cb Callbacks, opts Options) List {
	if len(tasks) == 0 {
		return List{
			Placeholder: &Placeholder{Headline: PlaceholderHeadline, Hint: PlaceholderHint},
			Cards:       []Card{},
		}
	}
	cards := make([]Card, 0, len(tasks))
	for _, t := range tasks {
		cards = append(cards, RenderCardWith(t, cb, opts))
	}
	return List{Cards: cards}
}
