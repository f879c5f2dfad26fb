package render

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirbrooks/taskcards/internal/task"
)

func TestRenderListEmpty(t *testing.T) {
	for name, tasks := range map[string][]task.Task{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			l := RenderList(tasks, Callbacks{})
			require.NotNil(t, l.Placeholder)
			assert.True(t, l.Empty())
			assert.Equal(t, PlaceholderHeadline, l.Placeholder.Headline)
			assert.Equal(t, PlaceholderHint, l.Placeholder.Hint)
			assert.Len(t, l.Cards, 0)
		})
	}
}

func TestRenderListPreservesOrder(t *testing.T) {
	for _, n := range []int{1, 5, 100} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			tasks := make([]task.Task, n)
			for i := range tasks {
				// ids deliberately not in sorted order
				tasks[i] = task.Task{ID: fmt.Sprintf("id-%d", n-i), Title: fmt.Sprintf("task %d", i)}
			}
			l := RenderList(tasks, Callbacks{})
			assert.Nil(t, l.Placeholder)
			require.Len(t, l.Cards, n)
			for i, c := range l.Cards {
				assert.Equal(t, tasks[i].ID, c.Key)
				assert.Equal(t, tasks[i].Title, c.Title)
			}
		})
	}
}

func TestRenderListKeepsCompletedAndDuplicates(t *testing.T) {
	tasks := []task.Task{
		{ID: "a", Status: task.StatusCompleted},
		{ID: "b", Status: task.StatusCancelled},
		{ID: "a", Status: task.StatusPending},
	}
	l := RenderList(tasks, Callbacks{})
	require.Len(t, l.Cards, 3)
	assert.Equal(t, []string{"a", "b", "a"}, []string{l.Cards[0].Key, l.Cards[1].Key, l.Cards[2].Key})
}

func TestRenderListWiresCallbacksPerTask(t *testing.T) {
	rec := &recorder{}
	l := RenderList([]task.Task{{ID: "one"}, {ID: "two"}}, rec.callbacks())
	for _, c := range l.Cards {
		a, ok := c.Action(ActionDelete)
		require.True(t, ok)
		a.Invoke()
	}
	assert.Equal(t, []string{"one", "two"}, rec.deleted)
}
