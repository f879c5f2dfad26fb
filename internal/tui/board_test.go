package tui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirbrooks/taskcards/internal/gateway"
	"github.com/amirbrooks/taskcards/internal/logger"
	"github.com/amirbrooks/taskcards/internal/render"
	"github.com/amirbrooks/taskcards/internal/task"
)

type fakeChatter struct {
	got   []string
	reply string
	err   error
}

func (f *fakeChatter) SendChatMessage(_ context.Context, message string) (gateway.Payload, error) {
	f.got = append(f.got, message)
	if f.err != nil {
		return gateway.Payload{}, f.err
	}
	raw, _ := json.Marshal(map[string]string{"response": f.reply})
	return gateway.Payload{Raw: raw, Value: map[string]any{"response": f.reply}}, nil
}

func sampleTasks() []task.Task {
	return []task.Task{
		{ID: "a", Title: "Buy milk", Status: task.StatusPending, Priority: task.PriorityLow},
		{ID: "b", Title: "File taxes", Status: task.StatusInProgress, Priority: task.PriorityUrgent},
		{ID: "c", Title: "Done already", Status: task.StatusCompleted},
	}
}

func newTestBoard(t *testing.T, tasks []task.Task, c Chatter) *Board {
	t.Helper()
	term := render.NewTerminal(nil, 80)
	term.ASCII = true
	return NewBoard(context.Background(), tasks, Options{Client: c, Terminal: term, Logger: logger.Discard()})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(b *Board, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, m := range msgs {
		_, cmd = b.Update(m)
	}
	return cmd
}

func TestBoardCompleteSelected(t *testing.T) {
	b := newTestBoard(t, sampleTasks(), nil)
	press(b, runes("j"), runes("c"))

	got := b.Tasks()
	assert.Equal(t, task.StatusCompleted, got[1].Status)
	assert.Equal(t, task.StatusPending, got[0].Status)

	_, ok := b.list.Cards[1].Action(render.ActionComplete)
	assert.False(t, ok)
}

func TestBoardCompleteIgnoredOnCompletedCard(t *testing.T) {
	b := newTestBoard(t, sampleTasks(), nil)
	press(b, runes("j"), runes("j"), runes("c"))
	assert.Equal(t, task.StatusCompleted, b.Tasks()[2].Status)
	assert.Len(t, b.Tasks(), 3)
}

func TestBoardDeleteSelected(t *testing.T) {
	b := newTestBoard(t, sampleTasks(), nil)
	press(b, runes("j"), runes("j"), runes("d"))

	got := b.Tasks()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, 1, b.cursor)

	press(b, runes("d"), runes("d"))
	assert.Empty(t, b.Tasks())
	assert.True(t, b.list.Empty())
	assert.Contains(t, b.View(), render.PlaceholderHeadline)

	press(b, runes("d"), runes("c"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, b.Tasks())
}

func TestBoardNavigateAndBack(t *testing.T) {
	b := newTestBoard(t, sampleTasks(), nil)
	press(b, runes("j"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "/tasks/b", b.Route())
	assert.Contains(t, b.View(), "File taxes")
	assert.Contains(t, b.View(), "in progress")

	press(b, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "", b.Route())
}

func TestBoardDeleteFromDetailClosesIt(t *testing.T) {
	b := newTestBoard(t, sampleTasks(), nil)
	press(b, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "/tasks/a", b.Route())
	press(b, runes("d"))
	assert.Equal(t, "", b.Route())
	assert.Len(t, b.Tasks(), 2)
}

func TestBoardCursorStaysInRange(t *testing.T) {
	b := newTestBoard(t, sampleTasks(), nil)
	press(b, runes("k"), runes("k"))
	assert.Equal(t, 0, b.cursor)
	press(b, runes("j"), runes("j"), runes("j"), runes("j"))
	assert.Equal(t, 2, b.cursor)
}

func TestBoardChatReply(t *testing.T) {
	chat := &fakeChatter{reply: "Added it."}
	b := newTestBoard(t, sampleTasks(), chat)

	press(b, runes("/"))
	require.True(t, b.chatting)
	press(b, runes("add bread"))
	cmd := press(b, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, b.pending)
	assert.Equal(t, "", b.input.Value())

	msg := cmd()
	press(b, msg)
	assert.Equal(t, []string{"add bread"}, chat.got)
	assert.Equal(t, 0, b.pending)
	view := b.View()
	assert.Contains(t, view, "add bread")
	assert.Contains(t, view, "Added it.")

	// Board keys are text while chatting.
	press(b, runes("d"))
	assert.Len(t, b.Tasks(), 3)
}

func TestBoardChatError(t *testing.T) {
	chat := &fakeChatter{err: errors.New("gateway returned 500")}
	b := newTestBoard(t, sampleTasks(), chat)

	press(b, runes("/"), runes("hi"))
	cmd := press(b, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	press(b, cmd())

	require.Error(t, b.err)
	assert.Contains(t, b.View(), "gateway returned 500")
	assert.Len(t, b.Tasks(), 3)
}

func TestBoardChatBlankAndUnconfigured(t *testing.T) {
	chat := &fakeChatter{}
	b := newTestBoard(t, sampleTasks(), chat)
	press(b, runes("/"), runes("   "))
	cmd := press(b, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, chat.got)

	b = newTestBoard(t, sampleTasks(), nil)
	press(b, runes("/"), runes("hello"))
	cmd = press(b, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, b.View(), "chat is not configured")
}

func TestBoardQuit(t *testing.T) {
	b := newTestBoard(t, sampleTasks(), nil)
	cmd := press(b, runes("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)

	press(b, runes("/"))
	cmd = press(b, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok = cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestBoardViewShowsCounts(t *testing.T) {
	b := newTestBoard(t, sampleTasks(), nil)
	view := b.View()
	assert.True(t, strings.Contains(view, "2 open, 3 total"))
	assert.Contains(t, view, "Buy milk")
}
