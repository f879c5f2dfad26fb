// Package tui is an interactive board over a task feed. The board owns the
// task collection: completing or deleting a card changes its in-memory copy
// and re-renders. Nothing is written back to the feed.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amirbrooks/taskcards/internal/gateway"
	"github.com/amirbrooks/taskcards/internal/logger"
	"github.com/amirbrooks/taskcards/internal/render"
	"github.com/amirbrooks/taskcards/internal/task"
)

const chatHistory = 6

// Chatter is the part of gateway.Client the board needs.
type Chatter interface {
	SendChatMessage(ctx context.Context, message string) (gateway.Payload, error)
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Complete key.Binding
	Delete   key.Binding
	View     key.Binding
	Back     key.Binding
	Chat     key.Binding
	Send     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k", "left", "h"), key.WithHelp("↑/k", "prev")),
	Down:     key.NewBinding(key.WithKeys("down", "j", "right", "l"), key.WithHelp("↓/j", "next")),
	Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	View:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "view")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Chat:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "chat")),
	Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type chatReplyMsg struct {
	message string
	reply   string
}

type chatErrMsg struct {
	message string
	err     error
}

type exchange struct {
	message string
	reply   string
	failed  bool
}

// Board is the bubbletea model.
type Board struct {
	ctx   context.Context
	tasks []task.Task
	list  render.List

	cursor int
	route  string

	input    textinput.Model
	chatting bool
	pending  int
	chat     []exchange

	client Chatter
	term   *render.Terminal
	opts   render.Options
	log    logger.Logger

	width  int
	height int
	err    error
}

type Options struct {
	Client     Chatter
	Terminal   *render.Terminal
	DateLayout string
	Logger     logger.Logger
}

func NewBoard(ctx context.Context, tasks []task.Task, opts Options) *Board {
	in := textinput.New()
	in.Placeholder = "Ask the assistant, e.g. add a task to buy milk"
	in.Prompt = "› "
	in.CharLimit = 500

	term := opts.Terminal
	if term == nil {
		term = render.NewTerminal(nil, render.DefaultWidth)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	b := &Board{
		ctx:    ctx,
		tasks:  append([]task.Task(nil), tasks...),
		input:  in,
		client: opts.Client,
		term:   term,
		opts:   render.Options{DateLayout: opts.DateLayout},
		log:    log,
	}
	b.refresh()
	return b
}

func (b *Board) callbacks() render.Callbacks {
	return render.Callbacks{
		OnComplete: b.completeTask,
		OnDelete:   b.deleteTask,
		OnNavigate: b.navigate,
	}
}

func (b *Board) refresh() {
	b.list = render.RenderListWith(b.tasks, b.callbacks(), b.opts)
	if b.cursor >= len(b.list.Cards) {
		b.cursor = len(b.list.Cards) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
}

func (b *Board) completeTask(id string) {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks[i].Status = task.StatusCompleted
			b.log.Debug("task completed", "id", id)
			break
		}
	}
	b.refresh()
}

func (b *Board) deleteTask(id string) {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks = append(b.tasks[:i:i], b.tasks[i+1:]...)
			b.log.Debug("task deleted", "id", id)
			break
		}
	}
	if b.route == render.DetailRoute(id) {
		b.route = ""
	}
	b.refresh()
}

func (b *Board) navigate(route string) {
	b.route = route
}

// Tasks is the board's current copy of the collection.
func (b *Board) Tasks() []task.Task {
	return append([]task.Task(nil), b.tasks...)
}

// Route is the detail view being shown, or "" on the board itself.
func (b *Board) Route() string { return b.route }

func (b *Board) Init() tea.Cmd {
	return nil
}

func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.term.Width = msg.Width
		b.input.Width = msg.Width - 4
		return b, nil
	case chatReplyMsg:
		b.pending--
		b.pushChat(exchange{message: msg.message, reply: msg.reply})
		return b, nil
	case chatErrMsg:
		b.pending--
		b.err = msg.err
		b.pushChat(exchange{message: msg.message, reply: msg.err.Error(), failed: true})
		return b, nil
	case tea.KeyMsg:
		if b.chatting {
			return b.updateChat(msg)
		}
		return b.handleKey(msg)
	}
	return b, nil
}

func (b *Board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return b, tea.Quit
	case key.Matches(msg, keys.Back):
		b.route = ""
		b.err = nil
	case key.Matches(msg, keys.Chat):
		b.chatting = true
		return b, b.input.Focus()
	case key.Matches(msg, keys.Up):
		if b.cursor > 0 {
			b.cursor--
		}
	case key.Matches(msg, keys.Down):
		if b.cursor < len(b.list.Cards)-1 {
			b.cursor++
		}
	case key.Matches(msg, keys.Complete):
		b.invoke(render.ActionComplete)
	case key.Matches(msg, keys.Delete):
		b.invoke(render.ActionDelete)
	case key.Matches(msg, keys.View):
		b.invoke(render.ActionView)
	}
	return b, nil
}

func (b *Board) invoke(kind render.ActionKind) {
	c, ok := b.selected()
	if !ok {
		return
	}
	if a, ok := c.Action(kind); ok {
		a.Invoke()
	}
}

func (b *Board) selected() (render.Card, bool) {
	if b.list.Empty() || b.cursor < 0 || b.cursor >= len(b.list.Cards) {
		return render.Card{}, false
	}
	return b.list.Cards[b.cursor], true
}

func (b *Board) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return b, tea.Quit
	case key.Matches(msg, keys.Back):
		b.chatting = false
		b.input.Blur()
		return b, nil
	case key.Matches(msg, keys.Send):
		text := strings.TrimSpace(b.input.Value())
		b.input.Reset()
		if text == "" {
			return b, nil
		}
		return b, b.sendChat(text)
	}
	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	return b, cmd
}

// sendChat runs the request off the update loop; the reply comes back as a
// message.
func (b *Board) sendChat(text string) tea.Cmd {
	if b.client == nil {
		b.pushChat(exchange{message: text, reply: "chat is not configured", failed: true})
		return nil
	}
	b.pending++
	client := b.client
	ctx := b.ctx
	log := b.log
	return func() tea.Msg {
		payload, err := client.SendChatMessage(ctx, text)
		if err != nil {
			log.Error("chat request failed", "err", err)
			return chatErrMsg{message: text, err: err}
		}
		return chatReplyMsg{message: text, reply: payload.Reply()}
	}
}

func (b *Board) pushChat(e exchange) {
	b.chat = append(b.chat, e)
	if len(b.chat) > chatHistory {
		b.chat = b.chat[len(b.chat)-chatHistory:]
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	helpStyle   = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	youStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563eb")).Bold(true)
)

func (b *Board) View() string {
	var sections []string
	open := 0
	for _, t := range b.tasks {
		if !t.Completed() {
			open++
		}
	}
	sections = append(sections, headerStyle.Render(fmt.Sprintf("Tasks: %d open, %d total", open, len(b.tasks))))

	if id, ok := strings.CutPrefix(b.route, "/tasks/"); ok && b.route != "" {
		sections = append(sections, b.viewDetail(id))
	} else {
		sections = append(sections, b.term.RenderFocused(b.list, b.cursor))
	}

	if len(b.chat) > 0 || b.pending > 0 {
		sections = append(sections, b.viewChat())
	}
	if b.chatting {
		sections = append(sections, b.input.View())
	}
	if b.err != nil {
		sections = append(sections, errStyle.Render("error: "+b.err.Error()))
	}
	sections = append(sections, helpStyle.Render(b.helpLine()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (b *Board) viewDetail(id string) string {
	for _, t := range b.tasks {
		if t.ID != id {
			continue
		}
		c := render.RenderCardWith(t, render.Callbacks{}, b.opts)
		var lines []string
		lines = append(lines, headerStyle.Render(c.Title), "")
		lines = append(lines, "Status:   "+c.StatusLabel)
		if c.PriorityLabel != "" {
			lines = append(lines, "Priority: "+c.PriorityLabel)
		}
		if c.Due != "" {
			lines = append(lines, "Due:      "+c.Due)
		}
		if c.Category != "" {
			lines = append(lines, "Category: "+c.Category)
		}
		if len(c.Tags) > 0 {
			lines = append(lines, "Tags:     #"+strings.Join(c.Tags, " #"))
		}
		lines = append(lines, "", c.Description, "", helpStyle.Render(b.route))
		return strings.Join(lines, "\n")
	}
	return errStyle.Render("task not found: " + id)
}

func (b *Board) viewChat() string {
	var lines []string
	for _, e := range b.chat {
		lines = append(lines, youStyle.Render("you: ")+e.message)
		if e.failed {
			lines = append(lines, errStyle.Render("  ! "+e.reply))
		} else {
			lines = append(lines, "  "+e.reply)
		}
	}
	if b.pending > 0 {
		lines = append(lines, helpStyle.Render("  waiting for reply…"))
	}
	return strings.Join(lines, "\n")
}

func (b *Board) helpLine() string {
	if b.chatting {
		return "enter send • esc close chat"
	}
	if b.route != "" {
		return "esc back • d delete • c complete • q quit"
	}
	bindings := []key.Binding{keys.Up, keys.Down, keys.Complete, keys.Delete, keys.View, keys.Chat, keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Run starts the board full screen and blocks until the user quits.
func Run(ctx context.Context, tasks []task.Task, opts Options) error {
	p := tea.NewProgram(NewBoard(ctx, tasks, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
