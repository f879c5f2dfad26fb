package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/amirbrooks/taskcards/internal/task"
)

const (
	DefaultWidth     = 100
	DefaultCardWidth = 32
	minCardWidth     = 16
	descriptionLines = 3
)

var tokenColors = map[task.StyleToken]lipgloss.Color{
	task.TokenGreen:  lipgloss.Color("#16a34a"),
	task.TokenBlue:   lipgloss.Color("#2563eb"),
	task.TokenOrange: lipgloss.Color("#ea580c"),
	task.TokenRed:    lipgloss.Color("#dc2626"),
	task.TokenYellow: lipgloss.Color("#ca8a04"),
	task.TokenPurple: lipgloss.Color("#9333ea"),
	task.TokenGray:   lipgloss.Color("#6b7280"),
}

var asciiBorder = lipgloss.Border{
	Top:         "-",
	Bottom:      "-",
	Left:        "|",
	Right:       "|",
	TopLeft:     "+",
	TopRight:    "+",
	BottomLeft:  "+",
	BottomRight: "+",
}

func tokenColor(t task.StyleToken) lipgloss.Color {
	if c, ok := tokenColors[t]; ok {
		return c
	}
	return tokenColors[task.TokenNeutral]
}

// Terminal draws cards as bordered boxes laid out in a grid.
type Terminal struct {
	Width     int
	CardWidth int
	ASCII     bool

	lr *lipgloss.Renderer
}

func NewTerminal(w io.Writer, width int) *Terminal {
	if width <= 0 {
		width = DefaultWidth
	}
	var lr *lipgloss.Renderer
	if w != nil {
		lr = lipgloss.NewRenderer(w)
	} else {
		lr = lipgloss.DefaultRenderer()
	}
	return &Terminal{Width: width, CardWidth: DefaultCardWidth, lr: lr}
}

func (r *Terminal) renderer() *lipgloss.Renderer {
	if r.lr == nil {
		r.lr = lipgloss.DefaultRenderer()
	}
	return r.lr
}

func (r *Terminal) cardWidth() int {
	cw := r.CardWidth
	if cw <= 0 {
		cw = DefaultCardWidth
	}
	if r.Width > 0 && cw > r.Width {
		cw = r.Width
	}
	if cw < minCardWidth {
		cw = minCardWidth
	}
	return cw
}

func (r *Terminal) border() lipgloss.Border {
	if r.ASCII {
		return asciiBorder
	}
	return lipgloss.RoundedBorder()
}

// Render draws the whole list. Cards flow left to right, wrapping to as many
// columns as fit in Width.
func (r *Terminal) Render(l List) string {
	return r.RenderFocused(l, -1)
}

// RenderFocused is Render with the card at index focus highlighted.
func (r *Terminal) RenderFocused(l List, focus int) string {
	if l.Empty() {
		return r.RenderPlaceholder(*l.Placeholder)
	}
	cw := r.cardWidth()
	cols := 1
	if r.Width > cw {
		cols = (r.Width + 1) / (cw + 1)
	}
	var rows []string
	for i := 0; i < len(l.Cards); i += cols {
		end := i + cols
		if end > len(l.Cards) {
			end = len(l.Cards)
		}
		blocks := make([]string, 0, 2*(end-i))
		for j, c := range l.Cards[i:end] {
			if j > 0 {
				blocks = append(blocks, " ")
			}
			blocks = append(blocks, r.RenderCard(c, i+j == focus))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, blocks...))
	}
	return strings.Join(rows, "\n")
}

func (r *Terminal) RenderPlaceholder(p Placeholder) string {
	lr := r.renderer()
	width := r.Width
	if width <= 0 {
		width = DefaultWidth
	}
	headline := lr.NewStyle().Foreground(tokenColor(task.TokenGray)).Render(p.Headline)
	hint := lr.NewStyle().Faint(true).Render(p.Hint)
	box := lr.NewStyle().
		Border(r.border()).
		BorderForeground(tokenColor(task.TokenGray)).
		Width(width-2).
		Padding(1, 2).
		Align(lipgloss.Center)
	return box.Render(lipgloss.JoinVertical(lipgloss.Center, headline, hint))
}

// RenderCard draws one card. A focused card gets a highlighted border.
func (r *Terminal) RenderCard(c Card, focused bool) string {
	lr := r.renderer()
	cw := r.cardWidth()
	inner := cw - 4

	accentChar := "▀"
	if r.ASCII {
		accentChar = "="
	}
	accent := lr.NewStyle().Foreground(tokenColor(c.Accent)).Render(strings.Repeat(accentChar, inner))

	var header string
	if c.PriorityLabel != "" {
		header = lr.NewStyle().Bold(true).Foreground(tokenColor(c.Priority)).
			Render(strings.ToUpper(runewidth.Truncate(c.PriorityLabel, inner/2, "…")))
	}
	if c.Due != "" {
		due := lr.NewStyle().Faint(true).Render("Due " + c.Due)
		gap := inner - lipgloss.Width(header) - lipgloss.Width(due)
		if gap < 1 {
			gap = 1
		}
		header += strings.Repeat(" ", gap) + due
	}

	titleStyle := lr.NewStyle().Bold(true)
	if c.Struck {
		titleStyle = titleStyle.Strikethrough(true).Faint(true)
	}
	title := titleStyle.Render(runewidth.Truncate(oneLine(c.Title), inner, "…"))

	desc := clampLines(lr.NewStyle().Width(inner).Render(c.Description), descriptionLines)

	chips := r.chips(c, inner)

	status := lr.NewStyle().Bold(true).Foreground(tokenColor(c.Status)).Render(strings.ToUpper(c.StatusLabel))
	actions := r.actionRow(c)
	gap := inner - lipgloss.Width(status) - lipgloss.Width(actions)
	if gap < 1 {
		gap = 1
	}
	footer := status + strings.Repeat(" ", gap) + actions

	parts := []string{accent}
	if header != "" {
		parts = append(parts, header)
	}
	parts = append(parts, title, desc)
	if chips != "" {
		parts = append(parts, chips)
	}
	parts = append(parts, footer)

	borderColor := tokenColor(task.TokenGray)
	if focused {
		borderColor = tokenColor(task.TokenBlue)
	}
	box := lr.NewStyle().
		Border(r.border()).
		BorderForeground(borderColor).
		Width(cw-2).
		Padding(0, 1)
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (r *Terminal) chips(c Card, width int) string {
	lr := r.renderer()
	var items []string
	if c.Category != "" {
		items = append(items, lr.NewStyle().Foreground(lipgloss.Color("#4338ca")).Render("["+c.Category+"]"))
	}
	for _, tag := range c.Tags {
		items = append(items, lr.NewStyle().Foreground(tokenColor(task.TokenGray)).Render("#"+tag))
	}
	if len(items) == 0 {
		return ""
	}
	return lr.NewStyle().Width(width).Render(strings.Join(items, " "))
}

func (r *Terminal) actionRow(c Card) string {
	lr := r.renderer()
	var out []string
	for _, a := range c.Actions {
		switch a.Kind {
		case ActionComplete:
			out = append(out, lr.NewStyle().Foreground(tokenColor(task.TokenGreen)).Render(r.glyph("✓", "ok")))
		case ActionDelete:
			out = append(out, lr.NewStyle().Foreground(tokenColor(task.TokenRed)).Render(r.glyph("✗", "del")))
		case ActionView:
			out = append(out, lr.NewStyle().Foreground(tokenColor(task.TokenBlue)).Render(r.glyph("→", "view")))
		}
	}
	return strings.Join(out, " ")
}

func (r *Terminal) glyph(unicode, ascii string) string {
	if r.ASCII {
		return ascii
	}
	return unicode
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func clampLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
