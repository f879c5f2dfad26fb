package render

import (
	"fmt"
	"strings"

	"github.com/amirbrooks/taskcards/internal/task"
)

// MessageMaxChars keeps text output under chat message limits.
const MessageMaxChars = 3800

// Text renders a list as compact lines suitable for a chat message or a
// log. It carries the same content as a card minus the action row.
type Text struct {
	ASCII    bool
	MaxChars int
}

func priorityMarker(t task.StyleToken, ascii bool) string {
	if ascii {
		switch t {
		case task.TokenRed:
			return "!!"
		case task.TokenOrange:
			return "!"
		default:
			return ""
		}
	}
	switch t {
	case task.TokenRed:
		return "🔴"
	case task.TokenOrange:
		return "🟠"
	case task.TokenBlue:
		return "🔵"
	case task.TokenGreen:
		return "🟢"
	default:
		return ""
	}
}

func (x Text) bullet() string {
	if x.ASCII {
		return "-"
	}
	return "•"
}

func (x Text) Render(l List) string {
	var b strings.Builder
	if l.Empty() {
		b.WriteString(l.Placeholder.Headline)
		b.WriteString("\n")
		b.WriteString(l.Placeholder.Hint)
		b.WriteString("\n")
		return x.trim(b.String())
	}
	if x.ASCII {
		fmt.Fprintf(&b, "Tasks (%d)\n\n", len(l.Cards))
	} else {
		fmt.Fprintf(&b, "📋 Tasks (%d)\n\n", len(l.Cards))
	}
	for _, c := range l.Cards {
		b.WriteString(x.Line(c))
	}
	return x.trim(b.String())
}

// Line renders a single card as one line.
func (x Text) Line(c Card) string {
	var b strings.Builder
	b.WriteString(x.bullet())
	b.WriteString(" ")
	if m := priorityMarker(c.Priority, x.ASCII); m != "" {
		b.WriteString(m)
		b.WriteString(" ")
	}
	title := oneLine(c.Title)
	if title == "" {
		title = "(untitled)"
	}
	if c.Struck {
		title = "~" + title + "~"
	}
	b.WriteString(title)
	if c.Category != "" {
		if x.ASCII {
			b.WriteString(" - ")
		} else {
			b.WriteString(" — ")
		}
		b.WriteString(c.Category)
	}
	if c.Due != "" {
		b.WriteString(" (due ")
		b.WriteString(c.Due)
		b.WriteString(")")
	}
	b.WriteString(" [")
	b.WriteString(c.StatusLabel)
	b.WriteString("]")
	for _, tag := range c.Tags {
		b.WriteString(" #")
		b.WriteString(tag)
	}
	b.WriteString("\n")
	return b.String()
}

func (x Text) trim(s string) string {
	max := x.MaxChars
	if max <= 0 {
		max = MessageMaxChars
	}
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	suffix := "\n… (truncated)"
	if x.ASCII {
		suffix = "\n... (truncated)"
	}
	limit := max - len([]rune(suffix))
	if limit < 1 {
		return string(runes[:max])
	}
	return string(runes[:limit]) + suffix
}
