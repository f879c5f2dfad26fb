package task

import "strings"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusPaused     Status = "paused"
)

// UnknownStatusLabel is the label for empty or unrecognized statuses.
const UnknownStatusLabel = "unknown"

// StyleToken names a visual treatment (a color family) independent of how a
// renderer draws it.
type StyleToken string

const (
	TokenGreen  StyleToken = "green"
	TokenBlue   StyleToken = "blue"
	TokenOrange StyleToken = "orange"
	TokenRed    StyleToken = "red"
	TokenYellow StyleToken = "yellow"
	TokenPurple StyleToken = "purple"
	TokenGray   StyleToken = "gray"

	TokenNeutral = TokenGray
)

var (
	priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	statuses   = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusPaused}
)

func Priorities() []Priority { return append([]Priority(nil), priorities...) }

func Statuses() []Status { return append([]Status(nil), statuses...) }

// ParsePriority matches exactly; "High" is not a priority.
func ParsePriority(s string) (Priority, bool) {
	for _, p := range priorities {
		if string(p) == s {
			return p, true
		}
	}
	return Priority(s), false
}

func ParseStatus(s string) (Status, bool) {
	for _, st := range statuses {
		if string(st) == s {
			return st, true
		}
	}
	return Status(s), false
}

func (p Priority) Known() bool {
	_, ok := ParsePriority(string(p))
	return ok
}

func (s Status) Known() bool {
	_, ok := ParseStatus(string(s))
	return ok
}

// PriorityCategory picks the badge color for a priority. Anything outside the
// four known priorities, including "", is neutral.
func PriorityCategory(p Priority) StyleToken {
	switch p {
	case PriorityLow:
		return TokenGreen
	case PriorityMedium:
		return TokenBlue
	case PriorityHigh:
		return TokenOrange
	case PriorityUrgent:
		return TokenRed
	default:
		return TokenNeutral
	}
}

// PriorityAccent is the color of the strip across the top of a card. Unlike
// the badge it has no neutral arm: unknown priorities draw as low.
func PriorityAccent(p Priority) StyleToken {
	switch p {
	case PriorityUrgent:
		return TokenRed
	case PriorityHigh:
		return TokenOrange
	case PriorityMedium:
		return TokenBlue
	default:
		return TokenGreen
	}
}

func StatusCategory(s Status) StyleToken {
	switch s {
	case StatusPending:
		return TokenGray
	case StatusInProgress:
		return TokenYellow
	case StatusCompleted:
		return TokenGreen
	case StatusCancelled:
		return TokenRed
	case StatusPaused:
		return TokenPurple
	default:
		return TokenNeutral
	}
}

// StatusLabel is the human-readable status: "in_progress" reads "in progress".
func StatusLabel(s Status) string {
	if !s.Known() {
		return UnknownStatusLabel
	}
	return strings.ReplaceAll(string(s), "_", " ")
}
