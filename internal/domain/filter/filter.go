// Package filter derives task views from a task list. Every function here is
// pure: it never mutates its input and returns the same output for the same
// arguments.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskmaster/todo/internal/domain/entities"
)

// Mode selects which tasks a view shows
type Mode string

const (
	ModeAll        Mode = "all"
	ModeToday      Mode = "today"
	ModeImportant  Mode = "important"
	ModeCompleted  Mode = "completed"
	ModeIncomplete Mode = "incomplete"
)

// Modes lists every supported mode
var Modes = []Mode{ModeAll, ModeToday, ModeImportant, ModeCompleted, ModeIncomplete}

// ParseMode validates a mode name. The empty string means ModeAll.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModeAll, nil
	}
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Apply returns the tasks matching mode, in input order. today is compared
// by calendar date in its own location.
func Apply(tasks []entities.Task, mode Mode, today time.Time) []entities.Task {
	keep := predicate(mode, today)
	out := make([]entities.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(&t) {
			out = append(out, t)
		}
	}
	return out
}

func predicate(mode Mode, today time.Time) func(*entities.Task) bool {
	switch mode {
	case ModeToday:
		day := today.Format(entities.DateLayout)
		return func(t *entities.Task) bool { return t.Date == day }
	case ModeImportant:
		return func(t *entities.Task) bool { return t.Important }
	case ModeCompleted:
		return func(t *entities.Task) bool { return t.Done }
	case ModeIncomplete:
		return func(t *entities.Task) bool { return !t.Done }
	default:
		return func(*entities.Task) bool { return true }
	}
}
