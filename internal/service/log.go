package service

import (
	"slices"

	"github.com/capitalize-ai/call-monitor/internal/model"
)

// Log is an append-only sequence of fired entries.
type Log[T any] struct {
	entries []model.LogEntry[T]
}

// Append adds e at the end.
func (l *Log[T]) Append(e model.LogEntry[T]) {
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the log.
func (l *Log[T]) Entries() []model.LogEntry[T] {
	if len(l.entries) == 0 {
		return []model.LogEntry[T]{}
	}
	return slices.Clone(l.entries)
}

// Len returns the number of entries.
func (l *Log[T]) Len() int {
	return len(l.entries)
}

// Clear empties the log. Copies handed out earlier are unaffected.
func (l *Log[T]) Clear() {
	l.entries = nil
}
