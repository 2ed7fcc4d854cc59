package model

import (
	"time"
)

// UpdateType represents the type of observable state change.
type UpdateType string

const (
	UpdateSession UpdateType = "session"
	UpdateEntry   UpdateType = "entry"
	UpdateReset   UpdateType = "reset"
	UpdateScroll  UpdateType = "scroll"
	UpdateLevel   UpdateType = "level"
)

// AudioLevel is the normalized level and speaker published each frame.
type AudioLevel struct {
	Level   float64 `json:"level"`
	Speaker Speaker `json:"speaker,omitempty"`
}

// Update is a change notification delivered to subscribers.
type Update struct {
	Type      UpdateType   `json:"type"`
	SessionID string       `json:"session_id"`
	Log       LogKind      `json:"log,omitempty"`
	Entry     any          `json:"entry,omitempty"`
	EntryID   string       `json:"entry_id,omitempty"`
	Session   *CallSession `json:"session,omitempty"`
	Level     *AudioLevel  `json:"level,omitempty"`
	At        time.Time    `json:"at"`
}
