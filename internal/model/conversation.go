// Package model defines data structures for the call monitor.
package model

import (
	"fmt"
	"time"
)

// CallerInfo is the caller metadata shown in the panel header.
type CallerInfo struct {
	From        string `json:"from" yaml:"from"`
	PatientID   string `json:"patient_id" yaml:"patient_id"`
	PatientName string `json:"patient_name" yaml:"patient_name"`
}

// CallSession is the state of the simulated call.
type CallSession struct {
	ID             string     `json:"id"`
	Script         string     `json:"script"`
	Active         bool       `json:"active"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	CurrentSpeaker Speaker    `json:"current_speaker,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	Caller         CallerInfo `json:"caller"`
}

// Duration renders the elapsed counter as m:ss.
func (s CallSession) Duration() string {
	return FormatDuration(s.ElapsedSeconds)
}

// FormatDuration renders whole seconds as m:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Snapshot is a point-in-time copy of everything the panel renders.
type Snapshot struct {
	Session      CallSession                   `json:"session"`
	Conversation []LogEntry[ConversationTurn]  `json:"conversation"`
	Reasoning    []LogEntry[ReasoningStep]     `json:"reasoning"`
	Diagnostics  []LogEntry[DiagnosticFinding] `json:"diagnostics"`
	AudioLevel   float64                       `json:"audio_level"`
}

// ScriptSummary describes an available script.
type ScriptSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DurationMs  int64  `json:"duration_ms"`
}
