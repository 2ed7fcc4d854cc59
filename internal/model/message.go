package model

import (
	"fmt"
	"time"
)

// Speaker identifies who is talking on the call.
type Speaker string

const (
	SpeakerNone      Speaker = ""
	SpeakerAssistant Speaker = "Assistant"
	SpeakerCaller    Speaker = "Caller"
	SpeakerPatient   Speaker = "Patient"
)

// Valid reports whether s is a known speaker.
func (s Speaker) Valid() bool {
	switch s {
	case SpeakerAssistant, SpeakerCaller, SpeakerPatient:
		return true
	}
	return false
}

// Status is the progress state of a reasoning step or diagnostic finding.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusAnalyzing  Status = "analyzing"
	StatusDetected   Status = "detected"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusAnalyzing, StatusDetected, StatusCompleted:
		return true
	}
	return false
}

// Symbol is the glyph the panel shows next to a step.
func (s Status) Symbol() string {
	switch s {
	case StatusCompleted:
		return "✓"
	case StatusProcessing:
		return "⟳"
	default:
		return "○"
	}
}

// Severity grades a diagnostic finding.
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityNormal   Severity = "normal"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Valid reports whether s is a known severity. The empty severity is allowed.
func (s Severity) Valid() bool {
	switch s {
	case SeverityNone, SeverityNormal, SeverityMild, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// ConversationTurn is one scripted utterance.
type ConversationTurn struct {
	Speaker        Speaker `json:"speaker" yaml:"speaker"`
	Text           string  `json:"text" yaml:"text"`
	AudioIntensity float64 `json:"audio_intensity" yaml:"audio_intensity"`
}

// Validate checks speaker and intensity range.
func (t ConversationTurn) Validate() error {
	if !t.Speaker.Valid() {
		return fmt.Errorf("unknown speaker %q", t.Speaker)
	}
	if t.AudioIntensity < 0 || t.AudioIntensity > 1 {
		return fmt.Errorf("audio intensity %v out of range [0,1]", t.AudioIntensity)
	}
	return nil
}

// ReasoningStep is one scripted assistant reasoning step.
type ReasoningStep struct {
	Label      string  `json:"label" yaml:"label"`
	Status     Status  `json:"status" yaml:"status"`
	Detail     string  `json:"detail" yaml:"detail"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Validate checks status and confidence range.
func (r ReasoningStep) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	return validateConfidence(r.Confidence)
}

// DiagnosticFinding is one scripted voice-health finding.
type DiagnosticFinding struct {
	Label      string   `json:"label" yaml:"label"`
	Status     Status   `json:"status" yaml:"status"`
	Detail     string   `json:"detail" yaml:"detail"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Severity   Severity `json:"severity,omitempty" yaml:"severity,omitempty"`
}

// Validate checks status, severity and confidence range.
func (d DiagnosticFinding) Validate() error {
	if !d.Status.Valid() {
		return fmt.Errorf("unknown status %q", d.Status)
	}
	if !d.Severity.Valid() {
		return fmt.Errorf("unknown severity %q", d.Severity)
	}
	return validateConfidence(d.Confidence)
}

func validateConfidence(c float64) error {
	if c < 0 || c > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", c)
	}
	return nil
}

// LogKind names one of the three observable logs.
type LogKind string

const (
	LogConversation LogKind = "conversation"
	LogReasoning    LogKind = "reasoning"
	LogDiagnostics  LogKind = "diagnostics"
)

// LogEntry is a fired timeline payload. Entries are never mutated after they
// are appended.
type LogEntry[T any] struct {
	ID         string    `json:"id"`
	Payload    T         `json:"payload"`
	OffsetMs   int64     `json:"offset_ms"`
	CapturedAt time.Time `json:"captured_at"`
}
