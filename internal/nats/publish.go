package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/call-monitor/internal/model"
	"github.com/capitalize-ai/call-monitor/pkg/logger"
	"github.com/capitalize-ai/call-monitor/pkg/metrics"
)

// DefaultSubjectPrefix is the root of every mirrored subject.
const DefaultSubjectPrefix = "callmon"

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Message is the JSON body published for each update.
type Message struct {
	Type      model.UpdateType   `json:"type"`
	SessionID string             `json:"session_id"`
	Log       model.LogKind      `json:"log,omitempty"`
	EntryID   string             `json:"entry_id,omitempty"`
	Entry     any                `json:"entry,omitempty"`
	Session   *model.CallSession `json:"session,omitempty"`
	At        time.Time          `json:"at"`
}

// Publisher mirrors fired entries and session transitions to NATS. Level and
// scroll updates stay local to the process.
type Publisher struct {
	conn   Conn
	prefix string
	logger *logger.Logger
}

// NewPublisher creates a publisher on conn.
func NewPublisher(conn Conn, prefix string, log *logger.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{conn: conn, prefix: prefix, logger: log}
}

// Subject returns the subject an update is published on, or "" when the
// update is not mirrored.
func (p *Publisher) Subject(u model.Update) string {
	switch u.Type {
	case model.UpdateEntry:
		return fmt.Sprintf("%s.%s.%s", p.prefix, u.SessionID, u.Log)
	case model.UpdateSession, model.UpdateReset:
		return fmt.Sprintf("%s.%s.%s", p.prefix, u.SessionID, u.Type)
	default:
		return ""
	}
}

// Publish implements service.Sink. Failures are logged and counted, never
// returned to the event loop.
func (p *Publisher) Publish(u model.Update) {
	subject := p.Subject(u)
	if subject == "" {
		return
	}

	data, err := json.Marshal(Message{
		Type:      u.Type,
		SessionID: u.SessionID,
		Log:       u.Log,
		EntryID:   u.EntryID,
		Entry:     u.Entry,
		Session:   u.Session,
		At:        u.At,
	})
	if err != nil {
		metrics.NATSPublishFailures.WithLabelValues(string(u.Type)).Inc()
		p.logger.Error("failed to encode update", zap.String("subject", subject), zap.Error(err))
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		metrics.NATSPublishFailures.WithLabelValues(string(u.Type)).Inc()
		p.logger.Warn("failed to publish update", zap.String("subject", subject), zap.Error(err))
	}
}
