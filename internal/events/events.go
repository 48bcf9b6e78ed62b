// Package events carries session lifecycle events to interested sinks.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"finanquest/internal/amqp"
	applog "finanquest/internal/log"
)

type Kind string

const (
	SignedIn       Kind = "signed_in"
	SignedOut      Kind = "signed_out"
	ProfileUpdated Kind = "profile_updated"
	Restored       Kind = "restored"
)

// Event is a session state change. It never carries the token.
type Event struct {
	ID     string
	Kind   Kind
	UserID int64
	At     time.Time
}

// New stamps a fresh event.
func New(kind Kind, userID int64) Event {
	return Event{
		ID:     uuid.NewString(),
		Kind:   kind,
		UserID: userID,
		At:     time.Now().UTC(),
	}
}

// Sink receives events. Publishing must not block for long: the session
// manager calls sinks inline after each state change.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// LogSink writes events to the structured log.
type LogSink struct {
	logger *applog.Logger
}

func NewLogSink(logger *applog.Logger) *LogSink {
	if logger == nil {
		logger = applog.Discard()
	}
	return &LogSink{logger: logger.WithComponent(applog.ComponentEvents)}
}

func (s *LogSink) Publish(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, "Session event",
		applog.FieldEvent, string(e.Kind),
		applog.FieldUserID, e.UserID,
		"event_id", e.ID)
	return nil
}

// Publisher is the part of the AMQP client the sink needs.
type Publisher interface {
	PublishEvent(ctx context.Context, msg *amqp.EventMessage) error
}

// AMQPSink forwards events to a message broker.
type AMQPSink struct {
	pub Publisher
}

func NewAMQPSink(pub Publisher) *AMQPSink {
	return &AMQPSink{pub: pub}
}

func (s *AMQPSink) Publish(ctx context.Context, e Event) error {
	return s.pub.PublishEvent(ctx, &amqp.EventMessage{
		ID:        e.ID,
		Kind:      string(e.Kind),
		UserID:    e.UserID,
		Timestamp: e.At,
	})
}

// FromMessage converts a consumed message back to an Event.
func FromMessage(m *amqp.EventMessage) Event {
	return Event{ID: m.ID, Kind: Kind(m.Kind), UserID: m.UserID, At: m.Timestamp}
}

// Recorder keeps every event it receives. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}
