package amqp

import (
	"encoding/json"
	"time"
)

// EventMessage is the wire form of a session lifecycle event. It carries
// identifiers only, never the token or profile data.
type EventMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	UserID    int64     `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEventMessage creates a message stamped with the current time.
func NewEventMessage(id, kind string, userID int64) *EventMessage {
	return &EventMessage{
		ID:        id,
		Kind:      kind,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON creates a message from JSON bytes
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
