package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/getrelayd/relayd/pkg/broker"
)

// Message is the WebSocket envelope: every frame on the wire, inbound
// and outbound, is one canonical JSON serialization of this shape.
type Message struct {
	// Type routes the message to a handler. Required and non-empty on
	// inbound messages.
	Type string `json:"type"`

	// Payload is the message body. Outbound messages carry any
	// JSON-encodable value; inbound messages carry the raw bytes for
	// the handler to decode (see DecodePayload).
	Payload any `json:"payload"`

	// ID optionally correlates a message with a reply.
	ID string `json:"id,omitempty"`

	// Timestamp is filled with the current wall clock, in milliseconds,
	// when the message is encoded without one.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Interface compliance check
var _ broker.Frame = (*Message)(nil)

// Encode renders the envelope, filling Timestamp if absent. The
// receiver is not mutated, so one Message can fan out to many
// connections.
func (m *Message) Encode() ([]byte, error) {
	msg := *m
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return data, nil
}

// DecodePayload unmarshals the payload into v. On inbound messages the
// payload is the raw JSON captured during parsing; outbound values are
// round-tripped through encoding/json.
func (m *Message) DecodePayload(v any) error {
	raw, ok := m.Payload.(json.RawMessage)
	if !ok {
		encoded, err := json.Marshal(m.Payload)
		if err != nil {
			return err
		}
		raw = encoded
	}
	return json.Unmarshal(raw, v)
}

// inboundMessage mirrors Message with the payload left unparsed, so a
// handler can decode it into its own schema.
type inboundMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
}

// ErrorPayload is the payload of error frames emitted by the dispatcher.
type ErrorPayload struct {
	Error string `json:"error"`
}

type heartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// HeartbeatFrame produces the keep-alive envelope for one scheduler
// tick: {"type":"heartbeat","payload":{"timestamp":<ms>}}.
func HeartbeatFrame(now time.Time) broker.Frame {
	return &Message{Type: "heartbeat", Payload: heartbeatPayload{Timestamp: now.UnixMilli()}}
}
