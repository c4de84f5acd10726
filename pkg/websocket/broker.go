package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getrelayd/relayd/pkg/broker"
	"github.com/getrelayd/relayd/pkg/metrics"
)

// Handler processes one inbound message on one connection. A non-nil
// error (or a panic) is converted into an error frame on the
// originating connection; it never reaches the read loop.
//
// Handlers for the same connection may run concurrently: the dispatcher
// does not serialize per-connection handler execution. Handlers needing
// that serialize themselves.
type Handler func(conn *broker.Connection, msg *Message) error

// Broker is the WebSocket fan-out broker: the connection registry plus
// the type-indexed inbound dispatcher.
type Broker struct {
	*broker.Registry
	logger *slog.Logger

	hmu      sync.RWMutex
	handlers map[string]Handler
}

// NewBroker creates a WebSocket broker. The heartbeat scheduler starts
// immediately; call CloseAll or Shutdown to stop it.
func NewBroker(opts broker.Options) *Broker {
	if opts.HeartbeatFrame == nil {
		opts.HeartbeatFrame = HeartbeatFrame
	}
	reg := broker.NewRegistry(broker.TransportWebSocket, opts)
	return &Broker{
		Registry: reg,
		logger:   reg.Options().Logger,
		handlers: make(map[string]Handler),
	}
}

// OnMessage registers (or replaces) the handler for a message type.
func (b *Broker) OnMessage(msgType string, h Handler) {
	b.hmu.Lock()
	defer b.hmu.Unlock()
	b.handlers[msgType] = h
}

// handler returns the handler for a message type, or nil.
func (b *Broker) handler(msgType string) Handler {
	b.hmu.RLock()
	defer b.hmu.RUnlock()
	return b.handlers[msgType]
}

// HandleMessage parses, validates, and dispatches one inbound frame
// from the named connection. Every failure mode — oversize frame, parse
// error, missing type, unknown type, handler error or panic — turns
// into an error frame on that connection; nothing propagates to the
// caller. Frames for connections no longer in the registry are dropped
// silently.
func (b *Broker) HandleMessage(connID string, raw []byte) {
	conn := b.Get(connID)
	if conn == nil {
		return
	}

	if int64(len(raw)) > b.MaxMessageSize() {
		b.inboundError(conn, "too_large", errTextTooLarge)
		return
	}

	var in inboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		b.inboundError(conn, "parse", err.Error())
		return
	}

	if in.Type == "" {
		b.inboundError(conn, "missing_type", errTextMissingType)
		return
	}

	h := b.handler(in.Type)
	if h == nil {
		b.inboundError(conn, "no_handler", errTextNoHandler+in.Type)
		return
	}

	if metrics.InboundMessages != nil {
		metrics.InboundMessages.WithLabelValues(in.Type).Inc()
	}

	msg := &Message{
		Type:      in.Type,
		Payload:   in.Payload,
		ID:        in.ID,
		Timestamp: in.Timestamp,
	}
	b.dispatch(conn, h, msg)
}

// dispatch runs a handler, converting errors and panics into error
// frames.
func (b *Broker) dispatch(conn *broker.Connection, h Handler, msg *Message) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("handler panic", "type", msg.Type, "conn", conn.ID(), "panic", rec)
			b.inboundError(conn, "handler", fmt.Sprintf("handler failed: %v", rec))
		}
	}()

	if err := h(conn, msg); err != nil {
		b.inboundError(conn, "handler", err.Error())
	}
}

// inboundError emits an error frame on the originating connection.
// Delivery is best effort; if the connection died in the meantime there
// is nobody left to tell.
func (b *Broker) inboundError(conn *broker.Connection, reason, text string) {
	if metrics.InboundErrors != nil {
		metrics.InboundErrors.WithLabelValues(reason).Inc()
	}
	b.logger.Debug("inbound message rejected", "conn", conn.ID(), "reason", reason, "error", text)

	frame := &Message{Type: "error", Payload: ErrorPayload{Error: text}}
	_ = conn.Send(frame)
}
