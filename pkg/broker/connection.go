package broker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getrelayd/relayd/pkg/metrics"
)

// TransportKind identifies the wire protocol behind a connection.
type TransportKind string

const (
	// TransportSSE is a one-way text/event-stream connection.
	TransportSSE TransportKind = "sse"
	// TransportWebSocket is a full-duplex WebSocket connection.
	TransportWebSocket TransportKind = "websocket"
)

// Transport is the write side of an established client connection. The
// accept loop owns the handshake and the read side; the registry only
// writes encoded frames and closes.
type Transport interface {
	// Write sends one encoded frame. It may block on transport flow
	// control. Calls after Close must return an error rather than hang.
	Write(p []byte) error

	// Close tears down the transport. code and reason follow WebSocket
	// close semantics; transports without a close handshake may ignore
	// them. Errors are swallowed by the caller.
	Close(code int, reason string) error
}

// Close codes passed to Transport.Close.
const (
	// CloseNormal indicates a normal closure (1000).
	CloseNormal = 1000
	// CloseGoingAway indicates the server is shutting down (1001).
	CloseGoingAway = 1001
	// ClosePolicyViolation indicates the connection was rejected or
	// force-closed (1008).
	ClosePolicyViolation = 1008
	// CloseInternalError indicates a server-side failure (1011).
	CloseInternalError = 1011
)

// deregistrar is the narrow capability a connection holds back into its
// registry: remove me from the indices. Keeping it to one method avoids
// an ownership cycle between Connection and Registry.
type deregistrar interface {
	deregister(id string)
}

// Connection is one live transport between the process and a remote
// client. Instances are created by Registry.Add and shared between the
// registry, publishers, and the accept loop.
type Connection struct {
	id          string
	userID      string
	channel     string
	kind        TransportKind
	connectedAt time.Time
	transport   Transport
	reg         deregistrar

	sendMu    sync.Mutex // serializes Write calls so frames never interleave
	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}

	framesSent atomic.Int64
	sendErrors atomic.Int64
}

// ID returns the unique connection id.
func (c *Connection) ID() string {
	return c.id
}

// UserID returns the user id supplied at registration, or "" for an
// anonymous connection.
func (c *Connection) UserID() string {
	return c.userID
}

// Channel returns the channel supplied at registration, or "".
func (c *Connection) Channel() string {
	return c.channel
}

// Kind returns the transport kind.
func (c *Connection) Kind() TransportKind {
	return c.kind
}

// ConnectedAt returns the registration time.
func (c *Connection) ConnectedAt() time.Time {
	return c.connectedAt
}

// Alive reports whether the connection is still registered.
func (c *Connection) Alive() bool {
	return !c.closed.Load()
}

// Done returns a channel closed when the connection is torn down. Accept
// loops block on it to keep the transport's goroutine or handler alive
// until the registry is finished with the connection.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// FramesSent returns the number of frames successfully written.
func (c *Connection) FramesSent() int64 {
	return c.framesSent.Load()
}

// Send encodes f and writes it to the transport under the send lock.
// Frames from two Send calls on the same connection reach the wire in
// lock-acquisition order; no ordering holds across connections.
//
// A write failure tears the connection down before returning: the
// transport is dead and keeping it indexed would leak it.
func (c *Connection) Send(f Frame) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	data, err := f.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	c.sendMu.Lock()
	if c.closed.Load() {
		c.sendMu.Unlock()
		return ErrConnectionClosed
	}
	err = c.transport.Write(data)
	c.sendMu.Unlock()

	if err != nil {
		c.sendErrors.Add(1)
		if metrics.DeliveryFailures != nil {
			metrics.DeliveryFailures.WithLabelValues(string(c.kind)).Inc()
		}
		c.Close(CloseInternalError, "write failure")
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	c.framesSent.Add(1)
	if metrics.MessagesSent != nil {
		metrics.MessagesSent.WithLabelValues(string(c.kind)).Inc()
	}
	return nil
}

// Close tears the connection down: the transport is closed (best
// effort), the done channel is closed, and the connection is removed
// from the registry indices. Only the first call has any effect.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.sendMu.Lock()
		_ = c.transport.Close(code, reason)
		c.sendMu.Unlock()

		close(c.done)
		if c.reg != nil {
			c.reg.deregister(c.id)
		}
	})
}

// Info returns a point-in-time snapshot of the connection for
// introspection APIs.
func (c *Connection) Info() *ConnectionInfo {
	return &ConnectionInfo{
		ID:          c.id,
		UserID:      c.userID,
		Channel:     c.channel,
		Transport:   c.kind,
		ConnectedAt: c.connectedAt,
		FramesSent:  c.framesSent.Load(),
		SendErrors:  c.sendErrors.Load(),
	}
}
