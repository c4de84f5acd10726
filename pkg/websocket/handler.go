package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/getrelayd/relayd/pkg/broker"
	"github.com/getrelayd/relayd/pkg/logging"
)

// readLimitSlack is added to the configured MaxMessageSize when setting
// the websocket read limit. Oversize frames must still be readable so
// the dispatcher can answer with an error frame instead of the library
// killing the connection with a 1009 close.
const readLimitSlack = 512

// IdentityFunc resolves the user id and channel for an upgrade request.
// Authentication happens upstream; this only reads the already resolved
// identity off the request.
type IdentityFunc func(r *http.Request) (userID, channel string)

// QueryIdentity reads the user and channel from the "user" and
// "channel" query parameters.
func QueryIdentity(r *http.Request) (string, string) {
	q := r.URL.Query()
	return q.Get("user"), q.Get("channel")
}

// UpgradeHandler accepts WebSocket upgrades, registers the resulting
// connections with a Broker, and runs each connection's read loop,
// feeding inbound frames to the dispatcher.
type UpgradeHandler struct {
	broker   *Broker
	identity IdentityFunc
	logger   *slog.Logger
}

// UpgradeOption customizes an UpgradeHandler.
type UpgradeOption func(*UpgradeHandler)

// WithIdentity sets the identity resolver.
func WithIdentity(fn IdentityFunc) UpgradeOption {
	return func(h *UpgradeHandler) { h.identity = fn }
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) UpgradeOption {
	return func(h *UpgradeHandler) { h.logger = logger }
}

// NewUpgradeHandler creates an upgrade handler for b.
func NewUpgradeHandler(b *Broker, opts ...UpgradeOption) *UpgradeHandler {
	h := &UpgradeHandler{
		broker:   b,
		identity: QueryIdentity,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and hands the connection to the broker.
func (h *UpgradeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, channel := h.identity(r)

	// Pre-upgrade quota check so over-quota clients get an HTTP 429
	// instead of a post-handshake close. Raced registrations are still
	// caught by Add below.
	if userID != "" && h.broker.CountByUser(userID) >= h.broker.Options().MaxConnectionsPerUser {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	wsConn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true, // origin policy is the proxy's job
	})
	if err != nil {
		h.logger.Warn("ws: upgrade failed", "error", err)
		return
	}
	wsConn.SetReadLimit(h.broker.MaxMessageSize() + readLimitSlack)

	ctx, cancel := context.WithCancel(context.Background())
	tr := &wsTransport{conn: wsConn, ctx: ctx, cancel: cancel}

	id := broker.GenerateConnectionID()
	conn, err := h.broker.Add(id, tr, userID, channel)
	if err != nil {
		_ = wsConn.Close(ws.StatusPolicyViolation, "connection rejected")
		cancel()
		h.logger.Warn("ws: connection rejected", "user", userID, "error", err)
		return
	}

	h.logger.Debug("ws: connection open", "id", id, "user", userID, "channel", channel)
	go h.readLoop(ctx, conn, wsConn)
}

// readLoop pumps inbound frames into the dispatcher until the transport
// dies or the connection is closed through the registry. Each frame
// dispatches on its own goroutine; handler execution is not serialized
// per connection.
func (h *UpgradeHandler) readLoop(ctx context.Context, conn *broker.Connection, wsConn *ws.Conn) {
	defer conn.Close(broker.CloseNormal, "")

	for {
		_, data, err := wsConn.Read(ctx)
		if err != nil {
			h.logger.Debug("ws: read loop ended", "id", conn.ID(), "error", err)
			return
		}
		go h.broker.HandleMessage(conn.ID(), data)
	}
}

// wsTransport adapts a coder/websocket connection to broker.Transport.
type wsTransport struct {
	conn   *ws.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *wsTransport) Write(p []byte) error {
	return t.conn.Write(t.ctx, ws.MessageText, p)
}

func (t *wsTransport) Close(code int, reason string) error {
	// Close reasons are capped at 123 bytes by RFC 6455.
	if len(reason) > 123 {
		reason = reason[:123]
	}
	err := t.conn.Close(ws.StatusCode(code), reason)
	t.cancel()
	return err
}
