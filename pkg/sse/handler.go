package sse

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/getrelayd/relayd/pkg/broker"
	"github.com/getrelayd/relayd/pkg/logging"
)

// IdentityFunc resolves the user id and channel for an incoming stream
// request. Authentication happens upstream; this only reads the already
// established identity off the request.
type IdentityFunc func(r *http.Request) (userID, channel string)

// QueryIdentity reads the user and channel from the "user" and
// "channel" query parameters. It is the default IdentityFunc and is
// intended for development setups where the upstream proxy injects the
// parameters.
func QueryIdentity(r *http.Request) (string, string) {
	q := r.URL.Query()
	return q.Get("user"), q.Get("channel")
}

// Handler serves text/event-stream endpoints backed by a Broker. Each
// request registers one connection and blocks until the client goes
// away, the connection is closed through the registry, or the server
// shuts down.
type Handler struct {
	broker   *Broker
	identity IdentityFunc
	logger   *slog.Logger
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithIdentity sets the identity resolver.
func WithIdentity(fn IdentityFunc) HandlerOption {
	return func(h *Handler) { h.identity = fn }
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler creates a streaming handler for b.
func NewHandler(b *Broker, opts ...HandlerOption) *Handler {
	h := &Handler{
		broker:   b,
		identity: QueryIdentity,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request into a long-lived event stream.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("sse: streaming unsupported", "path", r.URL.Path)
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ContentTypeEventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	userID, channel := h.identity(r)
	id := "sse-" + uuid.NewString()

	conn, err := h.broker.Add(id, &streamTransport{w: w, flusher: flusher}, userID, channel)
	if err != nil {
		switch {
		case errors.Is(err, broker.ErrQuotaExceeded):
			http.Error(w, "too many connections", http.StatusTooManyRequests)
		default:
			http.Error(w, "connection rejected", http.StatusInternalServerError)
		}
		h.logger.Warn("sse: connection rejected", "user", userID, "error", err)
		return
	}

	// Commit the response so the client sees the stream open even if no
	// event arrives before the first heartbeat.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug("sse: stream open", "id", id, "user", userID, "channel", channel)

	select {
	case <-r.Context().Done():
		conn.Close(broker.CloseGoingAway, "client disconnected")
	case <-conn.Done():
	}

	h.logger.Debug("sse: stream closed", "id", id)
}

// streamTransport adapts an http.ResponseWriter into a broker.Transport.
// Writes happen under the connection's send lock; the response itself is
// torn down by the handler returning once the connection dies.
type streamTransport struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (t *streamTransport) Write(p []byte) error {
	if _, err := t.w.Write(p); err != nil {
		return err
	}
	t.flusher.Flush()
	return nil
}

func (t *streamTransport) Close(code int, reason string) error {
	// Nothing to do at the transport level: the handler goroutine
	// observes Done and returns, which ends the response.
	return nil
}
