// Package admin exposes an introspection HTTP API over the live
// SSE and WebSocket brokers: connection listings, aggregate stats,
// server-side broadcast injection, and forced disconnects.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/getrelayd/relayd/pkg/broker"
	"github.com/getrelayd/relayd/pkg/logging"
	"github.com/getrelayd/relayd/pkg/sse"
	"github.com/getrelayd/relayd/pkg/websocket"
)

// API serves the admin endpoints.
type API struct {
	sse    *sse.Broker
	ws     *websocket.Broker
	logger *slog.Logger
}

// NewAPI creates the admin API over the given brokers. Either broker
// may be nil; its endpoints then report empty results.
func NewAPI(sseBroker *sse.Broker, wsBroker *websocket.Broker, logger *slog.Logger) *API {
	if logger == nil {
		logger = logging.Nop()
	}
	return &API{sse: sseBroker, ws: wsBroker, logger: logger}
}

// Routes returns the admin ServeMux.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /connections", a.handleListConnections)
	mux.HandleFunc("GET /stats", a.handleStats)
	mux.HandleFunc("POST /broadcast", a.handleBroadcast)
	mux.HandleFunc("DELETE /connections/{id}", a.handleDisconnect)
	return mux
}

// ListConnectionsResponse is the body of GET /connections.
type ListConnectionsResponse struct {
	Connections []*broker.ConnectionInfo `json:"connections"`
}

func (a *API) handleListConnections(w http.ResponseWriter, r *http.Request) {
	resp := ListConnectionsResponse{Connections: []*broker.ConnectionInfo{}}
	if a.sse != nil {
		resp.Connections = append(resp.Connections, a.sse.ListInfos()...)
	}
	if a.ws != nil {
		resp.Connections = append(resp.Connections, a.ws.ListInfos()...)
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	SSE       *broker.Stats `json:"sse,omitempty"`
	WebSocket *broker.Stats `json:"websocket,omitempty"`
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{}
	if a.sse != nil {
		resp.SSE = a.sse.Stats()
	}
	if a.ws != nil {
		resp.WebSocket = a.ws.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

// BroadcastRequest is the body of POST /broadcast. Transport selects
// "sse", "websocket", or "" for both. Targeting falls through channel,
// then user, then everyone.
type BroadcastRequest struct {
	Transport string `json:"transport,omitempty"`
	Channel   string `json:"channel,omitempty"`
	UserID    string `json:"userId,omitempty"`

	// Event is the SSE event name; Type is the WebSocket message type.
	Event string `json:"event,omitempty"`
	Type  string `json:"type,omitempty"`
	Data  any    `json:"data"`
}

// BroadcastResponse reports how many connections the frame reached.
type BroadcastResponse struct {
	ID        string `json:"id"`
	Delivered int    `json:"delivered"`
}

func (a *API) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	delivered := 0

	if a.sse != nil && (req.Transport == "" || req.Transport == "sse") {
		frame := &sse.Event{ID: id, Event: req.Event, Data: req.Data}
		delivered += publish(a.sse.Registry, frame, req.Channel, req.UserID)
	}
	if a.ws != nil && (req.Transport == "" || req.Transport == "websocket") {
		msgType := req.Type
		if msgType == "" {
			msgType = req.Event
		}
		frame := &websocket.Message{Type: msgType, Payload: req.Data, ID: id}
		delivered += publish(a.ws.Registry, frame, req.Channel, req.UserID)
	}

	a.logger.Info("admin broadcast", "id", id, "transport", req.Transport,
		"channel", req.Channel, "user", req.UserID, "delivered", delivered)
	writeJSON(w, http.StatusOK, BroadcastResponse{ID: id, Delivered: delivered})
}

func publish(reg *broker.Registry, frame broker.Frame, channel, userID string) int {
	switch {
	case channel != "":
		return reg.SendToChannel(channel, frame)
	case userID != "":
		return reg.SendToUser(userID, frame)
	default:
		return reg.Broadcast(frame)
	}
}

func (a *API) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var conn *broker.Connection
	if a.sse != nil {
		conn = a.sse.Get(id)
	}
	if conn == nil && a.ws != nil {
		conn = a.ws.Get(id)
	}
	if conn == nil {
		http.Error(w, "connection not found", http.StatusNotFound)
		return
	}

	conn.Close(broker.ClosePolicyViolation, "closed by administrator")
	a.logger.Info("admin disconnect", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
