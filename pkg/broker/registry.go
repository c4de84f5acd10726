package broker

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getrelayd/relayd/pkg/metrics"
)

// Registry owns the connection set and its three indices. All public
// methods are safe for concurrent use.
type Registry struct {
	kind   TransportKind
	opts   Options
	logger *slog.Logger

	mu        sync.RWMutex
	conns     map[string]*Connection
	byUser    map[string]map[string]struct{}
	byChannel map[string]map[string]struct{}

	hbStop chan struct{}
	hbOnce sync.Once

	startTime time.Time

	// Running totals. totalConns counts every registration, live or not;
	// closedFrames and closedSendErrs hold the counters of connections
	// that have already gone away (live connections are summed on demand
	// in Stats); heartbeatsFired counts completed heartbeat ticks.
	totalConns      atomic.Int64
	closedFrames    atomic.Int64
	closedSendErrs  atomic.Int64
	heartbeatsFired atomic.Int64
}

// NewRegistry creates a registry for one transport kind and starts its
// heartbeat scheduler if opts.HeartbeatFrame is set. Callers must
// eventually call CloseAll (or Shutdown) to stop the scheduler.
func NewRegistry(kind TransportKind, opts Options) *Registry {
	opts = opts.withDefaults()

	r := &Registry{
		kind:      kind,
		opts:      opts,
		logger:    opts.Logger,
		conns:     make(map[string]*Connection),
		byUser:    make(map[string]map[string]struct{}),
		byChannel: make(map[string]map[string]struct{}),
		hbStop:    make(chan struct{}),
		startTime: time.Now(),
	}

	if opts.HeartbeatFrame != nil {
		go r.runHeartbeat()
	}

	return r
}

// Options returns the effective (defaulted) configuration.
func (r *Registry) Options() Options {
	return r.opts
}

// ConnectionTimeout returns the advisory idle ceiling from the options.
func (r *Registry) ConnectionTimeout() time.Duration {
	return r.opts.ConnectionTimeout
}

// MaxMessageSize returns the inbound message size limit from the options.
func (r *Registry) MaxMessageSize() int64 {
	return r.opts.MaxMessageSize
}

// Add registers a new connection and inserts it into all applicable
// indices atomically. userID and channel may be empty. It fails with
// ErrDuplicateID if id is taken and ErrQuotaExceeded if the user is at
// the admission quota; neither failure mutates any state.
func (r *Registry) Add(id string, tr Transport, userID, channel string) (*Connection, error) {
	r.mu.Lock()

	if _, exists := r.conns[id]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	if userID != "" && len(r.byUser[userID]) >= r.opts.MaxConnectionsPerUser {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: user %q", ErrQuotaExceeded, userID)
	}

	conn := &Connection{
		id:          id,
		userID:      userID,
		channel:     channel,
		kind:        r.kind,
		connectedAt: time.Now(),
		transport:   tr,
		reg:         r,
		done:        make(chan struct{}),
	}

	r.conns[id] = conn
	if userID != "" {
		if r.byUser[userID] == nil {
			r.byUser[userID] = make(map[string]struct{})
		}
		r.byUser[userID][id] = struct{}{}
	}
	if channel != "" {
		if r.byChannel[channel] == nil {
			r.byChannel[channel] = make(map[string]struct{})
		}
		r.byChannel[channel][id] = struct{}{}
	}

	r.mu.Unlock()

	r.totalConns.Add(1)
	if metrics.ActiveConnections != nil {
		metrics.ActiveConnections.WithLabelValues(string(r.kind)).Inc()
	}
	r.logger.Debug("connection registered",
		"id", id, "transport", r.kind, "user", userID, "channel", channel)

	return conn, nil
}

// Remove closes and deregisters a connection. Unknown ids are a no-op,
// and repeated calls collapse into one observable effect.
func (r *Registry) Remove(id string) {
	conn := r.Get(id)
	if conn == nil {
		return
	}
	conn.Close(CloseNormal, "")
}

// deregister removes the connection from all three indices. Called from
// Connection.Close exactly once per connection; safe to call with an id
// that is already gone.
func (r *Registry) deregister(id string) {
	r.mu.Lock()

	conn, exists := r.conns[id]
	if !exists {
		r.mu.Unlock()
		return
	}

	delete(r.conns, id)
	if conn.userID != "" {
		if set, ok := r.byUser[conn.userID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(r.byUser, conn.userID)
			}
		}
	}
	if conn.channel != "" {
		if set, ok := r.byChannel[conn.channel]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(r.byChannel, conn.channel)
			}
		}
	}

	r.mu.Unlock()

	// Roll the connection's counters into the historical totals.
	r.closedFrames.Add(conn.framesSent.Load())
	r.closedSendErrs.Add(conn.sendErrors.Load())

	if metrics.ActiveConnections != nil {
		metrics.ActiveConnections.WithLabelValues(string(r.kind)).Dec()
	}
	r.logger.Debug("connection deregistered", "id", id, "transport", r.kind)
}

// Get returns a connection by id, or nil.
func (r *Registry) Get(id string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[id]
}

// Count returns the total number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CountByUser returns the number of connections registered for a user.
func (r *Registry) CountByUser(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// CountByChannel returns the number of connections on a channel.
func (r *Registry) CountByChannel(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChannel[channel])
}

// ListInfos returns snapshots of every registered connection.
func (r *Registry) ListInfos() []*ConnectionInfo {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	infos := make([]*ConnectionInfo, 0, len(conns))
	for _, conn := range conns {
		infos = append(infos, conn.Info())
	}
	return infos
}

// CloseAll stops the heartbeat scheduler and closes every connection.
// After it returns all three indices are empty.
func (r *Registry) CloseAll(code int, reason string) {
	r.hbOnce.Do(func() { close(r.hbStop) })

	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close(code, reason)
	}

	// Each Close deregistered its connection; reset the maps anyway so a
	// racing Add cannot leave a straggler visible to callers of Count.
	r.mu.Lock()
	r.conns = make(map[string]*Connection)
	r.byUser = make(map[string]map[string]struct{})
	r.byChannel = make(map[string]map[string]struct{})
	r.mu.Unlock()

	r.logger.Info("registry closed", "transport", r.kind, "connections", len(conns))
}

// Shutdown is CloseAll with the going-away close code.
func (r *Registry) Shutdown() {
	r.CloseAll(CloseGoingAway, "server shutdown")
}

// Stats returns aggregate statistics across live and departed
// connections.
func (r *Registry) Stats() *Stats {
	r.mu.RLock()

	frames := r.closedFrames.Load()
	sendErrs := r.closedSendErrs.Load()
	for _, conn := range r.conns {
		frames += conn.framesSent.Load()
		sendErrs += conn.sendErrors.Load()
	}

	byUser := make(map[string]int, len(r.byUser))
	for u, set := range r.byUser {
		byUser[u] = len(set)
	}
	byChannel := make(map[string]int, len(r.byChannel))
	for ch, set := range r.byChannel {
		byChannel[ch] = len(set)
	}
	active := len(r.conns)

	r.mu.RUnlock()

	return &Stats{
		Transport:            r.kind,
		ActiveConnections:    active,
		TotalConnections:     r.totalConns.Load(),
		FramesSent:           frames,
		DeliveryFailures:     sendErrs,
		HeartbeatsFired:      r.heartbeatsFired.Load(),
		ConnectionsByUser:    byUser,
		ConnectionsByChannel: byChannel,
		Uptime:               time.Since(r.startTime).String(),
	}
}
