package broker

import (
	"log/slog"
	"time"

	"github.com/getrelayd/relayd/pkg/logging"
)

// Defaults for Options fields left at their zero value.
const (
	// DefaultHeartbeatInterval is the default keep-alive broadcast period.
	DefaultHeartbeatInterval = 30 * time.Second
	// DefaultConnectionTimeout is the advisory idle ceiling reported to
	// callers. The registry itself does not enforce it.
	DefaultConnectionTimeout = 5 * time.Minute
	// DefaultMaxConnectionsPerUser is the default per-user admission quota.
	DefaultMaxConnectionsPerUser = 10
	// DefaultMaxMessageSize is the default inbound message size limit in bytes.
	DefaultMaxMessageSize = 1 << 20
)

// Options configures a Registry. The zero value is usable; zero fields
// take the defaults above.
type Options struct {
	// HeartbeatInterval is the period of the keep-alive broadcast.
	HeartbeatInterval time.Duration

	// ConnectionTimeout is an advisory idle ceiling surfaced to callers
	// via ConnectionTimeout(). Not enforced by the registry.
	ConnectionTimeout time.Duration

	// MaxConnectionsPerUser caps concurrent connections per non-empty
	// user id. Anonymous connections are not counted against any quota.
	MaxConnectionsPerUser int

	// MaxMessageSize caps inbound message byte length. Enforced by the
	// WebSocket dispatcher, carried here so both brokers share one
	// configuration surface.
	MaxMessageSize int64

	// HeartbeatFrame produces the keep-alive frame for one tick. When
	// nil, no heartbeat goroutine is started. The SSE and WebSocket
	// brokers install their transport-specific frames here.
	HeartbeatFrame func(now time.Time) Frame

	// Logger receives structural events (register, deregister, failed
	// writes). Defaults to a no-op logger.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.ConnectionTimeout <= 0 {
		o.ConnectionTimeout = DefaultConnectionTimeout
	}
	if o.MaxConnectionsPerUser <= 0 {
		o.MaxConnectionsPerUser = DefaultMaxConnectionsPerUser
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
	return o
}
