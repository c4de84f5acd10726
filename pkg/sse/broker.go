package sse

import (
	"github.com/getrelayd/relayd/pkg/broker"
)

// Broker is the SSE fan-out broker: a connection registry whose frames
// are text/event-stream blocks and whose heartbeat is an
// "event: heartbeat" frame.
type Broker struct {
	*broker.Registry
}

// NewBroker creates an SSE broker. The heartbeat scheduler starts
// immediately; call CloseAll or Shutdown to stop it.
func NewBroker(opts broker.Options) *Broker {
	if opts.HeartbeatFrame == nil {
		opts.HeartbeatFrame = HeartbeatFrame
	}
	return &Broker{Registry: broker.NewRegistry(broker.TransportSSE, opts)}
}
