package broker

import (
	"time"

	"github.com/getrelayd/relayd/pkg/metrics"
)

// runHeartbeat broadcasts a keep-alive frame at the configured interval
// until the registry shuts down. Each tick runs as its own goroutine
// over its own snapshot: a slow broadcast never delays or queues behind
// the next tick. Dead transports discovered during a tick are torn down
// by the ordinary Send failure path.
func (r *Registry) runHeartbeat() {
	ticker := time.NewTicker(r.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.hbStop:
			return
		case now := <-ticker.C:
			frame := r.opts.HeartbeatFrame(now)
			go func() {
				delivered := r.Broadcast(frame)
				r.heartbeatsFired.Add(1)
				if metrics.HeartbeatsTotal != nil {
					metrics.HeartbeatsTotal.WithLabelValues(string(r.kind)).Inc()
				}
				r.logger.Debug("heartbeat", "transport", r.kind, "delivered", delivered)
			}()
		}
	}
}
