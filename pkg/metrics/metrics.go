package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors for the fan-out brokers. They are nil until Init (or
// Register) runs; every use site nil-checks so the brokers work without
// metrics wired up, e.g. in tests or embedded use.
var (
	// ActiveConnections tracks currently registered connections.
	// Labels: transport (sse, websocket).
	ActiveConnections *prometheus.GaugeVec

	// MessagesSent counts frames successfully handed to a transport.
	// Labels: transport.
	MessagesSent *prometheus.CounterVec

	// DeliveryFailures counts frames dropped on a failed transport
	// write. Labels: transport.
	DeliveryFailures *prometheus.CounterVec

	// HeartbeatsTotal counts keep-alive broadcast ticks.
	// Labels: transport.
	HeartbeatsTotal *prometheus.CounterVec

	// InboundMessages counts inbound WebSocket frames accepted for
	// dispatch. Labels: type (the envelope's message type).
	InboundMessages *prometheus.CounterVec

	// InboundErrors counts inbound frames rejected before or during
	// dispatch. Labels: reason (too_large, parse, missing_type,
	// no_handler, handler).
	InboundErrors *prometheus.CounterVec
)

// Init creates the collectors and registers them with the default
// Prometheus registerer. Calling it twice panics, as does registering
// the same metric names elsewhere in the process.
func Init() {
	Register(prometheus.DefaultRegisterer)
}

// Register creates the collectors and registers them with reg.
func Register(reg prometheus.Registerer) {
	ActiveConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relayd",
		Name:      "active_connections",
		Help:      "Number of currently registered connections.",
	}, []string{"transport"})

	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayd",
		Name:      "messages_sent_total",
		Help:      "Frames successfully written to a transport.",
	}, []string{"transport"})

	DeliveryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayd",
		Name:      "delivery_failures_total",
		Help:      "Frames dropped because a transport write failed.",
	}, []string{"transport"})

	HeartbeatsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayd",
		Name:      "heartbeats_total",
		Help:      "Keep-alive broadcast ticks issued.",
	}, []string{"transport"})

	InboundMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayd",
		Name:      "inbound_messages_total",
		Help:      "Inbound WebSocket messages accepted for dispatch.",
	}, []string{"type"})

	InboundErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayd",
		Name:      "inbound_errors_total",
		Help:      "Inbound WebSocket messages rejected.",
	}, []string{"reason"})

	reg.MustRegister(
		ActiveConnections,
		MessagesSent,
		DeliveryFailures,
		HeartbeatsTotal,
		InboundMessages,
		InboundErrors,
	)
}

// Handler returns the HTTP handler serving the Prometheus exposition
// endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
