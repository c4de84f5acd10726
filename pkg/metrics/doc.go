// Package metrics provides Prometheus instrumentation for relayd.
//
// Collectors are package-level variables, nil until Init is called.
// Instrumented code nil-checks each collector before use, so the brokers
// run unchanged with metrics disabled:
//
//	if metrics.MessagesSent != nil {
//	    metrics.MessagesSent.WithLabelValues("sse").Inc()
//	}
//
// The daemon calls metrics.Init() once at startup and mounts
// metrics.Handler() on its admin server.
package metrics
