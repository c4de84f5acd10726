// Package broker implements the connection fan-out registry shared by the
// SSE and WebSocket brokers.
//
// The registry indexes live connections three ways: by connection id, by
// user id, and by channel. All three indices are mutated together under a
// single lock, so observers never see a partially indexed connection.
// Publish operations snapshot the target id set under the lock, release
// it, and then write to each connection outside the lock; a per-connection
// send lock keeps frames from interleaving on one wire while writes to
// different connections proceed in parallel.
//
// Key behaviors:
//   - Admission control: per-user connection quotas enforced atomically
//     at registration time
//   - Exactly-once teardown: a connection is removed once, whether by
//     explicit removal, its own Close, a failed write, or shutdown
//   - Heartbeats: a registry-owned goroutine broadcasts a keep-alive
//     frame on a fixed cadence until shutdown
//   - Partial failure: a dead transport discovered during a fan-out is
//     torn down and skipped; the operation continues
//
// The registry never performs I/O while holding its lock. Transports are
// supplied by the accept loop (see pkg/sse and pkg/websocket for the
// net/http and coder/websocket adapters); the registry only writes
// encoded frames and closes.
//
// Usage:
//
//	reg := broker.NewRegistry(broker.TransportSSE, broker.Options{
//		MaxConnectionsPerUser: 10,
//	})
//	conn, err := reg.Add("c1", transport, "user-1", "orders")
//	...
//	n := reg.SendToChannel("orders", frame)
package broker
