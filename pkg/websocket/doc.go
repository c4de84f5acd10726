// Package websocket provides the WebSocket side of the fan-out
// registry: the JSON message envelope, a Broker with type-indexed
// inbound dispatch, and an HTTP upgrade handler.
//
// Outbound, the broker shares pkg/broker's targeting operations
// (SendToConnection, SendToUser, SendToChannel, Broadcast). Inbound,
// callers register handlers by message type and the dispatcher routes
// each parsed envelope:
//
//	b := websocket.NewBroker(broker.Options{})
//	b.OnMessage("chat:send", func(conn *broker.Connection, msg *websocket.Message) error {
//		var req chatRequest
//		if err := msg.DecodePayload(&req); err != nil {
//			return err
//		}
//		return nil
//	})
//	mux.Handle("/ws", websocket.NewUpgradeHandler(b))
//
// Every inbound failure mode — oversize frame, unparseable JSON,
// missing or unknown type, handler error — is answered with an error
// frame on the same connection and never propagates.
//
// The package uses github.com/coder/websocket for the server-side
// protocol implementation.
package websocket
