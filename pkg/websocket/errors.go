package websocket

// Error frame texts. These are wire contract, not just log strings:
// clients match on them.
const (
	errTextTooLarge    = "Message size exceeds maximum allowed size"
	errTextMissingType = "Message type is required"
	errTextNoHandler   = "No handler found for message type: "
)
