// Package sse provides the Server-Sent Events side of the fan-out
// registry: the text/event-stream frame encoder, a Broker built on
// pkg/broker, and a net/http streaming handler.
package sse

import "errors"

// SSE constants per the WHATWG text/event-stream specification.
const (
	// ContentTypeEventStream is the MIME type for SSE responses.
	ContentTypeEventStream = "text/event-stream"
)

// SSE field prefixes. A space follows the colon on emitted lines;
// conforming parsers strip a single leading space from the value.
const (
	fieldID    = "id: "
	fieldEvent = "event: "
	fieldData  = "data: "
	fieldRetry = "retry: "
)

// Errors
var (
	// ErrInvalidField indicates an id or event name containing line
	// terminators, which would corrupt the frame.
	ErrInvalidField = errors.New("sse: field contains line terminator")

	// ErrFlusherNotSupported indicates the response writer cannot stream.
	ErrFlusherNotSupported = errors.New("sse: response writer does not support flushing")
)
