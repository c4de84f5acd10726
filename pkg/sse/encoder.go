package sse

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/getrelayd/relayd/pkg/broker"
)

// Event is one outbound SSE event. The zero value encodes to a bare
// data frame.
type Event struct {
	// ID is the optional event id, surfaced to clients as Last-Event-ID.
	ID string `json:"id,omitempty"`

	// Event is the optional event name. Clients without a matching
	// listener receive it as a generic message.
	Event string `json:"event,omitempty"`

	// Data is the event payload. Strings and byte slices pass through
	// verbatim; any other value is JSON-encoded onto a single line.
	Data any `json:"data"`

	// Retry, when positive, tells clients how long to wait before
	// reconnecting, in milliseconds.
	Retry int `json:"retry,omitempty"`
}

// Interface compliance check
var _ broker.Frame = (*Event)(nil)

// Encode renders the event into wire format: the present fields in
// id, event, data, retry order, each as "field: value\n", terminated by
// a blank line. The data line is always emitted, even when Data is
// empty. Multi-line string data becomes one data line per line, which
// clients reassemble with newlines.
func (e *Event) Encode() ([]byte, error) {
	var sb strings.Builder

	if e.ID != "" {
		if strings.ContainsAny(e.ID, "\r\n") {
			return nil, ErrInvalidField
		}
		sb.WriteString(fieldID)
		sb.WriteString(e.ID)
		sb.WriteByte('\n')
	}

	if e.Event != "" {
		if strings.ContainsAny(e.Event, "\r\n") {
			return nil, ErrInvalidField
		}
		sb.WriteString(fieldEvent)
		sb.WriteString(e.Event)
		sb.WriteByte('\n')
	}

	data, err := formatData(e.Data)
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(data, "\n") {
		sb.WriteString(fieldData)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	if e.Retry > 0 {
		sb.WriteString(fieldRetry)
		sb.WriteString(strconv.Itoa(e.Retry))
		sb.WriteByte('\n')
	}

	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

// formatData converts event data to its data-line representation.
func formatData(data any) (string, error) {
	switch v := data.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal event data: %w", err)
		}
		return string(encoded), nil
	}
}

type heartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// HeartbeatFrame produces the keep-alive event for one scheduler tick:
// "event: heartbeat" with a millisecond timestamp payload.
func HeartbeatFrame(now time.Time) broker.Frame {
	return &Event{Event: "heartbeat", Data: heartbeatPayload{Timestamp: now.UnixMilli()}}
}
