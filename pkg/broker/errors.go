package broker

import "errors"

// Common errors for the broker package.
var (
	// ErrConnectionClosed indicates the connection is closed.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrConnectionNotFound indicates the connection was not found.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrDuplicateID indicates a connection with the same id is already registered.
	ErrDuplicateID = errors.New("duplicate connection id")
	// ErrQuotaExceeded indicates the per-user connection quota was reached.
	ErrQuotaExceeded = errors.New("per-user connection quota exceeded")
	// ErrEncode indicates a frame could not be serialized.
	ErrEncode = errors.New("frame encoding failed")
	// ErrWrite indicates the transport rejected a write.
	ErrWrite = errors.New("transport write failed")
)
