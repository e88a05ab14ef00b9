package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrClosed = errors.New("session closed")
)
