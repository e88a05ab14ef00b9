package gateway

import "errors"

// Sentinel kinds for gateway errors.
var (
	// ErrValidation marks malformed editor input; it never reaches the remote.
	ErrValidation = errors.New("validation failed")

	// ErrTransport marks a remote write that failed or timed out. The caller
	// decides whether to retry; the gateway never does.
	ErrTransport = errors.New("remote write failed")
)
