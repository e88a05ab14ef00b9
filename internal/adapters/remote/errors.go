package remote

import "errors"

// Sentinel kinds for remote boundary errors.
var (
	// ErrSchema marks a push or snapshot payload that is missing required
	// fields or has the wrong shape. Consumers drop the update and keep
	// the prior canonical value.
	ErrSchema = errors.New("malformed remote payload")
)
