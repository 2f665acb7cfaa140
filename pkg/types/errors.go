package types

import "errors"

// Error taxonomy. Only ErrInvalidRequest and ErrIndexUnavailable surface as
// hard failures; everything downstream degrades to a fallback response.
var (
	// ErrInvalidRequest marks malformed or out-of-range input, rejected
	// before any external call is made.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrIndexUnavailable marks a passage index that could not be
	// constructed: missing or corrupt local file, or an unreachable remote
	// backend after the one permitted fallback attempt.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrEmbeddingFailure marks a failed or timed-out embedding provider
	// call. Requests degrade rather than fail on it.
	ErrEmbeddingFailure = errors.New("embedding failure")
)
