package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmbeddingUnavailable is returned only after every transport tier has
// been exhausted for an embedding call.
var ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

// ErrGenerationUnavailable is the generation-side equivalent.
var ErrGenerationUnavailable = errors.New("generation service unavailable")

// TransportError is a network or process failure reaching the backend.
// These are retried across fallback tiers before being surfaced.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendError means the backend was reachable but returned an error
// payload. Not retried within a tier, surfaced immediately.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error: %s", e.Message)
}

// NotFound reports whether the backend rejected the request because the
// named model does not exist under that name.
func (e *BackendError) NotFound() bool { return e.Status == http.StatusNotFound }

// ParseError is malformed JSON from a transport. Terminal for that call.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("malformed backend response: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }
