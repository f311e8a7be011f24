package zenforce

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrBackendUnavailable indicates the backend could not be reached at all
	// (connection refused, DNS failure, timeout on the initiating request).
	ErrBackendUnavailable = errors.New("zenforce: backend unavailable")

	// ErrNoBody indicates a streaming endpoint answered without a response
	// body, so there is nothing to decode.
	ErrNoBody = errors.New("zenforce: response carried no body")

	// ErrEmptyQuestion indicates Ask was called with a blank question.
	// The backend rejects these with a 400; the client refuses them locally.
	ErrEmptyQuestion = errors.New("zenforce: question cannot be empty")

	// ErrStreamClosed indicates Next was called after Close.
	ErrStreamClosed = errors.New("zenforce: stream already closed")
)

// APIError represents a non-success HTTP response from the backend.
type APIError struct {
	Endpoint   string // Request path, e.g. "/reconcile"
	StatusCode int    // HTTP status code
	Message    string // Response body or status text
	Err        error  // Wrapped sentinel, if any
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("zenforce: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("zenforce: %s returned status %d", e.Endpoint, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StreamError represents a transport failure while reading an open SSE body.
// Events delivered before the failure remain valid; nothing after it is.
type StreamError struct {
	Endpoint string // The stream's originating path
	Err      error  // Underlying read error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("zenforce: reading %s stream: %v", e.Endpoint, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsOffline reports whether an error means the backend should be treated as
// unreachable for gating purposes. Both outright transport failures and
// non-success probe statuses qualify.
func IsOffline(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBackendUnavailable) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsTransport reports whether an error came from the byte transport
// (initiation or mid-stream) as opposed to local misuse of the client.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrNoBody) {
		return true
	}
	var streamErr *StreamError
	return errors.As(err, &streamErr)
}
