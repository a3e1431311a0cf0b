package concierge

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a key is absent from a Store.
	ErrNotFound = errors.New("not found")

	// ErrStreamInterrupted indicates the watchdog ended a turn that never
	// received a terminal event.
	ErrStreamInterrupted = errors.New("stream interrupted: no response received in time")

	// ErrUnexpectedEnd indicates the response body ended before a done or
	// error frame arrived.
	ErrUnexpectedEnd = errors.New("stream ended unexpectedly")
)

// ServerError is an error reported in-band by the backend for one turn.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}
