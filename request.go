package concierge

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the longest message, in runes, the backend accepts.
const MaxMessageLength = 4000

// ChatRequest is one outgoing user message.
type ChatRequest struct {
	Message   string
	SessionID string // empty = backend starts a new session
}

// Validate checks the request before it is sent. The stream client does not
// call it; callers validate at the point of input.
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message must not be empty: %w", ErrValidation)
	}
	if n := utf8.RuneCountInString(r.Message); n > MaxMessageLength {
		return fmt.Errorf("message is %d characters, limit is %d: %w", n, MaxMessageLength, ErrValidation)
	}
	return nil
}
