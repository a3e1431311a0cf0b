package concierge

import (
	"fmt"
	"strings"
)

// Validate checks a session before it is cached or after it is loaded.
func (s Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id must not be empty: %w", ErrValidation)
	}
	for i, msg := range s.Messages {
		if err := ValidateMessage(msg); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ValidateMessage checks the invariants of a committed message. Assistant
// messages are only committed once their turn reached a terminal phase, and
// only a failed turn carries an error.
func ValidateMessage(msg Message) error {
	switch m := msg.(type) {
	case UserMessage:
		if strings.TrimSpace(m.Text) == "" {
			return fmt.Errorf("%s message text must not be empty: %w", m.Role(), ErrValidation)
		}
	case AssistantMessage:
		if !m.Phase.IsTerminal() {
			return fmt.Errorf("%s message phase %q is not terminal: %w", m.Role(), m.Phase, ErrValidation)
		}
		if m.Error != "" && m.Phase == PhaseFinalized {
			return fmt.Errorf("finalized %s message must not carry an error: %w", m.Role(), ErrValidation)
		}
		for i, b := range m.Blocks {
			if b.Type == "" {
				return fmt.Errorf("block %d has no type: %w", i, ErrValidation)
			}
		}
	default:
		return fmt.Errorf("unknown message type %T: %w", msg, ErrValidation)
	}
	return nil
}
