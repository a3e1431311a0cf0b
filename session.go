package concierge

import (
	"time"

	"github.com/google/uuid"
)

// Session is a cached conversation. ID doubles as the backend session id.
type Session struct {
	ID        string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession returns an empty session with a fresh random ID.
func NewSession(now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// titleLength is the number of runes of the first user message kept as the
// session title.
const titleLength = 60

// Append adds messages and, for the first user message, derives the title.
func (s *Session) Append(now time.Time, msgs ...Message) {
	for _, m := range msgs {
		if um, ok := m.(UserMessage); ok && s.Title == "" {
			s.Title = truncateRunes(um.Text, titleLength)
		}
		s.Messages = append(s.Messages, m)
	}
	s.UpdatedAt = now
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// SessionSummary describes a cached session without its messages.
type SessionSummary struct {
	ID        string
	Title     string
	UpdatedAt time.Time
}

// Summary returns the listing entry for s.
func (s Session) Summary() SessionSummary {
	return SessionSummary{ID: s.ID, Title: s.Title, UpdatedAt: s.UpdatedAt}
}
