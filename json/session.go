// Package json encodes cached sessions and persists them in a
// concierge.Store.
package json

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/concierge"
)

// envelope is the v1 wire format for a persisted session.
type envelope struct {
	Version   int          `json:"version"`
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Messages  []messageDTO `json:"messages"`
}

// MarshalSession serializes a Session to JSON in v1 envelope format.
func MarshalSession(s concierge.Session) ([]byte, error) {
	env := envelope{
		Version:   1,
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Messages:  make([]messageDTO, len(s.Messages)),
	}
	for i, msg := range s.Messages {
		dto, err := marshalMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		env.Messages[i] = dto
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalSession deserializes a Session from JSON in v1 envelope format.
func UnmarshalSession(data []byte) (concierge.Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return concierge.Session{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return concierge.Session{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	msgs := make([]concierge.Message, len(env.Messages))
	for i, dto := range env.Messages {
		msg, err := unmarshalMessage(dto)
		if err != nil {
			return concierge.Session{}, fmt.Errorf("message %d: %w", i, err)
		}
		msgs[i] = msg
	}
	s := concierge.Session{
		ID:        env.ID,
		Title:     env.Title,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
		Messages:  msgs,
	}
	if err := s.Validate(); err != nil {
		return concierge.Session{}, fmt.Errorf("invalid session: %w", err)
	}
	return s, nil
}
