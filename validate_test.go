package concierge_test

import (
	"testing"

	"github.com/fwojciec/concierge"
	"github.com/stretchr/testify/assert"
)

func TestValidateMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     concierge.Message
		wantErr string
	}{
		{
			name: "user message",
			msg:  concierge.UserMessage{Text: "hotels in Lisbon"},
		},
		{
			name:    "blank user message",
			msg:     concierge.UserMessage{Text: "  \n"},
			wantErr: "user message text must not be empty",
		},
		{
			name: "finalized assistant message",
			msg:  concierge.AssistantMessage{Text: "hi", Phase: concierge.PhaseFinalized},
		},
		{
			name: "interrupted assistant message with error",
			msg:  concierge.AssistantMessage{Phase: concierge.PhaseInterrupted, Error: "too slow"},
		},
		{
			name:    "streaming phase",
			msg:     concierge.AssistantMessage{Text: "hi", Phase: concierge.PhaseReceivingContent},
			wantErr: `phase "receiving_content" is not terminal`,
		},
		{
			name:    "finalized with error",
			msg:     concierge.AssistantMessage{Phase: concierge.PhaseFinalized, Error: "boom"},
			wantErr: "must not carry an error",
		},
		{
			name: "untyped block",
			msg: concierge.AssistantMessage{
				Phase:  concierge.PhaseFinalized,
				Blocks: []concierge.Block{{Type: concierge.BlockHotels}, {}},
			},
			wantErr: "block 1 has no type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := concierge.ValidateMessage(tt.msg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, concierge.ErrValidation)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSession_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		s := concierge.Session{ID: "s", Messages: []concierge.Message{
			concierge.UserMessage{Text: "hi"},
			concierge.AssistantMessage{Text: "hello", Phase: concierge.PhaseFinalized},
		}}
		assert.NoError(t, s.Validate())
	})

	t.Run("empty id", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, concierge.Session{}.Validate(), concierge.ErrValidation)
	})

	t.Run("invalid message is located", func(t *testing.T) {
		t.Parallel()
		s := concierge.Session{ID: "s", Messages: []concierge.Message{
			concierge.UserMessage{Text: "hi"},
			concierge.AssistantMessage{Phase: concierge.PhaseIdle},
		}}
		err := s.Validate()
		assert.ErrorIs(t, err, concierge.ErrValidation)
		assert.ErrorContains(t, err, "message 1:")
	})
}
