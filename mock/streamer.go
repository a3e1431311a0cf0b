package mock

import (
	"context"

	"github.com/fwojciec/concierge"
)

// Interface compliance check.
var _ concierge.Streamer = (*Streamer)(nil)

// Streamer is a test double for concierge.Streamer.
// StreamChatFn panics when nil to catch missing setup.
type Streamer struct {
	StreamChatFn func(ctx context.Context, req concierge.ChatRequest, h concierge.Handler)
}

// StreamChat delegates to StreamChatFn.
func (s *Streamer) StreamChat(ctx context.Context, req concierge.ChatRequest, h concierge.Handler) {
	s.StreamChatFn(ctx, req, h)
}

// Replay returns a StreamChatFn that delivers events in order and stops at
// the first terminal event.
func Replay(events ...concierge.Event) func(context.Context, concierge.ChatRequest, concierge.Handler) {
	return func(_ context.Context, _ concierge.ChatRequest, h concierge.Handler) {
		for _, evt := range events {
			h.Handle(evt)
			if concierge.IsTerminal(evt) {
				return
			}
		}
	}
}
