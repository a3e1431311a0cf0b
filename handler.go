package concierge

import "context"

// Streamer sends one chat message and reports the assistant response through
// the handler. StreamChat blocks until the turn concludes and never returns
// an error: every outcome is delivered as exactly one OnError or OnComplete
// call.
type Streamer interface {
	StreamChat(ctx context.Context, req ChatRequest, h Handler)
}

// Handler is the callback set for one turn. OnToken, OnError and OnComplete
// are expected; the rest are optional and skipped when nil.
//
// Callbacks run synchronously on the decoding goroutine in frame order.
// They must not block.
type Handler struct {
	OnToken        func(text string)
	OnStatus       func(text string)
	OnClear        func()
	OnArtifact     func(blocks []RawBlock)
	OnError        func(err error)
	OnComplete     func(result Result)
	OnReconnecting func(attempt, maxAttempts int)
	OnReconnected  func()
}

// Handle routes a decoded event to its callback.
func (h Handler) Handle(evt Event) {
	switch e := evt.(type) {
	case EventToken:
		if h.OnToken != nil {
			h.OnToken(e.Text)
		}
	case EventStatus:
		if h.OnStatus != nil {
			h.OnStatus(e.Text)
		}
	case EventClear:
		if h.OnClear != nil {
			h.OnClear()
		}
	case EventArtifact:
		if h.OnArtifact != nil {
			h.OnArtifact(e.Blocks)
		}
	case EventError:
		h.Fail(&ServerError{Message: e.Message})
	case EventDone:
		if h.OnComplete != nil {
			h.OnComplete(e.Result)
		}
	}
}

// Fail reports a terminal error.
func (h Handler) Fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Reconnecting reports that a retry is about to start.
func (h Handler) Reconnecting(attempt, maxAttempts int) {
	if h.OnReconnecting != nil {
		h.OnReconnecting(attempt, maxAttempts)
	}
}

// Reconnected reports that a retried request has been accepted.
func (h Handler) Reconnected() {
	if h.OnReconnected != nil {
		h.OnReconnected()
	}
}
