package concierge

import (
	"bytes"
	"strings"
	"time"
)

// Turn accumulates the events of one assistant response. The phase machine
// deliberately holds no text or blocks; the UI keeps them in a Turn.
//
// Turn is not safe for concurrent use.
type Turn struct {
	text        strings.Builder
	status      string
	blocks      []Block
	trailing    []Block // done-payload blocks destined for a separate message
	suggestions []string
	err         error
}

// Apply folds one event into the turn.
func (t *Turn) Apply(evt Event) {
	switch e := evt.(type) {
	case EventToken:
		t.text.WriteString(e.Text)
	case EventStatus:
		t.status = e.Text
	case EventClear:
		t.text.Reset()
	case EventArtifact:
		t.blocks = append(t.blocks, NormalizeBlocks(e.Blocks)...)
	case EventError:
		t.err = &ServerError{Message: e.Message}
	case EventDone:
		t.complete(e.Result)
	}
}

// Fail records a terminal error that did not arrive as an event, such as an
// exhausted retry or a watchdog interrupt.
func (t *Turn) Fail(err error) {
	t.err = err
}

func (t *Turn) complete(r Result) {
	blocks := NormalizeBlocks(r.UIBlocks)
	if len(r.Itinerary) > 0 && !bytes.Equal(r.Itinerary, []byte("null")) {
		blocks = append(blocks, Block{Type: BlockItinerary, Data: r.Itinerary})
	}
	if r.CreateNewMessage {
		t.trailing = append(t.trailing, blocks...)
	} else {
		t.blocks = append(t.blocks, blocks...)
	}
	t.suggestions = r.NextSuggestions
}

// Text returns the assistant text accumulated since the last clear.
func (t *Turn) Text() string { return t.text.String() }

// Status returns the most recent progress message.
func (t *Turn) Status() string { return t.status }

// Blocks returns the normalized blocks of the main message.
func (t *Turn) Blocks() []Block { return t.blocks }

// Suggestions returns the follow-up prompts from the done payload.
func (t *Turn) Suggestions() []string { return t.suggestions }

// Err returns the terminal error, if any.
func (t *Turn) Err() error { return t.err }

// Messages converts the turn into session messages. It returns one message,
// or two when the done payload asked for its blocks in a new message.
// Suggestions are attached to the last message.
func (t *Turn) Messages(phase Phase, now time.Time) []Message {
	main := AssistantMessage{
		Text:      t.text.String(),
		Blocks:    t.blocks,
		Phase:     phase,
		Timestamp: now,
	}
	if t.err != nil {
		main.Error = t.err.Error()
	}
	if len(t.trailing) == 0 {
		main.Suggestions = t.suggestions
		return []Message{main}
	}
	extra := AssistantMessage{
		Blocks:      t.trailing,
		Suggestions: t.suggestions,
		Phase:       phase,
		Timestamp:   now,
	}
	return []Message{main, extra}
}
