package concierge

// Event is a sealed interface representing one decoded stream frame.
// Transport failures are not events; they surface through Handler.OnError
// once retries are exhausted.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventToken is an incremental chunk of assistant text.
type EventToken struct {
	Text string
}

func (EventToken) event() {}

// EventStatus is a transient progress message such as "Searching...".
type EventStatus struct {
	Text string
}

func (EventStatus) event() {}

// EventClear tells the consumer to discard the text accumulated so far in
// the current turn.
type EventClear struct{}

func (EventClear) event() {}

// EventArtifact carries rich content blocks produced mid-turn.
type EventArtifact struct {
	Blocks []RawBlock
}

func (EventArtifact) event() {}

// EventError is a fatal, server-reported error for the turn.
type EventError struct {
	Message string
}

func (EventError) event() {}

// EventDone terminates the turn successfully.
type EventDone struct {
	Result Result
}

func (EventDone) event() {}

// Interface compliance checks.
var (
	_ Event = EventToken{}
	_ Event = EventStatus{}
	_ Event = EventClear{}
	_ Event = EventArtifact{}
	_ Event = EventError{}
	_ Event = EventDone{}
)

// IsTerminal reports whether evt ends a turn.
func IsTerminal(evt Event) bool {
	switch evt.(type) {
	case EventError, EventDone:
		return true
	default:
		return false
	}
}
