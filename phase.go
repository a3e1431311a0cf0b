package concierge

// Phase is the rendering phase of the current turn. Exactly one phase is
// active at a time.
type Phase string

const (
	PhaseIdle             Phase = "idle"              // No turn in progress.
	PhasePlaceholder      Phase = "placeholder"       // Message sent, nothing received yet.
	PhaseReceivingStatus  Phase = "receiving_status"  // Only progress messages so far.
	PhaseReceivingContent Phase = "receiving_content" // Assistant text is streaming.
	PhaseFinalized        Phase = "finalized"         // Done frame received.
	PhaseErrored          Phase = "errored"           // Turn failed.
	PhaseInterrupted      Phase = "interrupted"       // Watchdog gave up waiting.
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{
	PhaseIdle,
	PhasePlaceholder,
	PhaseReceivingStatus,
	PhaseReceivingContent,
	PhaseFinalized,
	PhaseErrored,
	PhaseInterrupted,
}

// IsTerminal reports whether p ends a turn. Terminal phases only leave on
// ActionReset.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseFinalized, PhaseErrored, PhaseInterrupted:
		return true
	default:
		return false
	}
}

// IsStreaming reports whether a turn is in progress in phase p.
func IsStreaming(p Phase) bool {
	switch p {
	case PhasePlaceholder, PhaseReceivingStatus, PhaseReceivingContent:
		return true
	default:
		return false
	}
}

// Action is a sealed interface for inputs to the phase state machine.
// The unexported marker method prevents external implementations.
type Action interface {
	action()
}

// ActionSendMessage starts a turn.
type ActionSendMessage struct{}

func (ActionSendMessage) action() {}

// ActionReceiveStatus records a progress message.
type ActionReceiveStatus struct {
	Text string
}

func (ActionReceiveStatus) action() {}

// ActionReceiveContent records a chunk of assistant text.
type ActionReceiveContent struct {
	Token string
}

func (ActionReceiveContent) action() {}

// ActionReceiveArtifact records rich blocks. It never changes the phase.
type ActionReceiveArtifact struct {
	Blocks []Block
}

func (ActionReceiveArtifact) action() {}

// ActionReceiveDone finalizes the turn.
type ActionReceiveDone struct {
	Result Result
}

func (ActionReceiveDone) action() {}

// ActionReceiveError fails the turn.
type ActionReceiveError struct {
	Err error
}

func (ActionReceiveError) action() {}

// ActionStreamInterrupted is dispatched by the watchdog.
type ActionStreamInterrupted struct{}

func (ActionStreamInterrupted) action() {}

// ActionReset returns to idle from any phase.
type ActionReset struct{}

func (ActionReset) action() {}

// Interface compliance checks.
var (
	_ Action = ActionSendMessage{}
	_ Action = ActionReceiveStatus{}
	_ Action = ActionReceiveContent{}
	_ Action = ActionReceiveArtifact{}
	_ Action = ActionReceiveDone{}
	_ Action = ActionReceiveError{}
	_ Action = ActionStreamInterrupted{}
	_ Action = ActionReset{}
)

// Transition returns the phase that follows p after action a. It is pure and
// total: combinations without a defined transition return p unchanged.
//
// Terminal phases only respond to ActionReset. SendMessage is ignored outside
// idle so a second send cannot race the running turn. Status text is ignored
// once content has started. Artifacts never change the phase.
func Transition(p Phase, a Action) Phase {
	if _, ok := a.(ActionReset); ok {
		return PhaseIdle
	}
	if p.IsTerminal() {
		return p
	}
	switch a.(type) {
	case ActionSendMessage:
		if p == PhaseIdle {
			return PhasePlaceholder
		}
	case ActionReceiveStatus:
		if p == PhasePlaceholder {
			return PhaseReceivingStatus
		}
	case ActionReceiveContent:
		if p == PhasePlaceholder || p == PhaseReceivingStatus {
			return PhaseReceivingContent
		}
	case ActionReceiveDone:
		return PhaseFinalized
	case ActionReceiveError:
		return PhaseErrored
	case ActionStreamInterrupted:
		if IsStreaming(p) {
			return PhaseInterrupted
		}
	}
	return p
}
