package concierge

import "time"

// Message is a sealed interface representing a conversation message.
// The unexported marker method prevents external implementations.
// Role() returns the message's role without requiring a type switch.
type Message interface {
	isMessage()
	Role() Role
}

// UserMessage represents a message typed by the user.
type UserMessage struct {
	Text      string
	Timestamp time.Time
}

func (UserMessage) isMessage() {}

// Role returns RoleUser.
func (UserMessage) Role() Role { return RoleUser }

// AssistantMessage represents one assistant response, or the trailing part
// of one when the backend asked for blocks in a new message.
type AssistantMessage struct {
	Text        string
	Blocks      []Block
	Suggestions []string
	Phase       Phase  // phase the turn ended in
	Error       string // set when Phase is PhaseErrored or PhaseInterrupted
	Timestamp   time.Time
}

func (AssistantMessage) isMessage() {}

// Role returns RoleAssistant.
func (AssistantMessage) Role() Role { return RoleAssistant }

// Interface compliance checks.
var (
	_ Message = UserMessage{}
	_ Message = AssistantMessage{}
)
