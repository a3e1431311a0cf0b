package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// StatusLine exports statusLine for testing.
func StatusLine(m Model) string {
	return m.statusLine()
}

// StreamEnded builds the message sent after StreamChat returns.
func StreamEnded(turn int) any {
	return streamEndedMsg{turn: turn}
}

// Inbox returns the channel stream messages are delivered through.
func Inbox(m Model) chan tea.Msg {
	return m.inbox
}
