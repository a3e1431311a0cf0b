// Package bubbletea provides a Bubble Tea TUI for the concierge chat client.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/concierge"
)

// SessionSaver persists the session after each completed turn.
type SessionSaver interface {
	Save(ctx context.Context, s concierge.Session) error
}

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown; when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// StreamEventMsg delivers one stream event of turn Turn to the model.
type StreamEventMsg struct {
	Turn  int
	Event concierge.Event
}

// StreamErrorMsg reports the terminal error of turn Turn.
type StreamErrorMsg struct {
	Turn int
	Err  error
}

// ReconnectingMsg reports that turn Turn is about to retry.
type ReconnectingMsg struct {
	Turn        int
	Attempt     int
	MaxAttempts int
}

// ReconnectedMsg reports that a retry of turn Turn was accepted.
type ReconnectedMsg struct {
	Turn int
}

// InterruptedMsg reports that the watchdog interrupted turn Turn.
type InterruptedMsg struct {
	Turn int
}

// streamEndedMsg is sent after StreamChat returns.
type streamEndedMsg struct {
	turn int
}

// sessionSavedMsg carries the result of a background save.
type sessionSavedMsg struct {
	err error
}

// inboxSize bounds the number of undelivered stream messages.
const inboxSize = 256

// startStream runs one turn in a goroutine. Callbacks are forwarded to the
// inbox in order; once ctx is cancelled, pending callbacks are dropped.
func startStream(ctx context.Context, s concierge.Streamer, req concierge.ChatRequest, turn int, inbox chan<- tea.Msg) tea.Cmd {
	return func() tea.Msg {
		send := func(msg tea.Msg) {
			select {
			case inbox <- msg:
			case <-ctx.Done():
			}
		}
		event := func(evt concierge.Event) {
			send(StreamEventMsg{Turn: turn, Event: evt})
		}
		s.StreamChat(ctx, req, concierge.Handler{
			OnToken:  func(text string) { event(concierge.EventToken{Text: text}) },
			OnStatus: func(text string) { event(concierge.EventStatus{Text: text}) },
			OnClear:  func() { event(concierge.EventClear{}) },
			OnArtifact: func(blocks []concierge.RawBlock) {
				event(concierge.EventArtifact{Blocks: blocks})
			},
			OnComplete: func(r concierge.Result) { event(concierge.EventDone{Result: r}) },
			OnError:    func(err error) { send(StreamErrorMsg{Turn: turn, Err: err}) },
			OnReconnecting: func(attempt, maxAttempts int) {
				send(ReconnectingMsg{Turn: turn, Attempt: attempt, MaxAttempts: maxAttempts})
			},
			OnReconnected: func() { send(ReconnectedMsg{Turn: turn}) },
		})
		send(streamEndedMsg{turn: turn})
		return nil
	}
}

// listen waits for the next message from the inbox.
func listen(inbox <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-inbox
	}
}
