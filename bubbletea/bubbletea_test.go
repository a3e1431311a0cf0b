package bubbletea_test

import (
	"context"
	"regexp"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/concierge"
	bt "github.com/fwojciec/concierge/bubbletea"
	"github.com/fwojciec/concierge/mock"
	"github.com/stretchr/testify/require"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// stripANSI removes terminal escape sequences.
func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, s concierge.Streamer, opts ...bt.Option) bt.Model {
	t.Helper()
	return initModelWithSession(t, s, &concierge.Session{ID: "sess-1"}, opts...)
}

// initModelWithSession creates a model over an existing session.
func initModelWithSession(t *testing.T, s concierge.Streamer, session *concierge.Session, opts ...bt.Option) bt.Model {
	t.Helper()
	m := bt.New(s, session, concierge.DefaultTheme(), opts...)
	return updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// send types text and presses Enter.
func send(t *testing.T, m bt.Model, text string) bt.Model {
	t.Helper()
	m.Input.SetValue(text)
	return updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// event wraps evt for turn.
func event(turn int, evt concierge.Event) bt.StreamEventMsg {
	return bt.StreamEventMsg{Turn: turn, Event: evt}
}

// nopStreamer never responds.
func nopStreamer() *mock.Streamer {
	return &mock.Streamer{StreamChatFn: func(context.Context, concierge.ChatRequest, concierge.Handler) {}}
}
