package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/concierge"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the concierge TUI.
//
// The model owns the phase Machine and the Turn accumulator of the running
// turn. Stream callbacks and watchdog interrupts reach Update through a
// single inbox channel, so all state changes happen on the program
// goroutine.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	streamer    concierge.Streamer
	machine     *concierge.Machine
	machineOpts []concierge.MachineOption
	session     *concierge.Session
	saver       SessionSaver
	logger      *slog.Logger
	now         func() time.Time
	theme       concierge.Theme
	styles      Styles

	blocks       []MessageBlock
	live         *liveTurn
	turnID       int
	watched      *atomic.Int64 // turn guarded by the watchdog
	suggestions  *SuggestionsBlock
	reconnecting string

	inbox chan tea.Msg
	err   error
	ready bool
}

// liveTurn is the turn currently streaming.
type liveTurn struct {
	id     int
	acc    *concierge.Turn
	block  *TurnBlock
	cancel context.CancelFunc
}

// Option configures a [Model].
type Option func(*Model)

// WithMachineOptions configures the phase Machine, e.g. its clock and
// watchdog duration.
func WithMachineOptions(opts ...concierge.MachineOption) Option {
	return func(m *Model) { m.machineOpts = append(m.machineOpts, opts...) }
}

// WithSessionSaver persists the session after every completed turn.
func WithSessionSaver(s SessionSaver) Option {
	return func(m *Model) { m.saver = s }
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithNow sets the function used to timestamp messages.
func WithNow(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// New creates a new TUI Model that sends messages through streamer and
// records them in session.
func New(streamer concierge.Streamer, session *concierge.Session, theme concierge.Theme, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about products, hotels, flights..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = concierge.MaxMessageLength

	m := Model{
		Input:    ti,
		streamer: streamer,
		session:  session,
		theme:    theme,
		styles:   NewStyles(theme),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		inbox:    make(chan tea.Msg, inboxSize),
		watched:  new(atomic.Int64),
	}
	for _, o := range opts {
		o(&m)
	}

	inbox, logger, watched := m.inbox, m.logger, m.watched
	onChange := func(c concierge.Change) {
		logger.Debug("phase change", "from", c.From, "to", c.To, "action", fmt.Sprintf("%T", c.Action))
		if _, ok := c.Action.(concierge.ActionStreamInterrupted); ok && c.To == concierge.PhaseInterrupted {
			// Never dropped, even when the inbox is full.
			msg := InterruptedMsg{Turn: int(watched.Load())}
			go func() { inbox <- msg }()
		}
	}
	m.machine = concierge.NewMachine(append(m.machineOpts, concierge.WithChangeHandler(onChange))...)
	return m
}

// Running returns whether a turn is currently streaming.
func (m Model) Running() bool { return m.live != nil }

// Phase returns the phase of the current turn.
func (m Model) Phase() concierge.Phase { return m.machine.Phase() }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listen(m.inbox))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamEventMsg:
		var cmd tea.Cmd
		m, cmd = m.handleEvent(msg)
		return m, tea.Batch(cmd, listen(m.inbox))

	case StreamErrorMsg:
		var cmd tea.Cmd
		m, cmd = m.handleError(msg)
		return m, tea.Batch(cmd, listen(m.inbox))

	case ReconnectingMsg:
		if m.current(msg.Turn) {
			m.logger.Info("reconnecting", "attempt", msg.Attempt, "max_attempts", msg.MaxAttempts)
			m.reconnecting = fmt.Sprintf("Reconnecting (%d/%d)…", msg.Attempt, msg.MaxAttempts)
		}
		return m, listen(m.inbox)

	case ReconnectedMsg:
		if m.current(msg.Turn) {
			m.reconnecting = ""
		}
		return m, listen(m.inbox)

	case InterruptedMsg:
		var cmd tea.Cmd
		if m.current(msg.Turn) && m.interrupted() {
			m, cmd = m.finishInterrupted()
		}
		return m, tea.Batch(cmd, listen(m.inbox))

	case streamEndedMsg:
		var cmd tea.Cmd
		switch {
		case !m.current(msg.turn):
		case m.interrupted():
			m, cmd = m.finishInterrupted()
		case m.machine.IsStreaming():
			// The streamer returned without a terminal callback.
			m.live.acc.Fail(concierge.ErrUnexpectedEnd)
			m.machine.Dispatch(concierge.ActionReceiveError{Err: concierge.ErrUnexpectedEnd})
			m, cmd = m.finishTurn()
		}
		return m, tea.Batch(cmd, listen(m.inbox))

	case sessionSavedMsg:
		if msg.err != nil {
			m.logger.Error("save session", "error", msg.err)
			m.err = fmt.Errorf("save session: %w", msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		if m.live == nil {
			return m, nil
		}
		_, cmd := m.live.block.Update(msg)
		m = m.refresh()
		return m, cmd
	}

	// Pass remaining messages to sub-components.
	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if m.live == nil {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	// Output area.
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")

	// Status line.
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	// Input area.
	b.WriteString(m.Input.View())

	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := msg.Height - inputH - statusHeight - borderHeight

	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.renderSession()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m = m.refresh()

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.live != nil {
			m = m.cancelTurn()
			cmd := m.Input.Focus()
			return m, cmd
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.live != nil {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)

	case tea.KeyTab:
		if m.live == nil && m.suggestions != nil {
			m.Input.SetValue(m.suggestions.Next())
			m.Input.CursorEnd()
			m = m.refresh()
		}
		return m, nil
	}

	// When idle, pass keys to both textinput (for typing) and viewport
	// (for scrolling). Only forward non-character keys to viewport to avoid
	// conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	if m.live == nil {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	req := concierge.ChatRequest{Message: text, SessionID: m.session.ID}
	if err := req.Validate(); err != nil {
		m.err = err
		return m, nil
	}

	if m.machine.Phase().IsTerminal() {
		m.machine.Dispatch(concierge.ActionReset{})
	}
	m.turnID++
	m.watched.Store(int64(m.turnID))
	m.machine.Dispatch(concierge.ActionSendMessage{})

	m.Input.SetValue("")
	m.err = nil
	m.reconnecting = ""
	m.suggestions = nil

	now := m.now()
	m.session.Append(now, concierge.UserMessage{Text: text, Timestamp: now})
	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))

	ctx, cancel := context.WithCancel(context.Background())
	m.live = &liveTurn{
		id:     m.turnID,
		acc:    &concierge.Turn{},
		block:  NewTurnBlock(m.theme, m.styles),
		cancel: cancel,
	}
	m.blocks = append(m.blocks, m.live.block)
	m = m.refresh()

	m.Input.Blur()
	m.logger.Info("turn started", "turn", m.turnID, "session", m.session.ID)

	return m, tea.Batch(
		startStream(ctx, m.streamer, req, m.turnID, m.inbox),
		m.live.block.Tick(),
	)
}

// current reports whether turn is the turn currently streaming.
func (m Model) current(turn int) bool {
	return m.live != nil && m.live.id == turn
}

// interrupted reports whether the watchdog ended the live turn.
func (m Model) interrupted() bool {
	return m.live != nil && m.machine.Phase() == concierge.PhaseInterrupted
}

// finishInterrupted commits the live turn after a watchdog interrupt.
func (m Model) finishInterrupted() (Model, tea.Cmd) {
	m.logger.Warn("turn interrupted by watchdog", "turn", m.live.id)
	m.live.acc.Fail(concierge.ErrStreamInterrupted)
	return m.finishTurn()
}

// handleEvent routes a stream event to the Machine, the accumulator and the
// live block. Events of stale turns are dropped. If the watchdog already
// interrupted the turn, the first late event finishes it.
func (m Model) handleEvent(msg StreamEventMsg) (Model, tea.Cmd) {
	if !m.current(msg.Turn) {
		return m, nil
	}
	if m.interrupted() {
		return m.finishInterrupted()
	}
	if !m.machine.IsStreaming() {
		return m, nil
	}
	t := m.live
	t.acc.Apply(msg.Event)

	switch e := msg.Event.(type) {
	case concierge.EventToken:
		m.machine.Dispatch(concierge.ActionReceiveContent{Token: e.Text})
		t.block.Append(e.Text)
	case concierge.EventStatus:
		m.machine.Dispatch(concierge.ActionReceiveStatus{Text: e.Text})
		t.block.SetStatus(e.Text)
	case concierge.EventClear:
		t.block.Reset()
	case concierge.EventArtifact:
		blocks := concierge.NormalizeBlocks(e.Blocks)
		m.machine.Dispatch(concierge.ActionReceiveArtifact{Blocks: blocks})
		t.block.AddBlocks(blocks)
	case concierge.EventError:
		m.machine.Dispatch(concierge.ActionReceiveError{Err: t.acc.Err()})
		return m.finishTurn()
	case concierge.EventDone:
		m.machine.Dispatch(concierge.ActionReceiveDone{Result: e.Result})
		return m.finishTurn()
	}
	m = m.refresh()
	return m, nil
}

func (m Model) handleError(msg StreamErrorMsg) (Model, tea.Cmd) {
	if !m.current(msg.Turn) {
		return m, nil
	}
	if m.interrupted() {
		return m.finishInterrupted()
	}
	if !m.machine.IsStreaming() || errors.Is(msg.Err, context.Canceled) {
		return m, nil
	}
	m.live.acc.Fail(msg.Err)
	m.machine.Dispatch(concierge.ActionReceiveError{Err: msg.Err})
	return m.finishTurn()
}

// finishTurn commits the live turn to the session once the Machine reached
// a terminal phase, and saves the session.
func (m Model) finishTurn() (Model, tea.Cmd) {
	t := m.live
	m.live = nil
	t.cancel()

	phase := m.machine.Phase()
	now := m.now()
	msgs := t.acc.Messages(phase, now)
	if err := t.acc.Err(); err != nil {
		m.logger.Warn("turn failed", "turn", t.id, "phase", phase, "error", err)
		main := msgs[0].(concierge.AssistantMessage)
		main.Error = ErrorText(err)
		msgs[0] = main
	} else {
		m.logger.Info("turn finalized", "turn", t.id)
	}
	m.session.Append(now, msgs...)

	for i, msg := range msgs {
		am := msg.(concierge.AssistantMessage)
		if i == 0 {
			t.block.Finish(am)
			continue
		}
		m.blocks = append(m.blocks, NewMessageBlock(am, m.theme, m.styles))
	}
	if s := t.acc.Suggestions(); len(s) > 0 && phase == concierge.PhaseFinalized {
		m.suggestions = NewSuggestionsBlock(s, m.styles)
	}
	m.reconnecting = ""
	m = m.refresh()

	cmd := m.Input.Focus()
	return m, tea.Batch(cmd, m.save())
}

// cancelTurn abandons the live turn. Its partial text stays on screen but
// is not recorded in the session.
func (m Model) cancelTurn() Model {
	t := m.live
	m.live = nil
	t.cancel()
	m.machine.Dispatch(concierge.ActionReset{})
	m.logger.Info("turn cancelled", "turn", t.id)

	t.block.Finish(concierge.AssistantMessage{Text: t.acc.Text(), Blocks: t.acc.Blocks()})
	m.blocks = append(m.blocks, NewNoticeBlock("Cancelled.", m.styles))
	m.reconnecting = ""
	return m.refresh()
}

func (m Model) save() tea.Cmd {
	if m.saver == nil {
		return nil
	}
	snapshot := *m.session
	snapshot.Messages = slices.Clone(m.session.Messages)
	saver := m.saver
	return func() tea.Msg {
		return sessionSavedMsg{err: saver.Save(context.Background(), snapshot)}
	}
}

// renderSession creates blocks from existing session messages.
func (m Model) renderSession() Model {
	var last concierge.AssistantMessage
	for _, msg := range m.session.Messages {
		switch msg := msg.(type) {
		case concierge.UserMessage:
			m.blocks = append(m.blocks, NewUserMessageBlock(msg.Text, m.styles))
		case concierge.AssistantMessage:
			m.blocks = append(m.blocks, NewMessageBlock(msg, m.theme, m.styles))
			last = msg
		}
	}
	if len(last.Suggestions) > 0 && last.Phase == concierge.PhaseFinalized {
		m.suggestions = NewSuggestionsBlock(last.Suggestions, m.styles)
	}
	return m
}

func (m Model) refresh() Model {
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 && m.suggestions == nil {
		return ""
	}
	width := m.Viewport.Width
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.View(width))
	}
	if m.suggestions != nil {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.suggestions.View(width))
	}
	return b.String()
}

func (m Model) statusLine() string {
	switch {
	case m.err != nil:
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	case m.reconnecting != "":
		return m.styles.Status.Render(m.reconnecting)
	case m.live != nil:
		return m.styles.Muted.Render("Waiting for response... Ctrl+C to cancel")
	case m.suggestions != nil:
		return m.styles.Muted.Render("Tab for a suggestion, Enter to send, Ctrl+C to quit")
	default:
		return m.styles.Muted.Render("Enter to send, Ctrl+C to quit")
	}
}
