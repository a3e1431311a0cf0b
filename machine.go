package concierge

import (
	"sync"
	"time"
)

// DefaultWatchdog is how long a turn may run without a terminal action
// before the Machine interrupts it.
const DefaultWatchdog = 120 * time.Second

// Clock schedules watchdog callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback scheduled by a Clock.
type Timer interface {
	Stop() bool
}

// SystemClock is a Clock backed by the time package.
type SystemClock struct{}

// AfterFunc calls time.AfterFunc.
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Change describes one dispatched action and its effect on the phase.
type Change struct {
	From   Phase
	To     Phase
	Action Action
}

// Machine holds the phase of the current turn and owns its watchdog.
//
// Sending a message out of idle arms the watchdog. Any transition to a
// non-streaming phase disarms it. If the watchdog fires first, the Machine
// dispatches ActionStreamInterrupted on the Clock's goroutine.
//
// Machine is safe for concurrent use.
type Machine struct {
	clock    Clock
	watchdog time.Duration
	onChange func(Change)

	mu    sync.Mutex
	phase Phase
	timer Timer
	gen   uint64 // incremented on every arm and disarm; stale timers compare unequal
}

// MachineOption configures a [Machine].
type MachineOption func(*Machine)

// WithClock sets the clock used for the watchdog. Tests pass a virtual clock.
func WithClock(c Clock) MachineOption {
	return func(m *Machine) { m.clock = c }
}

// WithWatchdog sets the watchdog duration.
func WithWatchdog(d time.Duration) MachineOption {
	return func(m *Machine) { m.watchdog = d }
}

// WithChangeHandler sets a callback invoked after every dispatch, including
// dispatches made by the watchdog. It is called without the Machine's lock
// held and may call back into the Machine.
func WithChangeHandler(h func(Change)) MachineOption {
	return func(m *Machine) { m.onChange = h }
}

// NewMachine creates an idle [Machine].
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		clock:    SystemClock{},
		watchdog: DefaultWatchdog,
		phase:    PhaseIdle,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// IsStreaming reports whether a turn is in progress.
func (m *Machine) IsStreaming() bool {
	return IsStreaming(m.Phase())
}

// Dispatch applies a and returns the resulting phase.
func (m *Machine) Dispatch(a Action) Phase {
	m.mu.Lock()
	c := m.apply(a)
	m.mu.Unlock()
	m.notify(c)
	return c.To
}

// apply must be called with m.mu held.
func (m *Machine) apply(a Action) Change {
	c := Change{From: m.phase, To: Transition(m.phase, a), Action: a}
	m.phase = c.To

	_, send := a.(ActionSendMessage)
	switch {
	case send && c.From == PhaseIdle && c.To != PhaseIdle:
		m.arm()
	case !IsStreaming(c.To):
		m.disarm()
	}
	return c
}

func (m *Machine) arm() {
	m.disarm()
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.watchdog, func() { m.fire(gen) })
}

func (m *Machine) disarm() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}

func (m *Machine) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	c := m.apply(ActionStreamInterrupted{})
	m.mu.Unlock()
	m.notify(c)
}

func (m *Machine) notify(c Change) {
	if m.onChange != nil {
		m.onChange(c)
	}
}
