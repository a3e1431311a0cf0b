package concierge_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/concierge"
	"github.com/fwojciec/concierge/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T) (*concierge.Machine, *mock.Clock) {
	t.Helper()
	clock := &mock.Clock{}
	return concierge.NewMachine(concierge.WithClock(clock)), clock
}

func TestMachine_Initial(t *testing.T) {
	t.Parallel()

	m := concierge.NewMachine()
	assert.Equal(t, concierge.PhaseIdle, m.Phase())
	assert.False(t, m.IsStreaming())
}

func TestMachine_Dispatch(t *testing.T) {
	t.Parallel()

	m, _ := newTestMachine(t)

	assert.Equal(t, concierge.PhasePlaceholder, m.Dispatch(concierge.ActionSendMessage{}))
	assert.True(t, m.IsStreaming())
	assert.Equal(t, concierge.PhaseReceivingStatus, m.Dispatch(concierge.ActionReceiveStatus{Text: "Searching"}))
	assert.Equal(t, concierge.PhaseReceivingContent, m.Dispatch(concierge.ActionReceiveContent{Token: "Hi"}))
	assert.Equal(t, concierge.PhaseReceivingContent, m.Dispatch(concierge.ActionReceiveStatus{Text: "late"}))
	assert.Equal(t, concierge.PhaseFinalized, m.Dispatch(concierge.ActionReceiveDone{}))
	assert.False(t, m.IsStreaming())
	assert.Equal(t, concierge.PhaseIdle, m.Dispatch(concierge.ActionReset{}))
}

func TestMachine_Watchdog(t *testing.T) {
	t.Parallel()

	t.Run("fires after exactly the watchdog duration", func(t *testing.T) {
		t.Parallel()

		m, clock := newTestMachine(t)
		m.Dispatch(concierge.ActionSendMessage{})

		clock.Advance(119_999 * time.Millisecond)
		assert.Equal(t, concierge.PhasePlaceholder, m.Phase())

		clock.Advance(time.Millisecond)
		assert.Equal(t, concierge.PhaseInterrupted, m.Phase())
		assert.Zero(t, clock.Pending())
	})

	t.Run("interrupts a turn that is receiving content", func(t *testing.T) {
		t.Parallel()

		m, clock := newTestMachine(t)
		m.Dispatch(concierge.ActionSendMessage{})
		m.Dispatch(concierge.ActionReceiveContent{Token: "partial"})

		clock.Advance(120 * time.Second)
		assert.Equal(t, concierge.PhaseInterrupted, m.Phase())
	})

	for name, action := range map[string]concierge.Action{
		"done":  concierge.ActionReceiveDone{},
		"error": concierge.ActionReceiveError{Err: errors.New("boom")},
		"reset": concierge.ActionReset{},
	} {
		t.Run(name+" disarms the watchdog", func(t *testing.T) {
			t.Parallel()

			m, clock := newTestMachine(t)
			m.Dispatch(concierge.ActionSendMessage{})
			clock.Advance(60 * time.Second)
			want := m.Dispatch(action)

			clock.Advance(150 * time.Second)
			assert.Equal(t, want, m.Phase())
			assert.NotEqual(t, concierge.PhaseInterrupted, m.Phase())
			assert.Zero(t, clock.Pending())
		})
	}

	t.Run("reset is idempotent", func(t *testing.T) {
		t.Parallel()

		m, clock := newTestMachine(t)
		m.Dispatch(concierge.ActionReset{})
		m.Dispatch(concierge.ActionSendMessage{})
		m.Dispatch(concierge.ActionReset{})
		m.Dispatch(concierge.ActionReset{})

		clock.Advance(time.Hour)
		assert.Equal(t, concierge.PhaseIdle, m.Phase())
	})

	t.Run("double send does not rearm", func(t *testing.T) {
		t.Parallel()

		m, clock := newTestMachine(t)
		m.Dispatch(concierge.ActionSendMessage{})
		clock.Advance(100 * time.Second)
		m.Dispatch(concierge.ActionSendMessage{})

		clock.Advance(20 * time.Second)
		assert.Equal(t, concierge.PhaseInterrupted, m.Phase())
	})

	t.Run("timer from a previous turn does not interrupt the next", func(t *testing.T) {
		t.Parallel()

		m, clock := newTestMachine(t)
		m.Dispatch(concierge.ActionSendMessage{})
		clock.Advance(60 * time.Second)
		m.Dispatch(concierge.ActionReset{})
		m.Dispatch(concierge.ActionSendMessage{})

		clock.Advance(61 * time.Second)
		assert.Equal(t, concierge.PhasePlaceholder, m.Phase())

		clock.Advance(59 * time.Second)
		assert.Equal(t, concierge.PhaseInterrupted, m.Phase())
	})

	t.Run("custom duration", func(t *testing.T) {
		t.Parallel()

		clock := &mock.Clock{}
		m := concierge.NewMachine(concierge.WithClock(clock), concierge.WithWatchdog(5*time.Second))
		m.Dispatch(concierge.ActionSendMessage{})

		clock.Advance(5 * time.Second)
		assert.Equal(t, concierge.PhaseInterrupted, m.Phase())
	})
}

func TestMachine_ChangeHandler(t *testing.T) {
	t.Parallel()

	var changes []concierge.Change
	clock := &mock.Clock{}
	m := concierge.NewMachine(
		concierge.WithClock(clock),
		concierge.WithChangeHandler(func(c concierge.Change) { changes = append(changes, c) }),
	)

	m.Dispatch(concierge.ActionSendMessage{})
	clock.Advance(concierge.DefaultWatchdog)

	require.Len(t, changes, 2)
	assert.Equal(t, concierge.Change{
		From:   concierge.PhaseIdle,
		To:     concierge.PhasePlaceholder,
		Action: concierge.ActionSendMessage{},
	}, changes[0])
	assert.Equal(t, concierge.Change{
		From:   concierge.PhasePlaceholder,
		To:     concierge.PhaseInterrupted,
		Action: concierge.ActionStreamInterrupted{},
	}, changes[1])
}

func TestMachine_SystemClock(t *testing.T) {
	t.Parallel()

	m := concierge.NewMachine(concierge.WithWatchdog(10 * time.Millisecond))
	m.Dispatch(concierge.ActionSendMessage{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Dispatch(concierge.ActionReceiveContent{Token: "x"})
			_ = m.IsStreaming()
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return m.Phase() == concierge.PhaseInterrupted
	}, time.Second, 5*time.Millisecond)
}
