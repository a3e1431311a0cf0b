package mock

import (
	"sync"
	"time"

	"github.com/fwojciec/concierge"
)

// Interface compliance checks.
var (
	_ concierge.Clock = (*Clock)(nil)
	_ concierge.Timer = (*Timer)(nil)
)

// Clock is a virtual concierge.Clock. Time only moves on Advance, and due
// callbacks run synchronously on the goroutine calling Advance.
type Clock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*Timer
}

// Timer is a callback scheduled on a virtual Clock.
type Timer struct {
	clock   *Clock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// AfterFunc schedules f to run once d of virtual time has elapsed.
func (c *Clock) AfterFunc(d time.Duration, f func()) concierge.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &Timer{clock: c, at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop cancels the timer. It reports false if the timer already fired or
// was already stopped.
func (t *Timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves virtual time forward by d, firing due timers in deadline
// order. Callbacks may schedule or stop timers.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()
		next.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// Elapsed returns the virtual time elapsed since the clock was created.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending returns the number of timers that have neither fired nor stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// nextDue must be called with c.mu held.
func (c *Clock) nextDue(target time.Duration) *Timer {
	var next *Timer
	for _, t := range c.timers {
		if t.stopped || t.fired || t.at > target {
			continue
		}
		if next == nil || t.at < next.at {
			next = t
		}
	}
	return next
}
