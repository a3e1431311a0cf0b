package mock_test

import (
	"testing"
	"time"

	"github.com/fwojciec/concierge/mock"
	"github.com/stretchr/testify/assert"
)

func TestClock(t *testing.T) {
	t.Parallel()

	t.Run("fires due timers in deadline order", func(t *testing.T) {
		t.Parallel()
		var c mock.Clock
		var got []string
		c.AfterFunc(2*time.Second, func() { got = append(got, "b") })
		c.AfterFunc(time.Second, func() { got = append(got, "a") })
		c.AfterFunc(5*time.Second, func() { got = append(got, "c") })

		c.Advance(3 * time.Second)

		assert.Equal(t, []string{"a", "b"}, got)
		assert.Equal(t, 3*time.Second, c.Elapsed())
		assert.Equal(t, 1, c.Pending())
	})

	t.Run("stopped timer does not fire", func(t *testing.T) {
		t.Parallel()
		var c mock.Clock
		fired := false
		timer := c.AfterFunc(time.Second, func() { fired = true })

		assert.True(t, timer.Stop())
		assert.False(t, timer.Stop())
		c.Advance(time.Minute)

		assert.False(t, fired)
		assert.Equal(t, 0, c.Pending())
	})

	t.Run("Stop after firing reports false", func(t *testing.T) {
		t.Parallel()
		var c mock.Clock
		timer := c.AfterFunc(time.Second, func() {})
		c.Advance(time.Second)
		assert.False(t, timer.Stop())
	})

	t.Run("callback can schedule within the same advance", func(t *testing.T) {
		t.Parallel()
		var c mock.Clock
		var at []time.Duration
		c.AfterFunc(time.Second, func() {
			at = append(at, c.Elapsed())
			c.AfterFunc(time.Second, func() { at = append(at, c.Elapsed()) })
		})

		c.Advance(5 * time.Second)

		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, at)
	})
}
