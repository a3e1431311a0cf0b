package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/concierge"
	bt "github.com/fwojciec/concierge/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUserMessageBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(concierge.DefaultTheme())

	t.Run("renders prompt prefix and text", func(t *testing.T) {
		t.Parallel()
		view := stripANSI(bt.NewUserMessageBlock("Hotels in Lisbon", styles).View(80))
		assert.True(t, strings.HasPrefix(view, "> Hotels in Lisbon"))
	})

	t.Run("wraps long text under the prompt", func(t *testing.T) {
		t.Parallel()
		long := "short words that keep going and going beyond the viewport width easily"
		view := stripANSI(bt.NewUserMessageBlock(long, styles).View(30))
		lines := strings.Split(view, "\n")
		assert.Greater(t, len(lines), 1)
		assert.Contains(t, view, "easily")
		for _, l := range lines[1:] {
			assert.True(t, strings.HasPrefix(l, "  "), "continuation should be indented: %q", l)
		}
	})
}
