package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*SuggestionsBlock)(nil)

// SuggestionsBlock lists follow-up prompts after a finalized turn. The
// selected suggestion is highlighted.
type SuggestionsBlock struct {
	items    []string
	selected int // -1 = none
	styles   Styles
}

// NewSuggestionsBlock creates a SuggestionsBlock with nothing selected.
func NewSuggestionsBlock(items []string, styles Styles) *SuggestionsBlock {
	return &SuggestionsBlock{items: items, selected: -1, styles: styles}
}

// Next selects the following suggestion, wrapping around, and returns it.
func (b *SuggestionsBlock) Next() string {
	if len(b.items) == 0 {
		return ""
	}
	b.selected = (b.selected + 1) % len(b.items)
	return b.items[b.selected]
}

func (b *SuggestionsBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *SuggestionsBlock) View(width int) string {
	lines := []string{b.styles.Muted.Render("Suggestions (Tab to use):")}
	for i, s := range b.items {
		line := "  " + truncate(s, max(width-4, 1))
		if i == b.selected {
			line = b.styles.Accent.Render("› " + truncate(s, max(width-4, 1)))
		}
		lines = append(lines, line)
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
