package bubbletea

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/concierge"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders the notice for a turn that did not finalize.
type ErrorBlock struct {
	phase   concierge.Phase
	message string
	styles  Styles
}

// NewErrorBlock creates an ErrorBlock for a turn that ended in phase with
// the given error text.
func NewErrorBlock(phase concierge.Phase, message string, styles Styles) *ErrorBlock {
	return &ErrorBlock{phase: phase, message: message, styles: styles}
}

// ErrorText returns the notice text for err.
func ErrorText(err error) string {
	if errors.Is(err, concierge.ErrStreamInterrupted) {
		return "The response took too long and was interrupted. Please try again."
	}
	return err.Error()
}

func (b *ErrorBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ErrorBlock) View(width int) string {
	label := "Error: "
	if b.phase == concierge.PhaseInterrupted {
		label = "Interrupted: "
	}
	content := b.styles.Error.Render(label + b.message)
	return lipgloss.NewStyle().Width(width).Render(content)
}

var _ MessageBlock = (*NoticeBlock)(nil)

// NoticeBlock renders a muted one-line notice such as a cancelled turn.
type NoticeBlock struct {
	text   string
	styles Styles
}

// NewNoticeBlock creates a NoticeBlock.
func NewNoticeBlock(text string, styles Styles) *NoticeBlock {
	return &NoticeBlock{text: text, styles: styles}
}

func (b *NoticeBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *NoticeBlock) View(width int) string {
	return lipgloss.NewStyle().Width(width).Render(b.styles.Muted.Render(b.text))
}
