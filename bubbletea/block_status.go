package bubbletea

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*StatusBlock)(nil)

// placeholderText is shown before the backend reports any progress.
const placeholderText = "Thinking…"

// StatusBlock shows a spinner with the latest progress message while a turn
// has no assistant text yet.
type StatusBlock struct {
	spinner spinner.Model
	text    string
	styles  Styles
}

// NewStatusBlock creates a StatusBlock showing the placeholder text.
func NewStatusBlock(styles Styles) *StatusBlock {
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Status))
	return &StatusBlock{spinner: s, text: placeholderText, styles: styles}
}

// SetText replaces the progress message.
func (b *StatusBlock) SetText(text string) {
	if text == "" {
		text = placeholderText
	}
	b.text = text
}

// Tick starts the spinner animation.
func (b *StatusBlock) Tick() tea.Cmd {
	return b.spinner.Tick
}

func (b *StatusBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	var cmd tea.Cmd
	b.spinner, cmd = b.spinner.Update(msg)
	return b, cmd
}

func (b *StatusBlock) View(width int) string {
	line := b.spinner.View() + " " + b.styles.Status.Render(b.text)
	return lipgloss.NewStyle().Width(width).Render(line)
}
