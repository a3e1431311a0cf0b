package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/concierge"
)

var _ MessageBlock = (*TurnBlock)(nil)

// TurnBlock renders one assistant message: a spinner until text arrives,
// then the markdown text followed by rich blocks and, for a turn that did
// not finalize, an error notice.
type TurnBlock struct {
	text      *AssistantTextBlock
	status    *StatusBlock
	artifacts []*ArtifactBlock
	notice    MessageBlock
	styles    Styles
	live      bool
}

// NewTurnBlock creates a TurnBlock for a turn that is still streaming.
func NewTurnBlock(theme concierge.Theme, styles Styles) *TurnBlock {
	return &TurnBlock{
		text:   NewAssistantTextBlock(theme),
		status: NewStatusBlock(styles),
		styles: styles,
		live:   true,
	}
}

// NewMessageBlock creates a TurnBlock for a committed assistant message.
func NewMessageBlock(msg concierge.AssistantMessage, theme concierge.Theme, styles Styles) *TurnBlock {
	b := &TurnBlock{text: NewAssistantTextBlock(theme), styles: styles}
	b.text.Append(msg.Text)
	b.AddBlocks(msg.Blocks)
	b.setNotice(msg.Phase, msg.Error)
	return b
}

// Append adds streamed text.
func (b *TurnBlock) Append(token string) { b.text.Append(token) }

// Reset discards streamed text.
func (b *TurnBlock) Reset() { b.text.Reset() }

// SetStatus replaces the progress message shown before text arrives.
func (b *TurnBlock) SetStatus(text string) {
	if b.status != nil {
		b.status.SetText(text)
	}
}

// AddBlocks appends normalized rich blocks.
func (b *TurnBlock) AddBlocks(blocks []concierge.Block) {
	for _, blk := range blocks {
		b.artifacts = append(b.artifacts, NewArtifactBlock(blk, b.styles))
	}
}

// Tick starts the spinner of a live block.
func (b *TurnBlock) Tick() tea.Cmd {
	if !b.live || b.status == nil {
		return nil
	}
	return b.status.Tick()
}

// Finish stops the spinner and replaces the content with the committed
// message.
func (b *TurnBlock) Finish(msg concierge.AssistantMessage) {
	b.live = false
	b.status = nil
	if b.text.Text() != msg.Text {
		b.text.Reset()
		b.text.Append(msg.Text)
	}
	b.artifacts = nil
	b.AddBlocks(msg.Blocks)
	b.setNotice(msg.Phase, msg.Error)
}

func (b *TurnBlock) setNotice(phase concierge.Phase, message string) {
	if message == "" {
		return
	}
	b.notice = NewErrorBlock(phase, message, b.styles)
}

func (b *TurnBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if !b.live || b.status == nil {
		return b, nil
	}
	var cmd tea.Cmd
	_, cmd = b.status.Update(msg)
	return b, cmd
}

func (b *TurnBlock) View(width int) string {
	var parts []string
	if text := b.text.View(width); strings.TrimSpace(text) != "" {
		parts = append(parts, strings.Trim(text, "\n"))
	} else if b.live && b.status != nil {
		parts = append(parts, b.status.View(width))
	}
	for _, a := range b.artifacts {
		parts = append(parts, a.View(width))
	}
	if b.notice != nil {
		parts = append(parts, b.notice.View(width))
	}
	return strings.Join(parts, "\n\n")
}
