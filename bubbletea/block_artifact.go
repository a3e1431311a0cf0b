package bubbletea

import (
	"encoding/json"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/concierge"
)

var _ MessageBlock = (*ArtifactBlock)(nil)

// ArtifactBlock renders one normalized rich block.
type ArtifactBlock struct {
	block  concierge.Block
	styles Styles
}

// NewArtifactBlock creates an ArtifactBlock.
func NewArtifactBlock(b concierge.Block, styles Styles) *ArtifactBlock {
	return &ArtifactBlock{block: b, styles: styles}
}

// Block returns the rendered block.
func (b *ArtifactBlock) Block() concierge.Block { return b.block }

func (b *ArtifactBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ArtifactBlock) View(width int) string {
	if width <= 0 {
		width = 80
	}
	body, ok := b.render(width)
	if !ok {
		return b.unsupported(width)
	}
	if b.block.Title == "" {
		return body
	}
	title := b.styles.Title.Render(truncate(b.block.Title, width))
	return title + "\n" + body
}

func (b *ArtifactBlock) render(width int) (string, bool) {
	var data any
	if len(b.block.Data) == 0 || json.Unmarshal(b.block.Data, &data) != nil || data == nil {
		return "", false
	}
	st := b.styles
	switch b.block.Type {
	case concierge.BlockCarousel, concierge.BlockProductCards, concierge.BlockProductRecommendations:
		return renderCards(records(data, "products", "items", "recommendations"), productCard, width, st)
	case concierge.BlockHotels:
		return renderCards(records(data, "hotels", "items"), hotelCard, width, st)
	case concierge.BlockFlights:
		return renderFlights(records(data, "flights", "items", "options"), width, st)
	case concierge.BlockComparison:
		return renderComparison(data, width, st)
	case concierge.BlockItinerary:
		return renderItinerary(data, width, st)
	case concierge.BlockAffiliateLinks:
		return renderLinks(records(data, "links", "items"), width, st)
	case concierge.BlockProductReview:
		return renderReview(records(data, "reviews", "items"), width, st)
	default:
		return "", false
	}
}

func (b *ArtifactBlock) unsupported(width int) string {
	label := "[unsupported block]"
	if t := b.block.Type; t != concierge.BlockUnknown && t != "" {
		label = "[unsupported block: " + t + "]"
	}
	return lipgloss.NewStyle().Width(width).Render(b.styles.Muted.Render(label))
}

// joinLines drops empty lines.
func joinLines(lines ...string) string {
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
