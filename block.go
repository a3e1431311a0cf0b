package concierge

import (
	"encoding/json"
	"fmt"
)

// Canonical block types.
const (
	BlockCarousel               = "carousel"
	BlockProductCards           = "product_cards"
	BlockProductReview          = "product_review"
	BlockProductRecommendations = "product_recommendations"
	BlockAffiliateLinks         = "affiliate_links"
	BlockHotels                 = "hotels"
	BlockFlights                = "flights"
	BlockItinerary              = "itinerary"
	BlockComparison             = "comparison"
	BlockUnknown                = "unknown"
)

// legacyBlockTypes maps legacy block_type names to canonical types.
var legacyBlockTypes = map[string]string{
	"carousel":                BlockCarousel,
	"product_cards":           BlockProductCards,
	"product_review":          BlockProductReview,
	"product_recommendations": BlockProductRecommendations,
	"affiliate_links":         BlockAffiliateLinks,
	"hotel_cards":             BlockHotels,
	"flight_cards":            BlockFlights,
	"itinerary":               BlockItinerary,
}

// RawBlock is a rich content block as it arrives on the wire. Two shapes
// coexist: canonical {type, data, title?} and legacy {block_type, payload,
// title?}. Data and Payload are nil only when the key is absent; a JSON null
// decodes to the literal "null".
type RawBlock struct {
	Type      string          `json:"type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	BlockType string          `json:"block_type,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Title     string          `json:"title,omitempty"`
}

// Block is the canonical shape every renderer consumes.
type Block struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Title string          `json:"title,omitempty"`
}

// Raw returns b in canonical wire shape.
func (b Block) Raw() RawBlock {
	return RawBlock{Type: b.Type, Data: b.Data, Title: b.Title}
}

// Decode unmarshals the block data into v.
func (b Block) Decode(v any) error {
	if len(b.Data) == 0 {
		return fmt.Errorf("block %q has no data", b.Type)
	}
	if err := json.Unmarshal(b.Data, v); err != nil {
		return fmt.Errorf("decode %s block: %w", b.Type, err)
	}
	return nil
}

// NormalizeBlocks maps each raw block to exactly one canonical block,
// preserving order. It never fails: blocks matching neither shape become
// BlockUnknown with no data.
func NormalizeBlocks(raw []RawBlock) []Block {
	blocks := make([]Block, len(raw))
	for i, rb := range raw {
		blocks[i] = normalizeBlock(rb)
	}
	return blocks
}

func normalizeBlock(rb RawBlock) Block {
	switch {
	case rb.Type != "" && rb.Data != nil:
		return Block{Type: rb.Type, Data: rb.Data, Title: rb.Title}
	case rb.BlockType != "":
		typ, ok := legacyBlockTypes[rb.BlockType]
		if !ok {
			typ = rb.BlockType
		}
		return Block{Type: typ, Data: rb.Payload, Title: rb.Title}
	default:
		return Block{Type: BlockUnknown, Title: rb.Title}
	}
}
