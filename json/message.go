package json

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/concierge"
)

// messageDTO is the JSON representation of a Message with a type discriminator.
type messageDTO struct {
	Type        string     `json:"type"`
	Text        string     `json:"text,omitempty"`
	Blocks      []blockDTO `json:"blocks,omitempty"`
	Suggestions []string   `json:"suggestions,omitempty"`
	Phase       *string    `json:"phase,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// blockDTO is the JSON representation of a normalized Block.
type blockDTO struct {
	Type  string           `json:"type"`
	Data  *json.RawMessage `json:"data,omitempty"`
	Title string           `json:"title,omitempty"`
}

func marshalMessage(msg concierge.Message) (messageDTO, error) {
	switch m := msg.(type) {
	case concierge.UserMessage:
		return messageDTO{
			Type:      "user",
			Text:      m.Text,
			Timestamp: m.Timestamp,
		}, nil
	case concierge.AssistantMessage:
		phase := string(m.Phase)
		dto := messageDTO{
			Type:        "assistant",
			Text:        m.Text,
			Blocks:      marshalBlocks(m.Blocks),
			Suggestions: m.Suggestions,
			Phase:       &phase,
			Timestamp:   m.Timestamp,
		}
		if m.Error != "" {
			dto.Error = &m.Error
		}
		return dto, nil
	default:
		return messageDTO{}, fmt.Errorf("unknown message type: %T", msg)
	}
}

func unmarshalMessage(dto messageDTO) (concierge.Message, error) {
	switch dto.Type {
	case "user":
		return concierge.UserMessage{
			Text:      dto.Text,
			Timestamp: dto.Timestamp,
		}, nil
	case "assistant":
		phase := concierge.PhaseFinalized
		if dto.Phase != nil && *dto.Phase != "" {
			phase = concierge.Phase(*dto.Phase)
		}
		var errText string
		if dto.Error != nil {
			errText = *dto.Error
		}
		return concierge.AssistantMessage{
			Text:        dto.Text,
			Blocks:      unmarshalBlocks(dto.Blocks),
			Suggestions: dto.Suggestions,
			Phase:       phase,
			Error:       errText,
			Timestamp:   dto.Timestamp,
		}, nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", dto.Type)
	}
}

func marshalBlocks(blocks []concierge.Block) []blockDTO {
	if len(blocks) == 0 {
		return nil
	}
	result := make([]blockDTO, len(blocks))
	for i, b := range blocks {
		dto := blockDTO{Type: b.Type, Title: b.Title}
		if b.Data != nil {
			data := b.Data
			dto.Data = &data
		}
		result[i] = dto
	}
	return result
}

func unmarshalBlocks(dtos []blockDTO) []concierge.Block {
	if len(dtos) == 0 {
		return nil
	}
	result := make([]concierge.Block, len(dtos))
	for i, dto := range dtos {
		b := concierge.Block{Type: dto.Type, Title: dto.Title}
		if dto.Data != nil {
			b.Data = *dto.Data
		}
		result[i] = b
	}
	return result
}
