package concierge

import "encoding/json"

// Result is the payload of a done frame.
//
// Known keys are decoded into typed fields. Fields holds every key of the
// frame verbatim, including ones this client does not interpret.
type Result struct {
	Status           string
	UserID           string
	UIBlocks         []RawBlock
	NextSuggestions  []string
	Itinerary        json.RawMessage
	CreateNewMessage bool
	Fields           map[string]json.RawMessage
}

// Field decodes the verbatim payload key into v. It reports false when the
// key is absent or does not decode.
func (r Result) Field(key string, v any) bool {
	raw, ok := r.Fields[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
