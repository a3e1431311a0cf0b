package backend

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fwojciec/concierge"
)

// frameMarker prefixes every frame on the wire.
const frameMarker = "data:"

// maxFrameSize bounds a single frame. Done frames carrying many blocks can
// be large; longer lines are skipped.
const maxFrameSize = 4 << 20

// decoder parses newline-delimited frames from a response body into
// semantic events. Each attempt gets a fresh decoder; no buffer is shared
// across retries.
type decoder struct {
	r      *bufio.Reader
	logger *slog.Logger
}

func newDecoder(body io.Reader, logger *slog.Logger) *decoder {
	return &decoder{r: bufio.NewReaderSize(body, 64<<10), logger: logger}
}

// Next returns the next event. It returns io.EOF when the body ends.
// Lines without the frame marker, oversized lines, frames that are not
// valid JSON, and frames with no recognised key are skipped.
func (d *decoder) Next() (concierge.Event, error) {
	for {
		line, size, err := d.readLine()
		if err != nil {
			return nil, err
		}
		if size > maxFrameSize {
			d.logger.Warn("skipping oversized frame", "size", size, "limit", maxFrameSize)
			continue
		}
		payload, ok := strings.CutPrefix(line, frameMarker)
		if !ok {
			// Blank separators, comments (":") and unknown fields.
			continue
		}
		payload = strings.TrimPrefix(payload, " ")
		if payload == "" {
			continue
		}

		var f frame
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			d.logger.Warn("skipping malformed frame", "error", err, "frame", truncate(payload, 200))
			continue
		}
		evt, err := f.event()
		if err != nil {
			d.logger.Warn("skipping undecodable frame", "error", err, "frame", truncate(payload, 200))
			continue
		}
		if evt != nil {
			return evt, nil
		}
	}
}

// readLine returns the next line without its terminator, and the line's
// size in bytes. The content of a line longer than maxFrameSize is
// consumed and discarded. A final line without a terminator is returned
// before io.EOF.
func (d *decoder) readLine() (string, int, error) {
	var line []byte
	size := 0
	for {
		chunk, err := d.r.ReadSlice('\n')
		size += len(chunk)
		if size <= maxFrameSize+2 {
			line = append(line, chunk...)
		} else {
			line = nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && (!errors.Is(err, io.EOF) || size == 0) {
			return "", 0, err
		}
		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		if size > maxFrameSize+2 {
			return "", size, nil
		}
		return string(line), len(line), nil
	}
}

// frame is one decoded JSON object. Keys are kept raw so presence can be
// checked and the done payload forwarded verbatim.
type frame map[string]json.RawMessage

// event maps the frame to a semantic event by the keys it carries. It
// returns a nil event for frames such as heartbeats that carry none.
func (f frame) event() (concierge.Event, error) {
	if raw, ok := f["error"]; ok && string(raw) != "null" {
		return concierge.EventError{Message: errorMessage(raw)}, nil
	}
	if f.flag("done") {
		return concierge.EventDone{Result: f.result()}, nil
	}
	if f.flag("clear") {
		return concierge.EventClear{}, nil
	}
	if raw, ok := f["token"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("token: %w", err)
		}
		return concierge.EventToken{Text: text}, nil
	}
	if raw, ok := f["status"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		return concierge.EventStatus{Text: text}, nil
	}
	if raw, ok := f["ui_blocks"]; ok {
		var blocks []concierge.RawBlock
		if err := json.Unmarshal(raw, &blocks); err != nil {
			return nil, fmt.Errorf("ui_blocks: %w", err)
		}
		return concierge.EventArtifact{Blocks: blocks}, nil
	}
	return nil, nil
}

func (f frame) flag(key string) bool {
	var b bool
	raw, ok := f[key]
	return ok && json.Unmarshal(raw, &b) == nil && b
}

// result converts a done frame into a Result. Typed fields are decoded on a
// best-effort basis; Fields always carries the full frame.
func (f frame) result() concierge.Result {
	r := concierge.Result{
		Itinerary:        f["itinerary"],
		CreateNewMessage: f.flag("create_new_message"),
		Fields:           map[string]json.RawMessage(f),
	}
	_ = json.Unmarshal(f["status"], &r.Status)
	_ = json.Unmarshal(f["next_suggestions"], &r.NextSuggestions)
	_ = json.Unmarshal(f["ui_blocks"], &r.UIBlocks)
	r.UserID = scalarString(f["user_id"])
	return r
}

// errorMessage extracts a message from an error value that may be a string,
// an object with a message or detail field, or anything else.
func errorMessage(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		switch {
		case obj.Message != "":
			return obj.Message
		case obj.Detail != "":
			return obj.Detail
		}
	}
	return string(raw)
}

// scalarString renders a JSON string or number as text.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
