package stream

import (
	"bytes"
	"slices"

	json "github.com/goccy/go-json"

	"github.com/rickgao/ranger/internal/errs"
)

// Entry is one routing key of an envelope with its raw payload.
// Ticker is set when Kind is KindTicker.
type Entry struct {
	Route
	Payload json.RawMessage
	Ticker  *RawTicker
}

// Frame is a decoded inbound message. Exactly one of Ticker or Entries is
// meaningful: Ticker for a direct ticker frame, Entries for an envelope.
type Frame struct {
	Ticker  *RawTicker
	Entries []Entry
}

// SuccessPayload is the value of a "success" routing key.
type SuccessPayload struct {
	Message string   `json:"message"`
	Streams []string `json:"streams"`
}

// Subscription acknowledgement messages.
const (
	MessageSubscribed   = "subscribed"
	MessageUnsubscribed = "unsubscribed"
)

// ParseFrame decodes a raw inbound message.
//
// A top-level object of the ticker shape is a direct ticker frame. Any other
// object is an envelope; its keys are classified and returned sorted so that
// routing is deterministic. A value of ticker shape under a key that matches
// no market pattern is reclassified as KindTicker.
func ParseFrame(raw []byte) (Frame, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Frame{}, errs.New("stream.ParseFrame", errs.CodeParse, errs.WithCause(err))
	}
	if envelope == nil {
		return Frame{}, errs.New("stream.ParseFrame", errs.CodeParse, errs.WithMessage("frame is not an object"))
	}

	if _, ok := envelope["type"]; ok {
		if t, ok := decodeTicker(raw); ok {
			return Frame{Ticker: t}, nil
		}
	}

	keys := make([]string, 0, len(envelope))
	for key := range envelope {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	frame := Frame{Entries: make([]Entry, 0, len(keys))}
	for _, key := range keys {
		entry := Entry{Route: Classify(key), Payload: envelope[key]}
		if !entry.Kind.MarketScoped() {
			if t, ok := decodeTicker(entry.Payload); ok {
				entry.Kind = KindTicker
				entry.Ticker = t
			}
		}
		frame.Entries = append(frame.Entries, entry)
	}
	return frame, nil
}

func decodeTicker(data []byte) (*RawTicker, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' || !bytes.Contains(data, []byte(`"productId"`)) {
		return nil, false
	}
	var t RawTicker
	if err := json.Unmarshal(data, &t); err != nil || !t.IsTicker() {
		return nil, false
	}
	return &t, true
}
