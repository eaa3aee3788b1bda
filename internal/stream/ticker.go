package stream

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// DefaultPercent is used when a ticker carries no price change percent.
const DefaultPercent = "+0.00%"

// Ticker is the normalized per-market ticker shape.
type Ticker struct {
	Last               string `json:"last"`
	High               string `json:"high"`
	Low                string `json:"low"`
	Volume             string `json:"volume"`
	Amount             string `json:"amount"`
	AvgPrice           string `json:"avg_price"`
	Open               string `json:"open"`
	PriceChangePercent string `json:"price_change_percent"`
}

// HasValidLast reports whether Last is a non-zero number.
func (t Ticker) HasValidLast() bool {
	if t.Last == "" {
		return false
	}
	d, err := decimal.NewFromString(t.Last)
	if err != nil {
		return false
	}
	return !d.IsZero()
}

// flexString accepts a JSON string, number, or bool and keeps its text.
// null, objects, arrays, and absent fields decode to "".
type flexString struct {
	text    string
	literal bool
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = flexString{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString{text: s}
	case data[0] == '{' || data[0] == '[':
		*f = flexString{}
	default:
		*f = flexString{text: string(data), literal: true}
	}
	return nil
}

// falsy treats empty strings, false, and unquoted zero numbers as missing.
// A quoted "0" is a value.
func (f flexString) falsy() bool {
	if f.text == "" {
		return true
	}
	if !f.literal {
		return false
	}
	if f.text == "false" {
		return true
	}
	v, err := strconv.ParseFloat(f.text, 64)
	return err == nil && v == 0
}

func (f flexString) or(fallback string) string {
	if f.falsy() {
		return fallback
	}
	return f.text
}

// RawTicker is an individual ticker frame.
type RawTicker struct {
	Type               string     `json:"type"`
	ProductID          string     `json:"productId"`
	Price              flexString `json:"price"`
	Close24h           flexString `json:"close24h"`
	High24h            flexString `json:"high24h"`
	Low24h             flexString `json:"low24h"`
	Volume24h          flexString `json:"volume24h"`
	Open24h            flexString `json:"open24h"`
	PriceChangePercent flexString `json:"priceChangePercent"`
}

// IsTicker reports whether the frame has the individual ticker shape.
func (r RawTicker) IsTicker() bool {
	return r.Type == "ticker" && r.ProductID != ""
}

// NormalizeOne converts an individual ticker frame to a single-entry mapping.
func NormalizeOne(r RawTicker) map[string]Ticker {
	last := r.Price.or("")
	if last == "" {
		last = r.Close24h.or("0")
	}
	volume := r.Volume24h.or("0")

	return map[string]Ticker{
		r.ProductID: {
			Last:               last,
			High:               r.High24h.or("0"),
			Low:                r.Low24h.or("0"),
			Volume:             volume,
			Amount:             volume,
			AvgPrice:           r.Price.or("0"),
			Open:               r.Open24h.or("0"),
			PriceChangePercent: r.PriceChangePercent.or(DefaultPercent),
		},
	}
}

type envelopeTicker struct {
	Last               *flexString `json:"last"`
	High               *flexString `json:"high"`
	Low                *flexString `json:"low"`
	Volume             *flexString `json:"volume"`
	Amount             *flexString `json:"amount"`
	AvgPrice           *flexString `json:"avg_price"`
	Open               *flexString `json:"open"`
	PriceChangePercent *flexString `json:"price_change_percent"`
}

func valueOr(f *flexString, fallback string) string {
	if f == nil || f.text == "" {
		return fallback
	}
	return f.text
}

// NormalizeAll decodes a global tickers envelope payload, a mapping from
// market id to ticker object, into the fixed ticker shape.
func NormalizeAll(payload json.RawMessage) (map[string]Ticker, error) {
	var raw map[string]envelopeTicker
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	tickers := make(map[string]Ticker, len(raw))
	for market, t := range raw {
		tickers[market] = Ticker{
			Last:               valueOr(t.Last, "0"),
			High:               valueOr(t.High, "0"),
			Low:                valueOr(t.Low, "0"),
			Volume:             valueOr(t.Volume, "0"),
			Amount:             valueOr(t.Amount, "0"),
			AvgPrice:           valueOr(t.AvgPrice, "0"),
			Open:               valueOr(t.Open, "0"),
			PriceChangePercent: valueOr(t.PriceChangePercent, DefaultPercent),
		}
	}
	return tickers, nil
}
