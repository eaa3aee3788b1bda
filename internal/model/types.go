package model

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// ErrShortLevel is returned when a price level array has fewer than two entries.
var ErrShortLevel = errors.New("price level needs price and amount")

// -----------------------------------------------------------------------------
// Markets
// -----------------------------------------------------------------------------

// Market is a tradeable pair.
type Market struct {
	ID        string `json:"id" yaml:"id"` // e.g. "btcusdt"
	Name      string `json:"name,omitempty" yaml:"name"`
	BaseUnit  string `json:"base_unit,omitempty" yaml:"base_unit"`
	QuoteUnit string `json:"quote_unit,omitempty" yaml:"quote_unit"`
}

// -----------------------------------------------------------------------------
// Order book
// -----------------------------------------------------------------------------

// PriceLevel is one row of an order book side, encoded on the wire as
// ["price", "amount"].
type PriceLevel struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// UnmarshalJSON decodes ["price", "amount", ...]. Extra entries are ignored.
func (l *PriceLevel) UnmarshalJSON(data []byte) error {
	var raw []decimal.Decimal
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode price level: %w", err)
	}
	if len(raw) < 2 {
		return ErrShortLevel
	}
	l.Price = raw[0]
	l.Amount = raw[1]
	return nil
}

// MarshalJSON encodes the level back to its wire form.
func (l PriceLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{l.Price.String(), l.Amount.String()})
}

// Depth is an order-book payload: a full update, a snapshot or an increment.
// Sequence is nil when the frame carries none.
type Depth struct {
	Asks     []PriceLevel `json:"asks"`
	Bids     []PriceLevel `json:"bids"`
	Sequence *int64       `json:"sequence,omitempty"`
}

// HasSequence reports whether the payload carried a sequence number.
func (d Depth) HasSequence() bool {
	return d.Sequence != nil
}

// -----------------------------------------------------------------------------
// Public market data
// -----------------------------------------------------------------------------

// PublicTrade is one entry of a "{market}.trades" frame.
type PublicTrade struct {
	ID        int64           `json:"tid"`
	TakerType string          `json:"taker_type"` // "buy" or "sell"
	Date      int64           `json:"date"`       // Unix seconds
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Total     decimal.Decimal `json:"total"`
}

// TradesFrame is the payload of a "{market}.trades" routing key.
type TradesFrame struct {
	Trades []PublicTrade `json:"trades"`
}

// Kline is one candle, encoded on the wire as [time, open, high, low, close, volume].
type Kline struct {
	Time   int64
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// UnmarshalJSON decodes the array form of a candle.
func (k *Kline) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode kline: %w", err)
	}
	if len(raw) < 6 {
		return fmt.Errorf("decode kline: want 6 fields, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &k.Time); err != nil {
		return fmt.Errorf("decode kline time: %w", err)
	}
	fields := []*decimal.Decimal{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume}
	for i, dst := range fields {
		if err := json.Unmarshal(raw[i+1], dst); err != nil {
			return fmt.Errorf("decode kline field %d: %w", i+1, err)
		}
	}
	return nil
}

// MarshalJSON encodes the candle back to its array form.
func (k Kline) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		k.Time,
		k.Open.String(),
		k.High.String(),
		k.Low.String(),
		k.Close.String(),
		k.Volume.String(),
	})
}

// -----------------------------------------------------------------------------
// Private user data
// -----------------------------------------------------------------------------

// Order states sent on the private "order" stream.
const (
	OrderStateWait    = "wait"
	OrderStatePending = "pending"
	OrderStateDone    = "done"
	OrderStateReject  = "reject"
	OrderStateCancel  = "cancel"
)

// Order is a private order update.
type Order struct {
	ID              int64           `json:"id"`
	UUID            string          `json:"uuid"`
	Market          string          `json:"market"`
	Side            string          `json:"side"`
	OrdType         string          `json:"ord_type"`
	State           string          `json:"state"`
	Price           decimal.Decimal `json:"price"`
	AvgPrice        decimal.Decimal `json:"avg_price"`
	RemainingVolume decimal.Decimal `json:"remaining_volume"`
	OriginVolume    decimal.Decimal `json:"origin_volume"`
	ExecutedVolume  decimal.Decimal `json:"executed_volume"`
	CreatedAt       string          `json:"created_at"`
	At              int64           `json:"at"` // Unix milliseconds
}

// PrivateTrade is a fill of one of the user's orders.
type PrivateTrade struct {
	ID        int64           `json:"id"`
	Market    string          `json:"market"`
	Side      string          `json:"side"`
	TakerType string          `json:"taker_type"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt string          `json:"created_at"`
}

// Balance is the state of one currency account.
type Balance struct {
	Available decimal.Decimal `json:"available"`
	Hold      decimal.Decimal `json:"hold"`
}

// Balances maps currency code to balance.
type Balances map[string]Balance

// DepositAddress is a deposit address assignment.
type DepositAddress struct {
	UserID   string `json:"userId,omitempty"`
	Currency string `json:"currency"`
	Address  string `json:"address"`
}
