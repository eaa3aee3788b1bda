package router

import (
	"time"

	"github.com/rickgao/ranger/internal/model"
	"github.com/rickgao/ranger/internal/stream"
)

// RouterConfig holds configuration for the Message Router and its sinks.
type RouterConfig struct {
	// Initial sink buffer sizes
	OrderbookBufferSize int // Default: 1024
	TradeBufferSize     int // Default: 1024
	TickerBufferSize    int // Default: 256
	KlineBufferSize     int // Default: 256
	UserBufferSize      int // Default: 256

	// MaxBufferSize bounds every sink but the order book; the oldest event is
	// dropped beyond it. 0 = unbounded.
	MaxBufferSize int // Default: 65536

	// OrderNotices enables created/done/rejected notices for private orders.
	OrderNotices bool
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		OrderbookBufferSize: 1024,
		TradeBufferSize:     1024,
		TickerBufferSize:    256,
		KlineBufferSize:     256,
		UserBufferSize:      256,
		MaxBufferSize:       65536,
	}
}

// Event is a typed result of routing one inbound entry.
type Event interface {
	// Kind names the event for logs and metrics.
	Kind() string
}

// OrderBookReplace is a full order-book update for the selected market.
type OrderBookReplace struct {
	Market     string
	Depth      model.Depth
	ReceivedAt time.Time
}

// OrderBookSnapshot re-anchors the order book of the selected market.
type OrderBookSnapshot struct {
	Market     string
	Depth      model.Depth
	ReceivedAt time.Time
}

// OrderBookIncrement is an in-sequence delta for the selected market.
type OrderBookIncrement struct {
	Market     string
	Depth      model.Depth
	Sequence   int64
	ReceivedAt time.Time
}

// ReconnectRequested asks the session to tear the connection down and
// reopen it after an order-book sequence gap.
type ReconnectRequested struct {
	Market string
	Err    error
}

// KlinePush carries candles for one market and period.
type KlinePush struct {
	Market string
	Period string
	Klines []model.Kline
}

// TradesPush carries public trades for one market.
type TradesPush struct {
	Market     string
	Trades     []model.PublicTrade
	ReceivedAt time.Time
}

// TickerUpdate carries normalized tickers keyed by market id, after the
// ticker cache overlay.
type TickerUpdate struct {
	Tickers    map[string]stream.Ticker
	ReceivedAt time.Time
}

// SubscriptionsChanged is a server acknowledgement of the subscribed topics.
type SubscriptionsChanged struct {
	Message string
	Topics  []string
}

// UserOrderUpdate is a private order update.
type UserOrderUpdate struct {
	Order model.Order
}

// UserTradePush is a private fill.
type UserTradePush struct {
	Trade model.PrivateTrade
}

// WalletUpdate carries balances keyed by currency.
type WalletUpdate struct {
	Balances model.Balances
}

// WalletAddressUpdate carries a deposit address assignment.
type WalletAddressUpdate struct {
	Address model.DepositAddress
}

// NoticeKind classifies an order notice.
type NoticeKind string

const (
	NoticeCreated  NoticeKind = "created"
	NoticeDone     NoticeKind = "done"
	NoticeRejected NoticeKind = "rejected"
)

// OrderNotice is a user-facing notification derived from an order update.
type OrderNotice struct {
	Notice NoticeKind
	Order  model.Order
}

func (OrderBookReplace) Kind() string     { return "orderbook_replace" }
func (OrderBookSnapshot) Kind() string    { return "orderbook_snapshot" }
func (OrderBookIncrement) Kind() string   { return "orderbook_increment" }
func (ReconnectRequested) Kind() string   { return "reconnect_requested" }
func (KlinePush) Kind() string            { return "kline_push" }
func (TradesPush) Kind() string           { return "trades_push" }
func (TickerUpdate) Kind() string         { return "ticker_update" }
func (SubscriptionsChanged) Kind() string { return "subscriptions_changed" }
func (UserOrderUpdate) Kind() string      { return "user_order_update" }
func (UserTradePush) Kind() string        { return "user_trade_push" }
func (WalletUpdate) Kind() string         { return "wallet_update" }
func (WalletAddressUpdate) Kind() string  { return "wallet_address_update" }
func (OrderNotice) Kind() string          { return "order_notice" }
