package router

import (
	"github.com/rickgao/ranger/internal/model"
)

// Sinks are the downstream buffers consumed by state stores. Each receives
// only its own event types.
type Sinks struct {
	OrderBook    *GrowableBuffer[Event] // OrderBookReplace, OrderBookSnapshot, OrderBookIncrement
	Tickers      *GrowableBuffer[TickerUpdate]
	Trades       *GrowableBuffer[TradesPush]
	Klines       *GrowableBuffer[KlinePush]
	OrderHistory *GrowableBuffer[UserOrderUpdate]
	OpenOrders   *GrowableBuffer[UserOrderUpdate] // only orders of the selected market
	UserTrades   *GrowableBuffer[UserTradePush]
	Wallets      *GrowableBuffer[Event] // WalletUpdate, WalletAddressUpdate
	Notices      *GrowableBuffer[OrderNotice]

	notices bool
	open    map[string]struct{} // uuids of orders known to be open
}

// SinkStats contains per-sink buffer statistics.
type SinkStats struct {
	OrderBook    BufferStats `json:"orderbook"`
	Tickers      BufferStats `json:"tickers"`
	Trades       BufferStats `json:"trades"`
	Klines       BufferStats `json:"klines"`
	OrderHistory BufferStats `json:"order_history"`
	OpenOrders   BufferStats `json:"open_orders"`
	UserTrades   BufferStats `json:"user_trades"`
	Wallets      BufferStats `json:"wallets"`
	Notices      BufferStats `json:"notices"`
}

// NewSinks allocates the sink buffers. MaxBufferSize bounds every sink
// except the order book, which never drops: a lost snapshot or increment
// would leave the book torn with no resync.
func NewSinks(cfg RouterConfig) *Sinks {
	maxSize := cfg.MaxBufferSize
	return &Sinks{
		OrderBook:    NewGrowableBuffer[Event](cfg.OrderbookBufferSize),
		Tickers:      NewBoundedBuffer[TickerUpdate](cfg.TickerBufferSize, maxSize),
		Trades:       NewBoundedBuffer[TradesPush](cfg.TradeBufferSize, maxSize),
		Klines:       NewBoundedBuffer[KlinePush](cfg.KlineBufferSize, maxSize),
		OrderHistory: NewBoundedBuffer[UserOrderUpdate](cfg.UserBufferSize, maxSize),
		OpenOrders:   NewBoundedBuffer[UserOrderUpdate](cfg.UserBufferSize, maxSize),
		UserTrades:   NewBoundedBuffer[UserTradePush](cfg.UserBufferSize, maxSize),
		Wallets:      NewBoundedBuffer[Event](cfg.UserBufferSize, maxSize),
		Notices:      NewBoundedBuffer[OrderNotice](cfg.UserBufferSize, maxSize),
		notices:      cfg.OrderNotices,
		open:         make(map[string]struct{}),
	}
}

// Deliver forwards ev to its sink and reports whether a sink took it.
// User orders always reach OrderHistory and reach OpenOrders only when they
// belong to currentMarket. Control events such as ReconnectRequested are
// not delivered.
func (s *Sinks) Deliver(ev Event, currentMarket string) bool {
	switch e := ev.(type) {
	case OrderBookReplace, OrderBookSnapshot, OrderBookIncrement:
		return s.OrderBook.Send(ev)
	case TickerUpdate:
		return s.Tickers.Send(e)
	case TradesPush:
		return s.Trades.Send(e)
	case KlinePush:
		return s.Klines.Send(e)
	case UserOrderUpdate:
		if s.notices {
			if n, ok := s.notice(e.Order); ok {
				s.Notices.Send(n)
			}
		}
		s.track(e.Order)
		sent := s.OrderHistory.Send(e)
		if currentMarket != "" && e.Order.Market == currentMarket {
			sent = s.OpenOrders.Send(e) && sent
		}
		return sent
	case UserTradePush:
		return s.UserTrades.Send(e)
	case WalletUpdate, WalletAddressUpdate:
		return s.Wallets.Send(ev)
	}
	return false
}

// notice derives the notification for an order update, if any. A wait or
// pending order only produces a notice the first time its uuid is seen.
func (s *Sinks) notice(o model.Order) (OrderNotice, bool) {
	switch o.State {
	case model.OrderStateWait, model.OrderStatePending:
		if _, known := s.open[o.UUID]; known && o.UUID != "" {
			return OrderNotice{}, false
		}
		return OrderNotice{Notice: NoticeCreated, Order: o}, true
	case model.OrderStateDone:
		return OrderNotice{Notice: NoticeDone, Order: o}, true
	case model.OrderStateReject:
		return OrderNotice{Notice: NoticeRejected, Order: o}, true
	}
	return OrderNotice{}, false
}

func (s *Sinks) track(o model.Order) {
	if o.UUID == "" {
		return
	}
	switch o.State {
	case model.OrderStateWait, model.OrderStatePending:
		s.open[o.UUID] = struct{}{}
	default:
		delete(s.open, o.UUID)
	}
}

// Stats returns per-sink statistics.
func (s *Sinks) Stats() SinkStats {
	return SinkStats{
		OrderBook:    s.OrderBook.Stats(),
		Tickers:      s.Tickers.Stats(),
		Trades:       s.Trades.Stats(),
		Klines:       s.Klines.Stats(),
		OrderHistory: s.OrderHistory.Stats(),
		OpenOrders:   s.OpenOrders.Stats(),
		UserTrades:   s.UserTrades.Stats(),
		Wallets:      s.Wallets.Stats(),
		Notices:      s.Notices.Stats(),
	}
}

// Close closes every sink. Consumers drain what remains.
func (s *Sinks) Close() {
	s.OrderBook.Close()
	s.Tickers.Close()
	s.Trades.Close()
	s.Klines.Close()
	s.OrderHistory.Close()
	s.OpenOrders.Close()
	s.UserTrades.Close()
	s.Wallets.Close()
	s.Notices.Close()
}
