package router

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rickgao/ranger/internal/metrics"
	"github.com/rickgao/ranger/internal/model"
	"github.com/rickgao/ranger/internal/orderbook"
	"github.com/rickgao/ranger/internal/stream"
)

// RouterStats contains runtime statistics.
type RouterStats struct {
	FramesReceived  int64 `json:"frames_received"`
	EntriesRouted   int64 `json:"entries_routed"`
	ParseErrors     int64 `json:"parse_errors"`
	UnknownMessages int64 `json:"unknown_messages"`
	Discarded       int64 `json:"discarded"` // order-book entries for a market other than the selected one
	SequenceGaps    int64 `json:"sequence_gaps"`
	Unsynced        int64 `json:"unsynced"`
	CachedTickers   int   `json:"cached_tickers"`
}

// Router demultiplexes inbound frames into typed events.
//
// Route is called from the session loop only. Stats may be read from any
// goroutine.
type Router struct {
	logger    *slog.Logger
	metrics   *metrics.Recorder
	sequencer *orderbook.Sequencer
	tickers   *TickerCache

	mu    sync.Mutex
	stats RouterStats
}

// NewRouter creates a router that consults sequencer for order-book
// increments and overlays tickers against cache.
func NewRouter(sequencer *orderbook.Sequencer, cache *TickerCache, rec *metrics.Recorder, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewTickerCache()
	}
	return &Router{
		logger:    logger.With("component", "router"),
		metrics:   rec,
		sequencer: sequencer,
		tickers:   cache,
	}
}

// Tickers returns the ticker cache.
func (r *Router) Tickers() *TickerCache {
	return r.tickers
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.CachedTickers = r.tickers.Len()
	return s
}

func (r *Router) count(field *int64) {
	r.mu.Lock()
	*field++
	r.mu.Unlock()
}

// Route parses one raw frame and returns the events it produces.
// currentMarket is the selected market id; order-book entries for any
// other market are discarded. Malformed frames and entries are logged and
// dropped.
func (r *Router) Route(raw []byte, currentMarket string, receivedAt time.Time) []Event {
	r.count(&r.stats.FramesReceived)

	frame, err := stream.ParseFrame(raw)
	if err != nil {
		r.parseError("frame", err, raw)
		return nil
	}

	if frame.Ticker != nil {
		r.routed(stream.KindTicker)
		return []Event{r.tickerEvent(stream.NormalizeOne(*frame.Ticker), receivedAt)}
	}

	var events []Event
	for _, entry := range frame.Entries {
		ev, err := r.routeEntry(entry, currentMarket, receivedAt)
		if err != nil {
			r.parseError(entry.Kind.String(), err, entry.Payload)
			continue
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

func (r *Router) routeEntry(e stream.Entry, current string, at time.Time) (Event, error) {
	switch e.Kind {
	case stream.KindOrderBookUpdate:
		if !r.selected(e, current) {
			return nil, nil
		}
		var depth model.Depth
		if err := json.Unmarshal(e.Payload, &depth); err != nil {
			return nil, err
		}
		r.routed(e.Kind)
		return OrderBookReplace{Market: e.Market, Depth: depth, ReceivedAt: at}, nil

	case stream.KindOrderBookSnapshot:
		if !r.selected(e, current) {
			return nil, nil
		}
		var depth model.Depth
		if err := json.Unmarshal(e.Payload, &depth); err != nil {
			return nil, err
		}
		r.sequencer.OnSnapshot(e.Market, depth.Sequence)
		r.routed(e.Kind)
		return OrderBookSnapshot{Market: e.Market, Depth: depth, ReceivedAt: at}, nil

	case stream.KindOrderBookIncrement:
		if !r.selected(e, current) {
			return nil, nil
		}
		return r.increment(e, at)

	case stream.KindKline:
		klines, err := decodeKlines(e.Payload)
		if err != nil {
			return nil, err
		}
		r.routed(e.Kind)
		return KlinePush{Market: e.Market, Period: e.Period, Klines: klines}, nil

	case stream.KindTrades:
		var frame model.TradesFrame
		if err := json.Unmarshal(e.Payload, &frame); err != nil {
			return nil, err
		}
		r.routed(e.Kind)
		return TradesPush{Market: e.Market, Trades: frame.Trades, ReceivedAt: at}, nil

	case stream.KindTicker:
		r.routed(e.Kind)
		return r.tickerEvent(stream.NormalizeOne(*e.Ticker), at), nil

	case stream.KindGlobalTickers:
		tickers, err := stream.NormalizeAll(e.Payload)
		if err != nil {
			return nil, err
		}
		r.routed(e.Kind)
		return r.tickerEvent(tickers, at), nil

	case stream.KindSuccess:
		var ack stream.SuccessPayload
		if err := json.Unmarshal(e.Payload, &ack); err != nil {
			return nil, err
		}
		if ack.Message != stream.MessageSubscribed && ack.Message != stream.MessageUnsubscribed {
			r.logger.Debug("ignoring success message", "message", ack.Message)
			return nil, nil
		}
		r.routed(e.Kind)
		return SubscriptionsChanged{Message: ack.Message, Topics: ack.Streams}, nil

	case stream.KindOrder:
		var order model.Order
		if err := json.Unmarshal(e.Payload, &order); err != nil {
			return nil, err
		}
		r.routed(e.Kind)
		return UserOrderUpdate{Order: order}, nil

	case stream.KindTrade:
		var trade model.PrivateTrade
		if err := json.Unmarshal(e.Payload, &trade); err != nil {
			return nil, err
		}
		r.routed(e.Kind)
		return UserTradePush{Trade: trade}, nil

	case stream.KindBalances:
		var balances model.Balances
		if err := json.Unmarshal(e.Payload, &balances); err != nil {
			return nil, err
		}
		r.routed(e.Kind)
		return WalletUpdate{Balances: balances}, nil

	case stream.KindDepositAddress:
		var addr model.DepositAddress
		if err := json.Unmarshal(e.Payload, &addr); err != nil {
			return nil, err
		}
		r.routed(e.Kind)
		return WalletAddressUpdate{Address: addr}, nil
	}

	r.count(&r.stats.UnknownMessages)
	r.logger.Debug("skipping routing key", "key", e.Key)
	return nil, nil
}

// increment consults the sequencer. Only in-sequence deltas become events;
// a gap becomes ReconnectRequested; an unknown cursor drops the delta until
// the next snapshot arrives.
func (r *Router) increment(e stream.Entry, at time.Time) (Event, error) {
	var depth model.Depth
	if err := json.Unmarshal(e.Payload, &depth); err != nil {
		return nil, err
	}
	if !depth.HasSequence() {
		return nil, fmt.Errorf("increment for %s has no sequence", e.Market)
	}
	seq := *depth.Sequence

	decision, err := r.sequencer.OnIncrement(e.Market, seq)
	switch decision {
	case orderbook.Apply:
		r.routed(e.Kind)
		return OrderBookIncrement{Market: e.Market, Depth: depth, Sequence: seq, ReceivedAt: at}, nil

	case orderbook.RejectGap:
		r.count(&r.stats.SequenceGaps)
		r.metrics.SequenceGap(e.Market)
		r.logger.Warn("order book sequence gap, requesting reconnect",
			"market", e.Market,
			"error", err,
		)
		return ReconnectRequested{Market: e.Market, Err: err}, nil

	default:
		r.count(&r.stats.Unsynced)
		r.metrics.Unsynced(e.Market)
		r.logger.Debug("increment before snapshot, waiting", "market", e.Market, "sequence", seq)
		return nil, nil
	}
}

func (r *Router) selected(e stream.Entry, current string) bool {
	if current != "" && e.Market == current {
		return true
	}
	r.count(&r.stats.Discarded)
	return false
}

func (r *Router) tickerEvent(tickers map[string]stream.Ticker, at time.Time) Event {
	return TickerUpdate{Tickers: r.tickers.Overlay(tickers), ReceivedAt: at}
}

func (r *Router) routed(kind stream.Kind) {
	r.count(&r.stats.EntriesRouted)
	r.metrics.FrameRouted(kind.String())
}

func (r *Router) parseError(kind string, err error, raw []byte) {
	r.count(&r.stats.ParseErrors)
	r.metrics.ParseError(kind)
	if len(raw) > 256 {
		raw = raw[:256]
	}
	r.logger.Warn("dropping malformed frame",
		"kind", kind,
		"error", err,
		"raw", string(raw),
	)
}

// decodeKlines accepts one candle or an array of candles.
func decodeKlines(data []byte) ([]model.Kline, error) {
	trimmed := bytes.TrimSpace(data)
	inner := bytes.TrimSpace(bytes.TrimPrefix(trimmed, []byte("[")))
	if len(inner) > 0 && (inner[0] == '[' || inner[0] == ']') {
		var klines []model.Kline
		if err := json.Unmarshal(trimmed, &klines); err != nil {
			return nil, err
		}
		return klines, nil
	}
	var k model.Kline
	if err := json.Unmarshal(trimmed, &k); err != nil {
		return nil, err
	}
	return []model.Kline{k}, nil
}
