package stream

import "regexp"

// Kind is the class of an inbound routing key.
type Kind int

const (
	KindUnknown Kind = iota
	KindOrderBookUpdate
	KindOrderBookSnapshot
	KindOrderBookIncrement
	KindKline
	KindTrades
	KindTicker
	KindGlobalTickers
	KindSuccess
	KindOrder
	KindTrade
	KindBalances
	KindDepositAddress
)

var kindNames = [...]string{
	KindUnknown:            "unknown",
	KindOrderBookUpdate:    "orderbook_update",
	KindOrderBookSnapshot:  "orderbook_snapshot",
	KindOrderBookIncrement: "orderbook_increment",
	KindKline:              "kline",
	KindTrades:             "trades",
	KindTicker:             "ticker",
	KindGlobalTickers:      "global_tickers",
	KindSuccess:            "success",
	KindOrder:              "order",
	KindTrade:              "trade",
	KindBalances:           "balances",
	KindDepositAddress:     "deposit_address",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// MarketScoped reports whether the kind carries a market id in its key.
func (k Kind) MarketScoped() bool {
	switch k {
	case KindOrderBookUpdate, KindOrderBookSnapshot, KindOrderBookIncrement, KindKline, KindTrades:
		return true
	}
	return false
}

// Route is a classified routing key.
type Route struct {
	Key    string
	Kind   Kind
	Market string
	Period string
}

var (
	updatePattern    = regexp.MustCompile(`^([^.]+)\.update$`)
	snapshotPattern  = regexp.MustCompile(`^([^.]+)\.ob-snap$`)
	incrementPattern = regexp.MustCompile(`^([^.]+)\.ob-inc$`)
	klinePattern     = regexp.MustCompile(`^([^.]+)\.kline-(.+)$`)
	tradesPattern    = regexp.MustCompile(`^([^.]+)\.trades$`)
)

var literalKinds = map[string]Kind{
	TopicGlobalTickers:  KindGlobalTickers,
	"success":           KindSuccess,
	TopicOrder:          KindOrder,
	TopicTrade:          KindTrade,
	TopicBalances:       KindBalances,
	TopicDepositAddress: KindDepositAddress,
}

// Classify maps a routing key to its kind. Market patterns are tried first,
// in order update, snapshot, increment, kline, trades; then the literal keys.
func Classify(key string) Route {
	r := Route{Key: key}

	if m := updatePattern.FindStringSubmatch(key); m != nil {
		r.Kind, r.Market = KindOrderBookUpdate, m[1]
		return r
	}
	if m := snapshotPattern.FindStringSubmatch(key); m != nil {
		r.Kind, r.Market = KindOrderBookSnapshot, m[1]
		return r
	}
	if m := incrementPattern.FindStringSubmatch(key); m != nil {
		r.Kind, r.Market = KindOrderBookIncrement, m[1]
		return r
	}
	if m := klinePattern.FindStringSubmatch(key); m != nil {
		r.Kind, r.Market, r.Period = KindKline, m[1], m[2]
		return r
	}
	if m := tradesPattern.FindStringSubmatch(key); m != nil {
		r.Kind, r.Market = KindTrades, m[1]
		return r
	}

	if kind, ok := literalKinds[key]; ok {
		r.Kind = kind
	}
	return r
}
