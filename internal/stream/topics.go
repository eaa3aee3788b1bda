package stream

import "slices"

// Fixed topics.
const (
	TopicGlobalTickers  = "global.tickers"
	TopicOrder          = "order"
	TopicTrade          = "trade"
	TopicDepositAddress = "deposit_address"
	TopicBalances       = "balances"
)

// PrivateTopics are appended to the topic list of an authenticated connection.
var PrivateTopics = []string{TopicOrder, TopicTrade, TopicDepositAddress, TopicBalances}

// AuthMode selects the public or private ranger endpoint.
type AuthMode string

const (
	AuthPublic  AuthMode = "public"
	AuthPrivate AuthMode = "private"
)

// ModeFor returns AuthPrivate when withAuth is set.
func ModeFor(withAuth bool) AuthMode {
	if withAuth {
		return AuthPrivate
	}
	return AuthPublic
}

// TradesTopic returns "{marketID}.trades".
func TradesTopic(marketID string) string {
	return marketID + ".trades"
}

// UpdateTopic returns "{marketID}.update".
func UpdateTopic(marketID string) string {
	return marketID + ".update"
}

// KlineTopic returns "{marketID}.kline-{period}".
func KlineTopic(marketID, period string) string {
	return marketID + ".kline-" + period
}

// MarketTopics returns the public topics of a single market, global tickers
// included. An empty marketID yields only the global tickers topic.
func MarketTopics(marketID string) []string {
	return BuildTopics(false, nil, marketID)
}

// BuildTopics returns the ordered topic list for a connection.
//
// The list always starts with the global tickers topic, followed by the
// market's trades and update topics when a market is selected, then the
// private topics when authEnabled. Topics from previous that are not already
// present are appended last in their original order, so streams such as
// klines survive a reconnect.
func BuildTopics(authEnabled bool, previous []string, marketID string) []string {
	topics := make([]string, 0, 3+len(PrivateTopics)+len(previous))
	topics = append(topics, TopicGlobalTickers)

	if marketID != "" {
		topics = append(topics, TradesTopic(marketID), UpdateTopic(marketID))
	}

	if authEnabled {
		topics = append(topics, PrivateTopics...)
	}

	for _, topic := range previous {
		if topic == "" || slices.Contains(topics, topic) {
			continue
		}
		topics = append(topics, topic)
	}

	return topics
}
