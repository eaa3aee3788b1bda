package stream

import (
	json "github.com/goccy/go-json"
)

// CommandType is the outbound control verb.
type CommandType string

const (
	Subscribe   CommandType = "subscribe"
	Unsubscribe CommandType = "unsubscribe"
)

// Command is an outbound control message.
type Command struct {
	Type        CommandType `json:"type"`
	ProductIDs  []string    `json:"productIds"`
	Channels    []string    `json:"channels"`
	CurrencyIDs []string    `json:"currencyIds"`
	Token       string      `json:"token"`
}

// Encode marshals the command. Nil slices are sent as empty arrays.
func (c Command) Encode() ([]byte, error) {
	if c.ProductIDs == nil {
		c.ProductIDs = []string{}
	}
	if c.Channels == nil {
		c.Channels = []string{}
	}
	if c.CurrencyIDs == nil {
		c.CurrencyIDs = []string{}
	}
	return json.Marshal(c)
}

// WithToken returns a copy carrying the session token.
func (c Command) WithToken(token string) Command {
	c.Token = token
	return c
}

// TopicsCommand subscribes or unsubscribes a list of topics. marketID, when
// set, is sent as the product id.
func TopicsCommand(t CommandType, marketID string, topics []string) Command {
	cmd := Command{
		Type:     t,
		Channels: append([]string(nil), topics...),
	}
	if marketID != "" {
		cmd.ProductIDs = []string{marketID}
	}
	return cmd
}

// KlineCommand subscribes or unsubscribes the candle stream of one market and period.
func KlineCommand(t CommandType, marketID, period string) Command {
	return Command{
		Type:       t,
		ProductIDs: []string{marketID},
		Channels:   []string{"kline_" + period},
	}
}

// UserCommand subscribes or unsubscribes the private order and trade channels.
// currencies narrows balance updates and may be empty.
func UserCommand(t CommandType, currencies []string) Command {
	return Command{
		Type:        t,
		Channels:    []string{TopicOrder, TopicTrade},
		CurrencyIDs: append([]string(nil), currencies...),
	}
}
