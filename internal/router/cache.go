package router

import (
	"maps"
	"sync"

	"github.com/rickgao/ranger/internal/stream"
)

// TickerCache remembers the last ticker with a valid last price per market.
// It lives for the whole process and survives market switches.
type TickerCache struct {
	mu      sync.RWMutex
	tickers map[string]stream.Ticker
}

// NewTickerCache returns an empty cache.
func NewTickerCache() *TickerCache {
	return &TickerCache{tickers: make(map[string]stream.Ticker)}
}

// Overlay returns a copy of tickers in which every invalid or zero last price
// is replaced by the cached one. Tickers with a valid last price update the
// cache.
func (c *TickerCache) Overlay(tickers map[string]stream.Ticker) map[string]stream.Ticker {
	out := maps.Clone(tickers)

	c.mu.Lock()
	defer c.mu.Unlock()

	for market, t := range out {
		if t.HasValidLast() {
			c.tickers[market] = t
			continue
		}
		if cached, ok := c.tickers[market]; ok {
			t.Last = cached.Last
			out[market] = t
		}
	}
	return out
}

// Get returns the cached ticker of market.
func (c *TickerCache) Get(market string) (stream.Ticker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tickers[market]
	return t, ok
}

// Len returns the number of cached markets.
func (c *TickerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tickers)
}
