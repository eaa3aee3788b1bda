package stream

import (
	"slices"
	"testing"
)

func TestBuildTopicsPublicMarket(t *testing.T) {
	got := BuildTopics(false, nil, "BTC-USDT")
	want := []string{"global.tickers", "BTC-USDT.trades", "BTC-USDT.update"}

	if !slices.Equal(got, want) {
		t.Errorf("BuildTopics() = %v, want %v", got, want)
	}
}

func TestBuildTopicsNoMarket(t *testing.T) {
	got := BuildTopics(false, nil, "")
	if !slices.Equal(got, []string{"global.tickers"}) {
		t.Errorf("BuildTopics() = %v, want [global.tickers]", got)
	}
}

func TestBuildTopicsAuthKeepsPrevious(t *testing.T) {
	got := BuildTopics(true, []string{"kline_1m"}, "BTC-USDT")
	want := []string{
		"global.tickers", "BTC-USDT.trades", "BTC-USDT.update",
		"order", "trade", "deposit_address", "balances",
		"kline_1m",
	}

	if !slices.Equal(got, want) {
		t.Errorf("BuildTopics() = %v, want %v", got, want)
	}
}

func TestBuildTopicsDeduplicatesPrevious(t *testing.T) {
	prev := []string{"ETH-USDT.kline-1h", "global.tickers", "order", "ETH-USDT.kline-1h", "BTC-USDT.trades"}
	got := BuildTopics(false, prev, "BTC-USDT")
	want := []string{"global.tickers", "BTC-USDT.trades", "BTC-USDT.update", "ETH-USDT.kline-1h", "order"}

	if !slices.Equal(got, want) {
		t.Errorf("BuildTopics() = %v, want %v", got, want)
	}
}

func TestBuildTopicsDoesNotAliasPrevious(t *testing.T) {
	prev := []string{"a", "b"}
	got := BuildTopics(false, prev, "")
	got[1] = "changed"

	if prev[0] != "a" {
		t.Errorf("previous topics mutated: %v", prev)
	}
}

func TestMarketTopics(t *testing.T) {
	got := MarketTopics("ETH-USDT")
	want := []string{"global.tickers", "ETH-USDT.trades", "ETH-USDT.update"}
	if !slices.Equal(got, want) {
		t.Errorf("MarketTopics() = %v, want %v", got, want)
	}
}

func TestModeFor(t *testing.T) {
	if ModeFor(true) != AuthPrivate {
		t.Errorf("ModeFor(true) = %q, want %q", ModeFor(true), AuthPrivate)
	}
	if ModeFor(false) != AuthPublic {
		t.Errorf("ModeFor(false) = %q, want %q", ModeFor(false), AuthPublic)
	}
}

func TestSubscriptionSet(t *testing.T) {
	s := NewSubscriptionSet("a", "b", "a")
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	s.Add("c", "b")
	s.Remove("a")
	if got := s.Topics(); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Topics() = %v, want [b c]", got)
	}
	if !s.Contains("c") || s.Contains("a") {
		t.Error("Contains() disagrees with Topics()")
	}

	s.Replace([]string{"x", "x", "y"})
	if got := s.Topics(); !slices.Equal(got, []string{"x", "y"}) {
		t.Errorf("Topics() after Replace = %v, want [x y]", got)
	}

	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", s.Len())
	}
}
