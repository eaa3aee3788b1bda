package router

import (
	"testing"

	"github.com/rickgao/ranger/internal/stream"
)

func TestTickerCache_Overlay(t *testing.T) {
	c := NewTickerCache()

	out := c.Overlay(map[string]stream.Ticker{"m": {Last: "100"}})
	if out["m"].Last != "100" {
		t.Fatalf("Last = %q, want 100", out["m"].Last)
	}

	for _, bad := range []string{"0", "", "NaN?", "0.00"} {
		out = c.Overlay(map[string]stream.Ticker{"m": {Last: bad, High: "9"}})
		if out["m"].Last != "100" {
			t.Errorf("Overlay(last=%q).Last = %q, want 100", bad, out["m"].Last)
		}
		if out["m"].High != "9" {
			t.Errorf("Overlay(last=%q).High = %q, want 9", bad, out["m"].High)
		}
	}

	out = c.Overlay(map[string]stream.Ticker{"m": {Last: "150"}})
	if out["m"].Last != "150" {
		t.Errorf("Last = %q, want 150", out["m"].Last)
	}
	if cached, _ := c.Get("m"); cached.Last != "150" {
		t.Errorf("cached Last = %q, want 150", cached.Last)
	}
}

func TestTickerCache_UnknownMarketPassesThrough(t *testing.T) {
	c := NewTickerCache()

	out := c.Overlay(map[string]stream.Ticker{"m": {Last: "0"}})
	if out["m"].Last != "0" {
		t.Errorf("Last = %q, want 0", out["m"].Last)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestTickerCache_DoesNotMutateInput(t *testing.T) {
	c := NewTickerCache()
	c.Overlay(map[string]stream.Ticker{"m": {Last: "100"}})

	in := map[string]stream.Ticker{"m": {Last: "0"}}
	c.Overlay(in)
	if in["m"].Last != "0" {
		t.Errorf("input mutated: %+v", in["m"])
	}
}
