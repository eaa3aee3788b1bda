package model

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

func TestDepth_Unmarshal(t *testing.T) {
	data := []byte(`{"asks":[["101.5","2"],["102","0.5"]],"bids":[[100,"1.25"]],"sequence":42}`)

	var d Depth
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(d.Asks) != 2 {
		t.Fatalf("len(Asks) = %d, want 2", len(d.Asks))
	}
	if !d.Asks[0].Price.Equal(decimal.RequireFromString("101.5")) {
		t.Errorf("Asks[0].Price = %s, want 101.5", d.Asks[0].Price)
	}
	if !d.Bids[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Bids[0].Price = %s, want 100", d.Bids[0].Price)
	}
	if !d.Bids[0].Amount.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("Bids[0].Amount = %s, want 1.25", d.Bids[0].Amount)
	}
	if !d.HasSequence() || *d.Sequence != 42 {
		t.Errorf("Sequence = %v, want 42", d.Sequence)
	}
}

func TestDepth_NoSequence(t *testing.T) {
	var d Depth
	if err := json.Unmarshal([]byte(`{"asks":[],"bids":[]}`), &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if d.HasSequence() {
		t.Error("expected no sequence")
	}
}

func TestPriceLevel_Short(t *testing.T) {
	var l PriceLevel
	if err := json.Unmarshal([]byte(`["1"]`), &l); err != ErrShortLevel {
		t.Errorf("err = %v, want ErrShortLevel", err)
	}
}

func TestPriceLevel_RoundTrip(t *testing.T) {
	l := PriceLevel{Price: decimal.RequireFromString("0.52"), Amount: decimal.NewFromInt(3)}
	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `["0.52","3"]` {
		t.Errorf("Marshal = %s, want [\"0.52\",\"3\"]", data)
	}
}

func TestKline_Unmarshal(t *testing.T) {
	var k Kline
	if err := json.Unmarshal([]byte(`[1705328200,"100","110","95.5","105","12.75"]`), &k); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if k.Time != 1705328200 {
		t.Errorf("Time = %d, want 1705328200", k.Time)
	}
	if !k.Low.Equal(decimal.RequireFromString("95.5")) {
		t.Errorf("Low = %s, want 95.5", k.Low)
	}
	if !k.Volume.Equal(decimal.RequireFromString("12.75")) {
		t.Errorf("Volume = %s, want 12.75", k.Volume)
	}
}

func TestKline_TooShort(t *testing.T) {
	var k Kline
	if err := json.Unmarshal([]byte(`[1705328200,"100"]`), &k); err == nil {
		t.Error("expected error for short kline")
	}
}

func TestTradesFrame_Unmarshal(t *testing.T) {
	data := []byte(`{"trades":[{"tid":7,"taker_type":"buy","date":1705328200,"price":"100.5","amount":"2","total":"201"}]}`)

	var f TradesFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(f.Trades) != 1 {
		t.Fatalf("len(Trades) = %d, want 1", len(f.Trades))
	}
	tr := f.Trades[0]
	if tr.ID != 7 || tr.TakerType != "buy" || tr.Date != 1705328200 {
		t.Errorf("trade = %+v", tr)
	}
	if !tr.Total.Equal(decimal.NewFromInt(201)) {
		t.Errorf("Total = %s, want 201", tr.Total)
	}
}

func TestOrder_Unmarshal(t *testing.T) {
	data := []byte(`{"id":12,"uuid":"12","market":"btcusdt","side":"buy","ord_type":"limit","state":"wait","price":"100","avg_price":"100","remaining_volume":"1","origin_volume":"1","executed_volume":"0","created_at":"2024-01-15T12:00:00Z","at":1705320000000}`)

	var o Order
	if err := json.Unmarshal(data, &o); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if o.Market != "btcusdt" {
		t.Errorf("Market = %q, want btcusdt", o.Market)
	}
	if o.State != OrderStateWait {
		t.Errorf("State = %q, want wait", o.State)
	}
	if !o.ExecutedVolume.IsZero() {
		t.Errorf("ExecutedVolume = %s, want 0", o.ExecutedVolume)
	}
}

func TestBalances_Unmarshal(t *testing.T) {
	var b Balances
	if err := json.Unmarshal([]byte(`{"usdt":{"available":"10.5","hold":"1"}}`), &b); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !b["usdt"].Available.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("usdt available = %s, want 10.5", b["usdt"].Available)
	}
}
