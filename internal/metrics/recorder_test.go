package metrics

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestRecorder(t *testing.T) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	r, err := NewRecorder(mp.Meter(MeterName))
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	return r, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s data = %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestRecorderCounters(t *testing.T) {
	r, reader := newTestRecorder(t)

	r.FrameReceived()
	r.FrameReceived()
	r.FrameRouted("trades")
	r.SequenceGap("btcusdt")
	r.Outbound(OutboundQueued)
	r.Outbound(OutboundSent)
	r.Outbound(OutboundSent)

	if got := sumOf(t, reader, "ranger.frames.received"); got != 2 {
		t.Errorf("frames.received = %d, want 2", got)
	}
	if got := sumOf(t, reader, "ranger.orderbook.sequence_gaps"); got != 1 {
		t.Errorf("sequence_gaps = %d, want 1", got)
	}
	if got := sumOf(t, reader, "ranger.outbound.commands"); got != 3 {
		t.Errorf("outbound.commands = %d, want 3", got)
	}
}

func TestRecorderWriterFlush(t *testing.T) {
	r, reader := newTestRecorder(t)

	r.WriterFlush(context.Background(), "trades", 50, 1.5, nil)
	r.WriterFlush(context.Background(), "trades", 10, 2.0, errors.New("boom"))

	if got := sumOf(t, reader, "ranger.writer.rows"); got != 50 {
		t.Errorf("writer.rows = %d, want 50", got)
	}
	if got := sumOf(t, reader, "ranger.writer.errors"); got != 1 {
		t.Errorf("writer.errors = %d, want 1", got)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.FrameReceived()
	r.FrameRouted("x")
	r.ParseError("x")
	r.SequenceGap("m")
	r.Unsynced("m")
	r.ConnectionEvent("open", "public")
	r.Outbound(OutboundSent)
	r.WriterFlush(context.Background(), "w", 1, 1, nil)
}

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if p.Meter() == nil {
		t.Error("Meter() = nil")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestStripScheme(t *testing.T) {
	tests := map[string]string{
		"http://localhost:4318/": "localhost:4318",
		"https://otel:4318":      "otel:4318",
		"collector:4318":         "collector:4318",
	}
	for in, want := range tests {
		if got := stripScheme(in); got != want {
			t.Errorf("stripScheme(%q) = %q, want %q", in, got, want)
		}
	}
}
