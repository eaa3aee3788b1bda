package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of every ranger instrument.
const MeterName = "ranger"

// Outbound results.
const (
	OutboundSent    = "sent"
	OutboundQueued  = "queued"
	OutboundDropped = "dropped"
	OutboundFailed  = "failed"
)

// Recorder holds the instruments.
type Recorder struct {
	framesReceived metric.Int64Counter
	framesRouted   metric.Int64Counter
	parseErrors    metric.Int64Counter
	sequenceGaps   metric.Int64Counter
	unsynced       metric.Int64Counter
	connections    metric.Int64Counter
	outbound       metric.Int64Counter
	writerRows     metric.Int64Counter
	writerErrors   metric.Int64Counter
	flushDuration  metric.Float64Histogram
}

// NewRecorder registers the instruments on meter. A nil meter uses the
// global meter provider.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	r := &Recorder{}
	var err error

	if r.framesReceived, err = meter.Int64Counter("ranger.frames.received",
		metric.WithDescription("Inbound frames read from the socket"),
		metric.WithUnit("{frame}")); err != nil {
		return nil, err
	}
	if r.framesRouted, err = meter.Int64Counter("ranger.frames.routed",
		metric.WithDescription("Routing keys dispatched, by kind"),
		metric.WithUnit("{entry}")); err != nil {
		return nil, err
	}
	if r.parseErrors, err = meter.Int64Counter("ranger.frames.parse_errors",
		metric.WithDescription("Malformed frames or payloads dropped"),
		metric.WithUnit("{frame}")); err != nil {
		return nil, err
	}
	if r.sequenceGaps, err = meter.Int64Counter("ranger.orderbook.sequence_gaps",
		metric.WithDescription("Order-book increments rejected for a sequence gap"),
		metric.WithUnit("{increment}")); err != nil {
		return nil, err
	}
	if r.unsynced, err = meter.Int64Counter("ranger.orderbook.unsynced",
		metric.WithDescription("Order-book increments rejected while no cursor was known"),
		metric.WithUnit("{increment}")); err != nil {
		return nil, err
	}
	if r.connections, err = meter.Int64Counter("ranger.connection.transitions",
		metric.WithDescription("Connection lifecycle transitions, by event"),
		metric.WithUnit("{event}")); err != nil {
		return nil, err
	}
	if r.outbound, err = meter.Int64Counter("ranger.outbound.commands",
		metric.WithDescription("Outbound commands, by result"),
		metric.WithUnit("{command}")); err != nil {
		return nil, err
	}
	if r.writerRows, err = meter.Int64Counter("ranger.writer.rows",
		metric.WithDescription("Rows written by the recorder, by writer"),
		metric.WithUnit("{row}")); err != nil {
		return nil, err
	}
	if r.writerErrors, err = meter.Int64Counter("ranger.writer.errors",
		metric.WithDescription("Failed recorder batches, by writer"),
		metric.WithUnit("{batch}")); err != nil {
		return nil, err
	}
	if r.flushDuration, err = meter.Float64Histogram("ranger.writer.flush.duration",
		metric.WithDescription("Recorder batch flush duration"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}

	return r, nil
}

// FrameReceived counts one inbound frame.
func (r *Recorder) FrameReceived() {
	if r == nil {
		return
	}
	r.framesReceived.Add(context.Background(), 1)
}

// FrameRouted counts one dispatched routing key of the given kind.
func (r *Recorder) FrameRouted(kind string) {
	if r == nil {
		return
	}
	r.framesRouted.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// ParseError counts one dropped malformed frame or payload.
func (r *Recorder) ParseError(kind string) {
	if r == nil {
		return
	}
	r.parseErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// SequenceGap counts one gap on market.
func (r *Recorder) SequenceGap(market string) {
	if r == nil {
		return
	}
	r.sequenceGaps.Add(context.Background(), 1, metric.WithAttributes(attribute.String("market", market)))
}

// Unsynced counts one increment rejected for an unknown cursor.
func (r *Recorder) Unsynced(market string) {
	if r == nil {
		return
	}
	r.unsynced.Add(context.Background(), 1, metric.WithAttributes(attribute.String("market", market)))
}

// ConnectionEvent counts a lifecycle transition such as "open" or "error".
func (r *Recorder) ConnectionEvent(event, mode string) {
	if r == nil {
		return
	}
	r.connections.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("mode", mode),
	))
}

// Outbound counts one outbound command with the given result.
func (r *Recorder) Outbound(result string) {
	if r == nil {
		return
	}
	r.outbound.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", result)))
}

// WriterFlush records one writer flush.
func (r *Recorder) WriterFlush(ctx context.Context, writer string, rows int, durationMs float64, err error) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("writer", writer))
	r.flushDuration.Record(ctx, durationMs, attrs)
	if err != nil {
		r.writerErrors.Add(ctx, 1, attrs)
		return
	}
	r.writerRows.Add(ctx, int64(rows), attrs)
}
