package writer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrNoDatabase is returned by a flush when the writer has no database.
var ErrNoDatabase = errors.New("writer has no database")

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     1000,
		FlushInterval: time.Second,
	}
}

// BatchSender is the subset of *pgxpool.Pool the writers use.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// tradeRow represents a row to be inserted into the trades table.
type tradeRow struct {
	Market     string
	TradeID    int64
	TradedAt   time.Time
	ReceivedAt time.Time
	TakerType  string
	Price      decimal.Decimal
	Amount     decimal.Decimal
	Total      decimal.Decimal
}

// tickerRow represents a row for the tickers table. Fields that did not
// parse as numbers are NULL.
type tickerRow struct {
	Market             string
	ReceivedAt         time.Time
	Last               decimal.NullDecimal
	High               decimal.NullDecimal
	Low                decimal.NullDecimal
	Open               decimal.NullDecimal
	Volume             decimal.NullDecimal
	Amount             decimal.NullDecimal
	AvgPrice           decimal.NullDecimal
	PriceChangePercent string
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Received  int64 `json:"received"`
	Inserts   int64 `json:"inserts"`
	Conflicts int64 `json:"conflicts"`
	Errors    int64 `json:"errors"`
	Flushes   int64 `json:"flushes"`
}
