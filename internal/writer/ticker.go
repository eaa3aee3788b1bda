package writer

import (
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rickgao/ranger/internal/metrics"
	"github.com/rickgao/ranger/internal/router"
)

const insertTicker = `
	INSERT INTO tickers (market, received_at, last, high, low, open, volume, amount, avg_price, price_change_percent)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (market, received_at) DO NOTHING`

// TickerWriter consumes TickerUpdate events from the tickers sink and writes
// to the tickers table.
type TickerWriter struct {
	*batchWriter[router.TickerUpdate, tickerRow]
}

// NewTickerWriter creates a new TickerWriter. db is usually a *pgxpool.Pool.
func NewTickerWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[router.TickerUpdate],
	db BatchSender,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *TickerWriter {
	w := newBatchWriter[router.TickerUpdate, tickerRow]("ticker", cfg, input, db, rec, logger)
	w.transform = transformTickers
	w.queue = func(b *pgx.Batch, r tickerRow) {
		b.Queue(insertTicker, r.Market, r.ReceivedAt, r.Last, r.High, r.Low, r.Open,
			r.Volume, r.Amount, r.AvgPrice, r.PriceChangePercent)
	}
	return &TickerWriter{w}
}

// transformTickers converts one update into a row per market, ordered by
// market id.
func transformTickers(msg router.TickerUpdate) []tickerRow {
	markets := make([]string, 0, len(msg.Tickers))
	for m := range msg.Tickers {
		markets = append(markets, m)
	}
	slices.Sort(markets)

	rows := make([]tickerRow, 0, len(markets))
	for _, m := range markets {
		t := msg.Tickers[m]
		rows = append(rows, tickerRow{
			Market:             m,
			ReceivedAt:         msg.ReceivedAt.UTC(),
			Last:               toNullDecimal(t.Last),
			High:               toNullDecimal(t.High),
			Low:                toNullDecimal(t.Low),
			Open:               toNullDecimal(t.Open),
			Volume:             toNullDecimal(t.Volume),
			Amount:             toNullDecimal(t.Amount),
			AvgPrice:           toNullDecimal(t.AvgPrice),
			PriceChangePercent: t.PriceChangePercent,
		})
	}
	return rows
}

func toNullDecimal(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
