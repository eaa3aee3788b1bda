package writer

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/ranger/internal/metrics"
	"github.com/rickgao/ranger/internal/router"
)

const insertTrade = `
	INSERT INTO trades (market, trade_id, traded_at, received_at, taker_type, price, amount, total)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (market, trade_id) DO NOTHING`

// TradeWriter consumes TradesPush events from the trades sink and writes to
// the trades table.
type TradeWriter struct {
	*batchWriter[router.TradesPush, tradeRow]
}

// NewTradeWriter creates a new TradeWriter. db is usually a *pgxpool.Pool.
func NewTradeWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[router.TradesPush],
	db BatchSender,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *TradeWriter {
	w := newBatchWriter[router.TradesPush, tradeRow]("trade", cfg, input, db, rec, logger)
	w.transform = transformTrades
	w.queue = func(b *pgx.Batch, r tradeRow) {
		b.Queue(insertTrade, r.Market, r.TradeID, r.TradedAt, r.ReceivedAt, r.TakerType, r.Price, r.Amount, r.Total)
	}
	return &TradeWriter{w}
}

// transformTrades converts one push into a row per trade.
func transformTrades(msg router.TradesPush) []tradeRow {
	rows := make([]tradeRow, 0, len(msg.Trades))
	for _, t := range msg.Trades {
		rows = append(rows, tradeRow{
			Market:     msg.Market,
			TradeID:    t.ID,
			TradedAt:   time.Unix(t.Date, 0).UTC(),
			ReceivedAt: msg.ReceivedAt.UTC(),
			TakerType:  t.TakerType,
			Price:      t.Price,
			Amount:     t.Amount,
			Total:      t.Total,
		})
	}
	return rows
}
