// Package writer records public market data into TimescaleDB.
//
// Writers:
//   - Trade writer: one row per public trade (trades table)
//   - Ticker writer: one row per market per ticker update (tickers table)
//
// Each writer drains its router sink, accumulates rows, and flushes them in a
// pgx batch when the batch is full or the flush interval elapses. Inserts are
// append-only; duplicates are skipped with ON CONFLICT DO NOTHING. Prices and
// amounts are stored as NUMERIC to keep the exchange's decimal precision.
package writer
