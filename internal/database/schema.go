package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of *pgxpool.Pool used for schema setup.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		market      TEXT        NOT NULL,
		trade_id    BIGINT      NOT NULL,
		traded_at   TIMESTAMPTZ NOT NULL,
		received_at TIMESTAMPTZ NOT NULL,
		taker_type  TEXT        NOT NULL,
		price       NUMERIC     NOT NULL,
		amount      NUMERIC     NOT NULL,
		total       NUMERIC     NOT NULL,
		PRIMARY KEY (market, trade_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tickers (
		market               TEXT        NOT NULL,
		received_at          TIMESTAMPTZ NOT NULL,
		last                 NUMERIC,
		high                 NUMERIC,
		low                  NUMERIC,
		open                 NUMERIC,
		volume               NUMERIC,
		amount               NUMERIC,
		avg_price            NUMERIC,
		price_change_percent TEXT,
		PRIMARY KEY (market, received_at)
	)`,
}

// Trades are keyed by trade id, so only tickers become a hypertable.
var hypertables = []string{
	`SELECT create_hypertable('tickers', 'received_at', if_not_exists => TRUE)`,
}

// EnsureSchema creates the trades and tickers tables. When the timescaledb
// extension is installed, tickers is also converted to a hypertable.
// It reports whether the extension was found.
func EnsureSchema(ctx context.Context, db Execer) (timescale bool, err error) {
	for _, stmt := range tables {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return false, fmt.Errorf("create table: %w", err)
		}
	}

	if err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'timescaledb')`,
	).Scan(&timescale); err != nil {
		return false, fmt.Errorf("check timescaledb extension: %w", err)
	}
	if !timescale {
		return false, nil
	}

	for _, stmt := range hypertables {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return true, fmt.Errorf("create hypertable: %w", err)
		}
	}
	return true, nil
}
