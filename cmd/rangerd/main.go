// rangerd keeps one ranger market-data connection in sync, fans routed events
// out to in-process sinks, and optionally records trades and tickers to
// TimescaleDB.
//
// Usage: rangerd -config configs/rangerd.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sourcegraph/conc"

	"github.com/rickgao/ranger/internal/config"
	"github.com/rickgao/ranger/internal/connection"
	"github.com/rickgao/ranger/internal/database"
	"github.com/rickgao/ranger/internal/logging"
	"github.com/rickgao/ranger/internal/market"
	"github.com/rickgao/ranger/internal/metrics"
	"github.com/rickgao/ranger/internal/router"
	"github.com/rickgao/ranger/internal/session"
	"github.com/rickgao/ranger/internal/version"
	"github.com/rickgao/ranger/internal/writer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("rangerd failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/rangerd.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	// A missing .env is normal outside development.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := logging.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting rangerd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	provider, err := metrics.Setup(ctx, metricsConfig(cfg))
	if err != nil {
		return fmt.Errorf("setup metrics: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
	}()

	rec, err := metrics.NewRecorder(provider.Meter())
	if err != nil {
		return fmt.Errorf("create metrics recorder: %w", err)
	}

	sup := connection.NewSupervisor(supervisorConfig(cfg), nil, rec, logger)
	sinks := router.NewSinks(routerConfig(cfg))
	sel := market.NewSelection(cfg.Market.Markets)
	sess := session.New(sessionConfig(cfg), sup, sel, sinks, rec, logger)

	var wg conc.WaitGroup

	// Recorder
	var db pinger
	writers := map[string]statser{}
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Timescale.Host,
			"port", cfg.Database.Timescale.Port,
			"database", cfg.Database.Timescale.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database.Timescale)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		db = pool

		timescale, err := database.EnsureSchema(ctx, pool)
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("database connected", "timescaledb", timescale)

		tw := writer.NewTradeWriter(writerConfig(cfg), sinks.Trades, pool, rec, logger)
		kw := writer.NewTickerWriter(writerConfig(cfg), sinks.Tickers, pool, rec, logger)
		for name, w := range map[string]interface {
			statser
			Start(context.Context) error
			Stop(context.Context) error
		}{"trades": tw, "tickers": kw} {
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("start %s writer: %w", name, err)
			}
			defer stopWriter(name, w, 10*time.Second, logger)
			writers[name] = w
		}
	} else {
		wg.Go(func() { consume(sinks.Trades, logEvent[router.TradesPush](logger)) })
		wg.Go(func() { consume(sinks.Tickers, logEvent[router.TickerUpdate](logger)) })
	}

	// Sinks without a store are drained; the order book would otherwise grow without bound.
	wg.Go(func() { consume(sinks.OrderBook, logEvent[router.Event](logger)) })
	wg.Go(func() { consume(sinks.Wallets, logEvent[router.Event](logger)) })
	wg.Go(func() { consume(sinks.Klines, logEvent[router.KlinePush](logger)) })
	wg.Go(func() { consume(sinks.OrderHistory, logEvent[router.UserOrderUpdate](logger)) })
	wg.Go(func() { consume(sinks.OpenOrders, logEvent[router.UserOrderUpdate](logger)) })
	wg.Go(func() { consume(sinks.UserTrades, logEvent[router.UserTradePush](logger)) })
	wg.Go(func() {
		consume(sinks.Notices, func(n router.OrderNotice) {
			logger.Info("order notice",
				"notice", n.Notice,
				"market", n.Order.Market,
				"uuid", n.Order.UUID,
			)
		})
	})

	healthPort := 8080
	if cfg.Metrics.Port > 0 {
		healthPort = cfg.Metrics.Port
	}
	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", healthPort),
		Handler:           createHealthHandler(sess, db, writers, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	wg.Go(func() {
		logger.Info("starting health server", "port", healthPort)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", "error", err)
		}
	})

	wg.Go(func() {
		if err := sess.Run(ctx); err != nil {
			logger.Error("session stopped", "error", err)
		}
	})

	if err := start(ctx, sess, cfg); err != nil {
		logger.Error("startup requests failed", "error", err)
		cancel()
	} else {
		logger.Info("rangerd running",
			"market", cfg.Market.Initial,
			"auth", cfg.Ranger.Auth,
			"health_url", fmt.Sprintf("http://localhost:%d/health", healthPort),
		)
	}

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	// The session closes the sinks on exit, which ends every consumer.
	<-sess.Done()
	wg.Wait()

	logger.Info("rangerd stopped")
	return nil
}

// start issues the configured startup requests.
func start(ctx context.Context, sess *session.Session, cfg *config.RangerConfig) error {
	if err := sess.Connect(ctx, cfg.Ranger.Auth); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if cfg.Market.Initial == "" {
		return nil
	}
	if err := sess.SelectMarket(cfg.Market.Initial); err != nil {
		return fmt.Errorf("select market %s: %w", cfg.Market.Initial, err)
	}
	for _, period := range cfg.Market.Klines {
		if err := sess.SubscribeKline(ctx, cfg.Market.Initial, period); err != nil {
			return fmt.Errorf("subscribe kline %s: %w", period, err)
		}
	}
	return nil
}
