// streamtest connects to a ranger endpoint, selects one market and prints
// routed events to the console.
// Usage: go run ./cmd/streamtest -url wss://host/api/v2/ranger -market btcusdt
//
// Private streams need a session token:
//
//	RANGER_TOKEN - bearer token, read from the environment or a .env file
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/sourcegraph/conc"

	"github.com/rickgao/ranger/internal/connection"
	"github.com/rickgao/ranger/internal/market"
	"github.com/rickgao/ranger/internal/router"
	"github.com/rickgao/ranger/internal/session"
)

func main() {
	url := flag.String("url", "wss://localhost/api/v2/ranger", "ranger base URL")
	marketID := flag.String("market", "btcusdt", "market to select")
	auth := flag.Bool("auth", false, "connect to the private endpoint (needs RANGER_TOKEN)")
	klines := flag.String("klines", "", "comma-separated kline periods, e.g. 1m,15m")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	_ = godotenv.Load()
	token := os.Getenv("RANGER_TOKEN")
	if *auth && token == "" {
		logger.Error("RANGER_TOKEN is required with -auth")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	supCfg := connection.DefaultSupervisorConfig()
	supCfg.BaseURL = *url
	supCfg.Token = token

	sup := connection.NewSupervisor(supCfg, nil, nil, logger)
	sinks := router.NewSinks(router.DefaultRouterConfig())
	sess := session.New(session.DefaultConfig(), sup, market.NewSelection(nil), sinks, nil, logger)

	p := printer{verbose: *verbose}
	var wg conc.WaitGroup
	wg.Go(func() { sess.Run(ctx) })
	wg.Go(func() { drain(sinks.OrderBook, p.orderBook) })
	wg.Go(func() { drain(sinks.Trades, p.trades) })
	wg.Go(func() { drain(sinks.Tickers, p.tickers) })
	wg.Go(func() { drain(sinks.Klines, p.klines) })
	wg.Go(func() { drain(sinks.OrderHistory, func(ev router.UserOrderUpdate) { p.print("ORDER", ev, "") }) })
	wg.Go(func() { drain(sinks.OpenOrders, func(router.UserOrderUpdate) {}) })
	wg.Go(func() { drain(sinks.UserTrades, func(ev router.UserTradePush) { p.print("USER TRADE", ev, "") }) })
	wg.Go(func() { drain(sinks.Wallets, func(ev router.Event) { p.print("WALLET", ev, "") }) })
	wg.Go(func() { drain(sinks.Notices, func(ev router.OrderNotice) { p.print("NOTICE", ev, string(ev.Notice)) }) })

	// Stats printer
	wg.Go(func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap := sess.Snapshot()
				logger.Info("stats",
					"state", snap.State,
					"mode", snap.Mode,
					"market", snap.Market,
					"subscriptions", len(snap.Subscriptions),
					"reconnects", snap.Reconnects,
					"frames", snap.Router.FramesReceived,
					"parse_errors", snap.Router.ParseErrors,
					"sequence_gaps", snap.Router.SequenceGaps,
				)
			}
		}
	})

	if err := sess.Connect(ctx, *auth); err != nil {
		logger.Error("connect failed", "error", err)
		cancel()
	}
	if err := sess.SelectMarket(*marketID); err != nil {
		logger.Error("select market failed", "error", err)
		cancel()
	}
	for _, period := range strings.Split(*klines, ",") {
		if period == "" {
			continue
		}
		if err := sess.SubscribeKline(ctx, *marketID, period); err != nil {
			logger.Error("subscribe kline failed", "period", period, "error", err)
		}
	}

	logger.Info("streaming started - press Ctrl+C to stop", "market", *marketID, "auth", *auth)

	<-ctx.Done()
	logger.Info("shutting down...")
	wg.Wait()
	logger.Info("shutdown complete")
}

func drain[T any](buf *router.GrowableBuffer[T], fn func(T)) {
	for {
		v, ok := buf.Receive()
		if !ok {
			return
		}
		fn(v)
	}
}

type printer struct {
	verbose bool
}

func (p printer) print(tag string, v any, summary string) {
	if p.verbose || summary == "" {
		data, _ := json.MarshalIndent(v, "", "  ")
		fmt.Printf("[%s] %s\n", tag, data)
		return
	}
	fmt.Printf("[%s] %s\n", tag, summary)
}

func (p printer) orderBook(ev router.Event) {
	switch e := ev.(type) {
	case router.OrderBookReplace:
		p.print("ORDERBOOK", e, fmt.Sprintf("market=%s asks=%d bids=%d", e.Market, len(e.Depth.Asks), len(e.Depth.Bids)))
	case router.OrderBookSnapshot:
		p.print("ORDERBOOK SNAPSHOT", e, fmt.Sprintf("market=%s asks=%d bids=%d seq=%d",
			e.Market, len(e.Depth.Asks), len(e.Depth.Bids), seqOf(e.Depth.Sequence)))
	case router.OrderBookIncrement:
		p.print("ORDERBOOK INCREMENT", e, fmt.Sprintf("market=%s asks=%d bids=%d seq=%d",
			e.Market, len(e.Depth.Asks), len(e.Depth.Bids), e.Sequence))
	}
}

func (p printer) trades(ev router.TradesPush) {
	for _, t := range ev.Trades {
		p.print("TRADE", t, fmt.Sprintf("market=%s id=%d side=%s price=%s amount=%s",
			ev.Market, t.ID, t.TakerType, t.Price, t.Amount))
	}
}

func (p printer) tickers(ev router.TickerUpdate) {
	p.print("TICKERS", ev, fmt.Sprintf("markets=%d", len(ev.Tickers)))
}

func (p printer) klines(ev router.KlinePush) {
	for _, k := range ev.Klines {
		p.print("KLINE", k, fmt.Sprintf("market=%s period=%s time=%d close=%s volume=%s",
			ev.Market, ev.Period, k.Time, k.Close, k.Volume))
	}
}

func seqOf(seq *int64) int64 {
	if seq == nil {
		return -1
	}
	return *seq
}
