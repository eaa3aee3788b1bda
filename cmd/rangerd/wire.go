package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/ranger/internal/config"
	"github.com/rickgao/ranger/internal/connection"
	"github.com/rickgao/ranger/internal/metrics"
	"github.com/rickgao/ranger/internal/router"
	"github.com/rickgao/ranger/internal/session"
	"github.com/rickgao/ranger/internal/version"
	"github.com/rickgao/ranger/internal/writer"
)

func supervisorConfig(cfg *config.RangerConfig) connection.SupervisorConfig {
	sc := connection.DefaultSupervisorConfig()
	sc.BaseURL = cfg.Ranger.BaseURL
	sc.Token = cfg.Ranger.Token
	sc.Client.HandshakeTimeout = cfg.Ranger.HandshakeTimeout
	sc.Client.WriteTimeout = cfg.Ranger.WriteTimeout
	sc.Client.PingInterval = cfg.Ranger.PingInterval
	sc.Client.PingTimeout = cfg.Ranger.PingTimeout
	if cfg.Ranger.ReadBuffer > 0 {
		sc.Client.BufferSize = cfg.Ranger.ReadBuffer
	}
	sc.MaxPending = limit(cfg.Mailbox.MaxPending)
	sc.ControlRate = cfg.Mailbox.ControlRate
	sc.ControlBurst = cfg.Mailbox.ControlBurst
	return sc
}

// limit maps a configured cap to the runtime form, where 0 is unbounded.
// The config reserves 0 for the default and spells unbounded as negative.
func limit(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func sessionConfig(cfg *config.RangerConfig) session.Config {
	return session.Config{
		ReconnectDelay:      cfg.Ranger.ReconnectDelay,
		MaxReconnectDelay:   cfg.Ranger.MaxReconnectDelay,
		SubscribeOnInitOnly: cfg.Ranger.SubscribeOnInitOnly,
	}
}

func routerConfig(cfg *config.RangerConfig) router.RouterConfig {
	return router.RouterConfig{
		OrderbookBufferSize: cfg.Router.OrderbookBuffer,
		TradeBufferSize:     cfg.Router.TradeBuffer,
		TickerBufferSize:    cfg.Router.TickerBuffer,
		KlineBufferSize:     cfg.Router.KlineBuffer,
		UserBufferSize:      cfg.Router.UserBuffer,
		MaxBufferSize:       limit(cfg.Router.MaxBuffer),
		OrderNotices:        cfg.Ranger.OrderNotices,
	}
}

func writerConfig(cfg *config.RangerConfig) writer.WriterConfig {
	return writer.WriterConfig{
		BatchSize:     cfg.Writers.BatchSize,
		FlushInterval: cfg.Writers.FlushInterval,
	}
}

func metricsConfig(cfg *config.RangerConfig) metrics.Config {
	return metrics.Config{
		Enabled:     cfg.Metrics.Enabled,
		Endpoint:    cfg.Metrics.Endpoint,
		Insecure:    cfg.Metrics.Insecure,
		Interval:    cfg.Metrics.Interval,
		ServiceName: "ranger",
		InstanceID:  cfg.Instance.ID,
		Version:     version.Version,
	}
}

// consume calls fn for every item until buf is closed.
func consume[T any](buf *router.GrowableBuffer[T], fn func(T)) {
	for {
		item, ok := buf.Receive()
		if !ok {
			return
		}
		fn(item)
	}
}

// logEvent reports events that no writer stores.
func logEvent[T router.Event](logger *slog.Logger) func(T) {
	return func(ev T) {
		logger.Debug("event", "kind", ev.Kind())
	}
}

type stopper interface {
	Stop(ctx context.Context) error
}

// stopWriter stops w, giving its final flush up to timeout.
func stopWriter(name string, w stopper, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		logger.Warn("writer stop", "writer", name, "error", err)
	}
}
