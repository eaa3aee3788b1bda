package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/ranger/internal/config"
	"github.com/rickgao/ranger/internal/router"
)

func TestSupervisorConfig(t *testing.T) {
	cfg := &config.RangerConfig{}
	cfg.Ranger.BaseURL = "wss://example.com/api/v2/ranger"
	cfg.Ranger.Token = "tok"
	cfg.Ranger.PingTimeout = 45 * time.Second
	cfg.Mailbox.MaxPending = 32
	cfg.Mailbox.ControlRate = 5

	sc := supervisorConfig(cfg)
	if sc.BaseURL != cfg.Ranger.BaseURL || sc.Token != "tok" {
		t.Errorf("BaseURL, Token = %q, %q", sc.BaseURL, sc.Token)
	}
	if sc.Client.PingTimeout != 45*time.Second {
		t.Errorf("PingTimeout = %v, want 45s", sc.Client.PingTimeout)
	}
	if sc.Client.BufferSize != 1024 {
		t.Errorf("BufferSize = %d, want default 1024", sc.Client.BufferSize)
	}
	if sc.MaxPending != 32 || sc.ControlRate != 5 {
		t.Errorf("MaxPending, ControlRate = %d, %v", sc.MaxPending, sc.ControlRate)
	}
}

func TestRouterConfig(t *testing.T) {
	cfg := &config.RangerConfig{}
	cfg.Router.TradeBuffer = 10
	cfg.Router.MaxBuffer = 100
	cfg.Ranger.OrderNotices = true

	rc := routerConfig(cfg)
	if rc.TradeBufferSize != 10 || rc.MaxBufferSize != 100 || !rc.OrderNotices {
		t.Errorf("routerConfig() = %+v", rc)
	}
}

func TestUnboundedCaps(t *testing.T) {
	cfg := &config.RangerConfig{}
	cfg.Mailbox.MaxPending = -1
	cfg.Router.MaxBuffer = -1

	if got := supervisorConfig(cfg).MaxPending; got != 0 {
		t.Errorf("MaxPending = %d, want 0 (unbounded)", got)
	}
	if got := routerConfig(cfg).MaxBufferSize; got != 0 {
		t.Errorf("MaxBufferSize = %d, want 0 (unbounded)", got)
	}
}

func TestConsume(t *testing.T) {
	buf := router.NewGrowableBuffer[int](4)
	buf.Send(1)
	buf.Send(2)
	buf.Close()

	var got []int
	consume(buf, func(v int) { got = append(got, v) })

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("consumed %v, want [1 2]", got)
	}
}

type stopFunc func(ctx context.Context) error

func (f stopFunc) Stop(ctx context.Context) error { return f(ctx) }

func TestStopWriter(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, nil))

	var deadline bool
	stopWriter("trades", stopFunc(func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return errors.New("flush timed out")
	}), time.Second, logger)

	if !deadline {
		t.Error("Stop ctx has no deadline")
	}
	logged := out.String()
	for _, want := range []string{`msg="writer stop"`, "writer=trades", `error="flush timed out"`} {
		if !strings.Contains(logged, want) {
			t.Errorf("log = %q, missing %s", logged, want)
		}
	}

	out.Reset()
	stopWriter("tickers", stopFunc(func(context.Context) error { return nil }), time.Second, logger)
	if out.Len() != 0 {
		t.Errorf("log = %q after clean stop, want nothing", out.String())
	}
}
