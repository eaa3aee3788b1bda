package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/rickgao/ranger/internal/session"
	"github.com/rickgao/ranger/internal/writer"
)

type fakeSession struct{ snap session.Snapshot }

func (f fakeSession) Snapshot() session.Snapshot { return f.snap }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeWriter struct{ m writer.WriterMetrics }

func (f fakeWriter) Stats() writer.WriterMetrics { return f.m }

func getHealth(t *testing.T, h http.Handler) (int, healthResponse) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return rr.Code, resp
}

func TestHealth_Open(t *testing.T) {
	sess := fakeSession{session.Snapshot{
		State:         "open",
		Mode:          "public",
		Market:        "btcusdt",
		Subscriptions: []string{"btcusdt.trades", "btcusdt.update", "global.tickers"},
	}}
	writers := map[string]statser{"trades": fakeWriter{writer.WriterMetrics{Inserts: 12}}}

	code, resp := getHealth(t, createHealthHandler(sess, fakePinger{}, writers, slog.Default()))

	if code != http.StatusOK {
		t.Errorf("status code = %d, want 200", code)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if resp.Session.Market != "btcusdt" || len(resp.Session.Subscriptions) != 3 {
		t.Errorf("Session = %+v", resp.Session)
	}
	if resp.Database != "connected" {
		t.Errorf("Database = %q, want connected", resp.Database)
	}
	if resp.Writers["trades"].Inserts != 12 {
		t.Errorf("trades inserts = %d, want 12", resp.Writers["trades"].Inserts)
	}
	if resp.Version.Version == "" {
		t.Error("Version should be set")
	}
}

func TestHealth_Connecting(t *testing.T) {
	sess := fakeSession{session.Snapshot{State: "connecting"}}
	code, resp := getHealth(t, createHealthHandler(sess, nil, nil, slog.Default()))

	if code != http.StatusOK {
		t.Errorf("status code = %d, want 200", code)
	}
	if resp.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", resp.Status)
	}
	if resp.Database != "" {
		t.Errorf("Database = %q, want empty without a recorder", resp.Database)
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	sess := fakeSession{session.Snapshot{State: "open"}}
	code, resp := getHealth(t, createHealthHandler(sess, fakePinger{errors.New("dial tcp: refused")}, nil, slog.Default()))

	if code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want 503", code)
	}
	if resp.Status != "unhealthy" || resp.DBError == "" {
		t.Errorf("resp = %+v, want unhealthy with error", resp)
	}
}
