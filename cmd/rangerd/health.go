package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rickgao/ranger/internal/session"
	"github.com/rickgao/ranger/internal/version"
	"github.com/rickgao/ranger/internal/writer"
)

type snapshotter interface {
	Snapshot() session.Snapshot
}

type pinger interface {
	Ping(ctx context.Context) error
}

type statser interface {
	Stats() writer.WriterMetrics
}

type healthResponse struct {
	Status   string                          `json:"status"`
	Version  version.Info                    `json:"version"`
	Session  session.Snapshot                `json:"session"`
	Database string                          `json:"database,omitempty"`
	DBError  string                          `json:"database_error,omitempty"`
	Writers  map[string]writer.WriterMetrics `json:"writers,omitempty"`
}

// createHealthHandler creates the HTTP handler for health checks. db may be
// nil when the recorder is disabled.
func createHealthHandler(sess snapshotter, db pinger, writers map[string]statser, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := healthResponse{
			Status:  "healthy",
			Version: version.Get(),
			Session: sess.Snapshot(),
		}

		if health.Session.State != "open" {
			health.Status = "degraded"
		}

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Database = "disconnected"
				health.DBError = err.Error()
			} else {
				health.Database = "connected"
			}
		}

		if len(writers) > 0 {
			health.Writers = make(map[string]writer.WriterMetrics, len(writers))
			for name, wr := range writers {
				health.Writers[name] = wr.Stats()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Warn("encode health response", "error", err)
		}
	})

	return mux
}
