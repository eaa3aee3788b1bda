package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/ranger/internal/metrics"
	"github.com/rickgao/ranger/internal/router"
)

// batchWriter drains a sink of M, turns each message into rows of R, and
// inserts them in batches.
type batchWriter[M, R any] struct {
	name    string
	cfg     WriterConfig
	logger  *slog.Logger
	metrics *metrics.Recorder

	// Input from the router sinks
	input *router.GrowableBuffer[M]

	db        BatchSender
	transform func(M) []R
	queue     func(b *pgx.Batch, r R)

	// Batching
	batch       []R
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats WriterMetrics
}

func newBatchWriter[M, R any](
	name string,
	cfg WriterConfig,
	input *router.GrowableBuffer[M],
	db BatchSender,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *batchWriter[M, R] {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultWriterConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultWriterConfig().FlushInterval
	}
	return &batchWriter[M, R]{
		name:    name,
		cfg:     cfg,
		input:   input,
		db:      db,
		metrics: rec,
		logger:  logger.With("component", name+"_writer"),
		batch:   make([]R, 0, cfg.BatchSize),
	}
}

// Start begins consuming messages and writing to the database.
func (w *batchWriter[M, R]) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts the writer down and flushes what is left. The final flush runs
// on ctx since the writer's own context is already cancelled. It returns an
// error when ctx expires before the loops exit.
func (w *batchWriter[M, R]) Stop(ctx context.Context) error {
	w.logger.Info("stopping writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		w.logger.Info("writer stopped")
	case <-ctx.Done():
		w.logger.Warn("writer stop timed out")
		err = fmt.Errorf("stop %s writer: %w", w.name, ctx.Err())
	}

	for _, msg := range w.input.DrainTo(0) {
		w.add(msg)
	}
	w.flush(ctx)
	return err
}

// Stats returns current metrics.
func (w *batchWriter[M, R]) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// consumeLoop drains the input buffer. The buffer is polled so the loop
// notices cancellation without the buffer being closed.
func (w *batchWriter[M, R]) consumeLoop() {
	defer w.wg.Done()

	for {
		msgs := w.input.DrainTo(w.cfg.BatchSize)
		if len(msgs) == 0 {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
				continue
			}
		}

		for _, msg := range msgs {
			if w.add(msg) {
				w.flush(w.ctx)
			}
		}
		if w.ctx.Err() != nil {
			return
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *batchWriter[M, R]) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// add transforms msg into rows and reports whether the batch is full.
func (w *batchWriter[M, R]) add(msg M) bool {
	rows := w.transform(msg)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.stats.Received++
	w.batch = append(w.batch, rows...)
	return len(w.batch) >= w.cfg.BatchSize
}

// flush writes the current batch to the database.
func (w *batchWriter[M, R]) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]R, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()
	conflicts, err := w.batchInsert(ctx, batch)
	elapsed := time.Since(start)
	w.metrics.WriterFlush(ctx, w.name, len(batch)-conflicts, float64(elapsed.Microseconds())/1000, err)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	if err != nil {
		w.stats.Errors++
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		return
	}
	w.stats.Inserts += int64(len(batch) - conflicts)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++

	w.logger.Debug("flushed batch",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", elapsed,
	)
}

// batchInsert sends rows in one pgx.Batch. Rows skipped by ON CONFLICT DO
// NOTHING are counted as conflicts.
func (w *batchWriter[M, R]) batchInsert(ctx context.Context, rows []R) (conflicts int, err error) {
	if w.db == nil {
		return 0, ErrNoDatabase
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		w.queue(batch, r)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	return conflicts, nil
}
