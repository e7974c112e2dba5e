package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/siteops/internal/store"
)

// FlushWorker periodically re-persists the snapshot whenever the last
// durable write failed. Mutations succeed even when the database is
// briefly unavailable; this loop closes the gap once it comes back.
type FlushWorker struct {
	store    *store.Store
	logger   *slog.Logger
	interval time.Duration
}

// NewFlushWorker creates a new flush worker
func NewFlushWorker(st *store.Store, logger *slog.Logger, interval time.Duration) *FlushWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &FlushWorker{
		store:    st,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the flush worker loop
func (w *FlushWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("flush worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("flush worker stopped")
			return
		case <-ticker.C:
			w.flushIfLagging(ctx)
		}
	}
}

func (w *FlushWorker) flushIfLagging(ctx context.Context) {
	if w.store.LastSaveErr() == nil {
		return
	}
	w.logger.Info("retrying snapshot persistence after failed save")
	if err := w.store.Flush(ctx); err != nil {
		w.logger.Warn("snapshot flush still failing", slog.String("error", err.Error()))
		return
	}
	w.logger.Info("snapshot persistence recovered")
}
