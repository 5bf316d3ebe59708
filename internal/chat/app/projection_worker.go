package app

import (
	"context"
	"time"

	"old_vibes/pkg/logger"

	"go.uber.org/zap"
)

const defaultProjectionBatch = 100

// Reconciler applies unprojected messages to their conversation metadata
type Reconciler interface {
	ReconcileOnce(ctx context.Context, limit int) (int, error)
}

// ProjectionWorker periodically reconciles conversation metadata with inserted messages
type ProjectionWorker struct {
	Store    Reconciler
	Interval time.Duration
	Batch    int
}

// NewProjectionWorker create ProjectionWorker
func NewProjectionWorker(store Reconciler, interval time.Duration) *ProjectionWorker {
	return &ProjectionWorker{Store: store, Interval: interval, Batch: defaultProjectionBatch}
}

// Run until ctx is cancelled; a failed pass is logged and retried on the next tick
func (w *ProjectionWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain keep reconciling while full batches come back
func (w *ProjectionWorker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.Store.ReconcileOnce(ctx, w.batch())
		if err != nil {
			logger.Log.Error("projection pass failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Log.Debug("projection pass", zap.Int("applied", n))
		}
		if n < w.batch() {
			return
		}
	}
}

func (w *ProjectionWorker) interval() time.Duration {
	if w.Interval <= 0 {
		return 2 * time.Second
	}
	return w.Interval
}

func (w *ProjectionWorker) batch() int {
	if w.Batch <= 0 {
		return defaultProjectionBatch
	}
	return w.Batch
}
