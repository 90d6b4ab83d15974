// Package cleanup runs the periodic sweep that evicts expired rate-limit
// records, bounding memory growth of the in-memory store.
package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes expired records and reports how many were evicted.
// The in-memory rate-limit store implements this; the Redis store does not
// need it because key expiry handles eviction server-side.
type Sweeper interface {
	SweepExpired(ctx context.Context) (removed int, err error)
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithInterval sets the sweep interval. Callers should pass the rate-limit
// window so expired records are swept as soon as they lapse; the default is
// the 60 second default window.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// Worker sweeps a store on a fixed ticker, independent of request handling.
type Worker struct {
	store    Sweeper
	logger   *slog.Logger
	interval time.Duration
}

// New creates a sweep worker.
func New(store Sweeper, opts ...Option) *Worker {
	w := &Worker{
		store:    store,
		logger:   slog.Default(),
		interval: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs the sweep loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			removed, err := w.RunOnce(ctx)
			duration := time.Since(start)

			if err != nil {
				w.logger.Error("rate_limit_sweep_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				continue
			}

			w.logger.Info("rate_limit_sweep_completed",
				"records_removed", removed,
				"duration_ms", duration.Milliseconds(),
			)

		case <-ctx.Done():
			w.logger.Info("rate limit sweep worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single sweep. Logging is handled by the caller (Start).
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	return w.store.SweepExpired(ctx)
}
