package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// SessionSweeper deletes sessions whose expiry has passed.
type SessionSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// WindowSweeper evicts elapsed abuse or rate-limit windows.
type WindowSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Worker periodically evicts expired state. Lazy eviction on access keeps
// the system correct without it; the worker only bounds memory for keys
// that are never touched again.
type Worker struct {
	sessions SessionSweeper
	windows  []WindowSweeper
	interval time.Duration
	logger   *slog.Logger
}

func New(sessions SessionSweeper, interval time.Duration, logger *slog.Logger, windows ...WindowSweeper) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		sessions: sessions,
		windows:  windows,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until the context is canceled, sweeping on each tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	now := time.Now()

	if w.sessions != nil {
		deleted, err := w.sessions.DeleteExpired(ctx, now)
		if err != nil {
			w.logger.Error("failed to delete expired sessions", "error", err)
		} else if deleted > 0 {
			w.logger.Debug("deleted expired sessions", "count", deleted)
		}
	}

	for _, sweeper := range w.windows {
		removed, err := sweeper.Sweep(ctx, now)
		if err != nil {
			w.logger.Error("failed to sweep expired windows", "error", err)
		} else if removed > 0 {
			w.logger.Debug("swept expired windows", "count", removed)
		}
	}
}
