package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/arcwell-foundry/aria/internal/port/database"
)

const (
	// DefaultSweepInterval is how often the safety-net sweep runs.
	DefaultSweepInterval = 60 * time.Second

	// DefaultSweepBatch bounds how many expired entries one sweep tick
	// finalizes.
	DefaultSweepBatch = 50
)

// UndoSweeper periodically finalizes undo buffer entries whose deadline
// passed without an undo request. It exists purely as a safety net for
// finalize timers lost to process restarts or scheduler starvation; the
// executor's own timers handle the common case.
type UndoSweeper struct {
	store    database.Store
	executor *TrustGatedExecutor
	interval time.Duration
	batch    int
	now      func() time.Time
}

// NewUndoSweeper creates an UndoSweeper. interval <= 0 and batch <= 0
// select the defaults.
func NewUndoSweeper(store database.Store, executor *TrustGatedExecutor, interval time.Duration, batch int) *UndoSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if batch <= 0 {
		batch = DefaultSweepBatch
	}
	return &UndoSweeper{
		store:    store,
		executor: executor,
		interval: interval,
		batch:    batch,
		now:      time.Now,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *UndoSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep finalizes one bounded batch of expired entries. Per-entry failures
// are logged and do not abort the remaining batch; Finalize's own guards
// make retrying a partially swept entry harmless.
func (s *UndoSweeper) Sweep(ctx context.Context) {
	entries, err := s.store.ListExpiredUndoEntries(ctx, s.now().UTC(), s.batch)
	if err != nil {
		slog.Error("undo sweep query failed", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	finalized := 0
	for _, entry := range entries {
		if err := s.executor.Finalize(ctx, entry.ActionID, entry.OwnerID); err != nil {
			slog.Warn("sweep finalize failed",
				"action_id", entry.ActionID,
				"deadline", entry.Deadline,
				"error", err,
			)
			continue
		}
		finalized++
	}

	slog.Info("undo sweep completed", "expired", len(entries), "finalized", finalized)
}
