// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/arcwell-foundry/aria/internal/domain/action"
	"github.com/arcwell-foundry/aria/internal/domain/decision"
)

// Store is the port interface for coordinator persistence.
//
// The conditional update methods (UpdateActionStatus, MarkUndoRequested,
// FinishUndoEntry) are compare-and-swap style: they report whether the
// guarded write landed, and a false return means the caller saw stale state
// and must treat its operation as a no-op. This is what makes the
// request-undo/finalize race safe without explicit locks.
type Store interface {
	// Actions
	CreateAction(ctx context.Context, a *action.Action) error
	GetAction(ctx context.Context, id string) (*action.Action, error)
	UpdateActionStatus(ctx context.Context, id string, from, to action.Status) (bool, error)
	SetActionResult(ctx context.Context, id string, result map[string]any) error

	// Undo buffer
	CreateUndoEntry(ctx context.Context, e *action.UndoEntry) error
	GetUndoEntry(ctx context.Context, actionID string) (*action.UndoEntry, error)
	// MarkUndoRequested sets undo_requested on an entry that has neither
	// been requested nor completed.
	MarkUndoRequested(ctx context.Context, actionID string) (bool, error)
	// FinishUndoEntry sets undo_completed and records the reversal detail.
	// When requireUnrequested is true the write is guarded on
	// undo_requested = false (the finalize path).
	FinishUndoEntry(ctx context.Context, actionID, detail string, requireUnrequested bool) (bool, error)
	// ListExpiredUndoEntries returns at most limit entries whose deadline
	// has passed and which are neither requested nor completed.
	ListExpiredUndoEntries(ctx context.Context, now time.Time, limit int) ([]action.UndoEntry, error)

	// Trust scores
	GetTrustScore(ctx context.Context, ownerID string, category action.Category) (float64, error)
	UpsertTrustScore(ctx context.Context, ownerID string, category action.Category, score float64) error

	// Escalations
	CreateEscalation(ctx context.Context, e *decision.Escalation) error
	ListEscalations(ctx context.Context, limit int) ([]decision.Escalation, error)
}
