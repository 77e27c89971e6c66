package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	otelx "github.com/arcwell-foundry/aria/internal/adapter/otel"
	"github.com/arcwell-foundry/aria/internal/domain"
	"github.com/arcwell-foundry/aria/internal/domain/action"
	"github.com/arcwell-foundry/aria/internal/port/database"
	"github.com/arcwell-foundry/aria/internal/port/dispatch"
	"github.com/arcwell-foundry/aria/internal/port/notifier"
	"github.com/arcwell-foundry/aria/internal/port/trust"
)

// DefaultUndoWindow is the grace period during which a reversible action
// may be rolled back.
const DefaultUndoWindow = 300 * time.Second

var (
	// ErrNoUndoEntry is returned when no undo buffer entry exists for the
	// action.
	ErrNoUndoEntry = errors.New("no undo entry for action")

	// ErrUndoAlreadyRequested is returned when an undo was already
	// requested for the action.
	ErrUndoAlreadyRequested = errors.New("undo already requested")

	// ErrUndoWindowExpired is returned when the undo deadline has passed.
	ErrUndoWindowExpired = errors.New("undo window expired")
)

// TrustGatedExecutor commits accepted actions. Depending on trust and
// risk it executes immediately or executes with a time-boxed reversal
// window, and it owns the request-undo / finalize state machine for
// reversible actions.
//
// RequestUndo and Finalize may race for the same action; exactly one of
// them performs the terminal transition because both go through the
// store's conditional updates and treat a stale read as a no-op.
type TrustGatedExecutor struct {
	store      database.Store
	dispatcher dispatch.Dispatcher
	trust      trust.Service
	notifiers  *notifier.Registry
	metrics    *otelx.Metrics

	undoWindow time.Duration
	timers     sync.Map // action id -> *time.Timer
	now        func() time.Time
}

// NewTrustGatedExecutor creates a TrustGatedExecutor. notifiers and
// metrics may be nil; undoWindow <= 0 selects the default 300s window.
func NewTrustGatedExecutor(
	store database.Store,
	dispatcher dispatch.Dispatcher,
	trustSvc trust.Service,
	notifiers *notifier.Registry,
	metrics *otelx.Metrics,
	undoWindow time.Duration,
) *TrustGatedExecutor {
	if undoWindow <= 0 {
		undoWindow = DefaultUndoWindow
	}
	return &TrustGatedExecutor{
		store:      store,
		dispatcher: dispatcher,
		trust:      trustSvc,
		notifiers:  notifiers,
		metrics:    metrics,
		undoWindow: undoWindow,
		now:        time.Now,
	}
}

// DetermineMode selects the execution mode for an action category by
// consulting the trust service.
func (e *TrustGatedExecutor) DetermineMode(ctx context.Context, ownerID string, category action.Category, risk float64) (action.ExecutionMode, error) {
	return e.trust.ApprovalLevel(ctx, ownerID, category, risk)
}

// Execute runs the action and commits it immediately. A dispatch error
// propagates and leaves the action in executing status; the caller must
// surface it as a user-visible failure.
func (e *TrustGatedExecutor) Execute(ctx context.Context, a *action.Action) (map[string]any, error) {
	result, err := e.runDispatch(ctx, a)
	if err != nil {
		return nil, err
	}

	if _, err := e.store.UpdateActionStatus(ctx, a.ID, action.StatusExecuting, action.StatusCompleted); err != nil {
		return nil, fmt.Errorf("complete action %s: %w", a.ID, err)
	}
	if err := e.trust.RecordSuccess(ctx, a.OwnerID, a.Category); err != nil {
		slog.Warn("trust success update failed", "action_id", a.ID, "error", err)
	}
	return result, nil
}

// ExecuteWithUndo runs the action but leaves it reversible: status becomes
// undo_pending, an undo buffer entry is installed with a deadline, and a
// one-shot timer finalizes the action when the window elapses. Trust is
// not updated here; that is deferred to Finalize or RequestUndo.
func (e *TrustGatedExecutor) ExecuteWithUndo(ctx context.Context, a *action.Action) (map[string]any, error) {
	result, err := e.runDispatch(ctx, a)
	if err != nil {
		return nil, err
	}

	if _, err := e.store.UpdateActionStatus(ctx, a.ID, action.StatusExecuting, action.StatusUndoPending); err != nil {
		return nil, fmt.Errorf("mark action %s undo_pending: %w", a.ID, err)
	}

	executedAt := e.now().UTC()
	entry := &action.UndoEntry{
		ID:         uuid.NewString(),
		ActionID:   a.ID,
		OwnerID:    a.OwnerID,
		Category:   a.Category,
		ExecutedAt: executedAt,
		Deadline:   executedAt.Add(e.undoWindow),
	}
	if err := e.store.CreateUndoEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create undo entry for %s: %w", a.ID, err)
	}

	e.notify(ctx, notifier.Event{
		Type:     notifier.EventExecutedUndoable,
		OwnerID:  a.OwnerID,
		ActionID: a.ID,
		Message:  fmt.Sprintf("%s executed; reversible until %s", a.Category, entry.Deadline.Format(time.RFC3339)),
		Level:    "info",
	})

	// Direct timer for the happy path. The periodic sweep is the backstop
	// for timers lost to restarts; Finalize's guards keep both idempotent.
	actionID, ownerID := a.ID, a.OwnerID
	timer := time.AfterFunc(e.undoWindow, func() {
		if err := e.Finalize(context.Background(), actionID, ownerID); err != nil {
			slog.Error("deferred finalize failed", "action_id", actionID, "error", err)
		}
	})
	e.timers.Store(a.ID, timer)

	return result, nil
}

// RequestUndo attempts a user-triggered reversal of an undo-pending
// action. Reversal errors are reported in the outcome, never raised; the
// returned error covers only the guard failures (no entry, already
// requested, window expired) and storage faults.
func (e *TrustGatedExecutor) RequestUndo(ctx context.Context, actionID, ownerID string) (*action.ReversalOutcome, error) {
	entry, err := e.store.GetUndoEntry(ctx, actionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrNoUndoEntry
		}
		return nil, fmt.Errorf("load undo entry for %s: %w", actionID, err)
	}

	if entry.UndoRequested {
		return nil, ErrUndoAlreadyRequested
	}
	if e.now().After(entry.Deadline) {
		return nil, ErrUndoWindowExpired
	}

	ok, err := e.store.MarkUndoRequested(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("mark undo requested for %s: %w", actionID, err)
	}
	if !ok {
		// Lost the race against a concurrent request or finalize.
		return nil, ErrUndoAlreadyRequested
	}

	if t, loaded := e.timers.LoadAndDelete(actionID); loaded {
		t.(*time.Timer).Stop()
	}

	a, err := e.store.GetAction(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("load action %s: %w", actionID, err)
	}

	outcome := e.reverse(ctx, a)

	if _, err := e.store.FinishUndoEntry(ctx, actionID, outcome.Reason, false); err != nil {
		slog.Warn("record reversal outcome failed", "action_id", actionID, "error", err)
	}

	// Successful reversal marks the action failed (undone); a refused or
	// impossible reversal leaves the work in place as completed.
	terminal := action.StatusCompleted
	if outcome.Reversed {
		terminal = action.StatusFailed
	}
	if _, err := e.store.UpdateActionStatus(ctx, actionID, action.StatusUndoPending, terminal); err != nil {
		slog.Warn("terminal status transition failed", "action_id", actionID, "error", err)
	}

	if err := e.trust.RecordOverride(ctx, ownerID, a.Category); err != nil {
		slog.Warn("trust override update failed", "action_id", actionID, "error", err)
	}

	e.notify(ctx, notifier.Event{
		Type:     notifier.EventUndoOutcome,
		OwnerID:  ownerID,
		ActionID: actionID,
		Message:  fmt.Sprintf("undo of %s: %s", a.Category, outcome.Reason),
		Level:    undoLevel(outcome),
	})
	if e.metrics != nil {
		e.metrics.UndoRequests.Add(ctx, 1)
	}

	return &outcome, nil
}

// Finalize commits an undo-pending action whose window elapsed without an
// undo. It is a no-op when the undo was requested or the action already
// left undo_pending, which makes it safe for the timer, the sweep, and a
// restart-duplicated timer to all call it.
func (e *TrustGatedExecutor) Finalize(ctx context.Context, actionID, ownerID string) error {
	defer e.timers.Delete(actionID)

	entry, err := e.store.GetUndoEntry(ctx, actionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load undo entry for %s: %w", actionID, err)
	}
	if entry.UndoRequested || entry.UndoCompleted {
		return nil
	}

	a, err := e.store.GetAction(ctx, actionID)
	if err != nil {
		return fmt.Errorf("load action %s: %w", actionID, err)
	}
	if a.Status != action.StatusUndoPending {
		return nil
	}

	// Claim the entry before touching action status. The claim is guarded
	// on undo_requested = FALSE, so a racing in-window undo that marked
	// the entry after our reads above wins here and this finalize backs
	// off without committing anything.
	claimed, err := e.store.FinishUndoEntry(ctx, actionID, "finalized without undo", true)
	if err != nil {
		return fmt.Errorf("claim undo entry for %s: %w", actionID, err)
	}
	if !claimed {
		return nil
	}

	ok, err := e.store.UpdateActionStatus(ctx, actionID, action.StatusUndoPending, action.StatusCompleted)
	if err != nil {
		return fmt.Errorf("finalize action %s: %w", actionID, err)
	}
	if !ok {
		slog.Warn("finalize owned the undo entry but the action left undo_pending", "action_id", actionID)
		return nil
	}
	if err := e.trust.RecordSuccess(ctx, ownerID, a.Category); err != nil {
		slog.Warn("trust success update failed", "action_id", actionID, "error", err)
	}
	if e.metrics != nil {
		e.metrics.UndoFinalized.Add(ctx, 1)
	}

	slog.Info("action finalized", "action_id", actionID, "category", a.Category)
	return nil
}

// Close cancels all outstanding finalize timers. Pending entries are
// picked up by the sweep after restart.
func (e *TrustGatedExecutor) Close() {
	e.timers.Range(func(key, value any) bool {
		value.(*time.Timer).Stop()
		e.timers.Delete(key)
		return true
	})
}

// runDispatch transitions queued -> executing and performs the unit of
// work. Dispatch errors are not swallowed.
func (e *TrustGatedExecutor) runDispatch(ctx context.Context, a *action.Action) (map[string]any, error) {
	ok, err := e.store.UpdateActionStatus(ctx, a.ID, action.StatusQueued, action.StatusExecuting)
	if err != nil {
		return nil, fmt.Errorf("start action %s: %w", a.ID, err)
	}
	if !ok {
		return nil, fmt.Errorf("action %s is not queued: %w", a.ID, domain.ErrConflict)
	}

	start := e.now()
	result, err := e.dispatcher.Dispatch(ctx, a)
	if e.metrics != nil {
		e.metrics.DispatchDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", a.ID, err)
	}

	a.Result = result
	if err := e.store.SetActionResult(ctx, a.ID, result); err != nil {
		return nil, fmt.Errorf("record result for %s: %w", a.ID, err)
	}
	return result, nil
}

// reverse applies the per-category reversal table.
func (e *TrustGatedExecutor) reverse(ctx context.Context, a *action.Action) action.ReversalOutcome {
	if a.ExternallyCommitted() {
		return action.ReversalOutcome{Reversed: false, Reason: "irreversible"}
	}

	switch a.Category {
	case action.CategoryResearch, action.CategoryLeadDiscovery:
		// Read-only work leaves nothing behind.
		return action.ReversalOutcome{Reversed: true, Reason: "no reversal needed"}

	case action.CategoryEmailDraft, action.CategoryContentDraft:
		return action.ReversalOutcome{Reversed: true, Reason: "draft discarded"}

	case action.CategoryCRMUpdate:
		if len(a.PreviousState) == 0 {
			return action.ReversalOutcome{Reversed: false, Reason: "no_previous_state"}
		}
		revert := &action.Action{
			ID:       uuid.NewString(),
			OwnerID:  a.OwnerID,
			Category: a.Category,
			Status:   action.StatusExecuting,
			Payload: map[string]any{
				"revert_to":          a.PreviousState,
				"original_action_id": a.ID,
			},
		}
		if _, err := e.dispatcher.Dispatch(ctx, revert); err != nil {
			return action.ReversalOutcome{Reversed: false, Reason: fmt.Sprintf("revert dispatch failed: %v", err)}
		}
		return action.ReversalOutcome{Reversed: true, Reason: "reverted to previous state"}
	}

	return action.ReversalOutcome{Reversed: false, Reason: "unknown_action_type"}
}

func (e *TrustGatedExecutor) notify(ctx context.Context, ev notifier.Event) {
	if e.notifiers == nil {
		return
	}
	e.notifiers.Broadcast(ctx, ev)
}

func undoLevel(o action.ReversalOutcome) string {
	if o.Reversed {
		return "info"
	}
	return "warning"
}
