package postgres

import (
	"context"
	"time"

	"github.com/arcwell-foundry/aria/internal/domain/action"
)

// CreateUndoEntry inserts the undo buffer row for a reversible execution.
func (s *Store) CreateUndoEntry(ctx context.Context, e *action.UndoEntry) error {
	const q = `INSERT INTO undo_buffer
		(id, action_id, owner_id, category, executed_at, deadline, undo_requested, undo_completed, reversal_detail)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.pool.Exec(ctx, q,
		e.ID, e.ActionID, e.OwnerID, string(e.Category),
		e.ExecutedAt, e.Deadline, e.UndoRequested, e.UndoCompleted, e.ReversalDetail,
	)
	return err
}

// GetUndoEntry retrieves the undo entry for an action.
func (s *Store) GetUndoEntry(ctx context.Context, actionID string) (*action.UndoEntry, error) {
	const q = `SELECT id, action_id, owner_id, category, executed_at, deadline,
		undo_requested, undo_completed, reversal_detail
		FROM undo_buffer WHERE action_id = $1`
	e := &action.UndoEntry{}
	err := s.pool.QueryRow(ctx, q, actionID).Scan(
		&e.ID, &e.ActionID, &e.OwnerID, &e.Category, &e.ExecutedAt, &e.Deadline,
		&e.UndoRequested, &e.UndoCompleted, &e.ReversalDetail,
	)
	if err != nil {
		return nil, notFoundWrap(err, "get undo entry for action %s", actionID)
	}
	return e, nil
}

// MarkUndoRequested flags the entry as undo-requested. The write is
// guarded on the entry being neither requested nor completed, so exactly
// one of a racing request-undo and finalize wins.
func (s *Store) MarkUndoRequested(ctx context.Context, actionID string) (bool, error) {
	const q = `UPDATE undo_buffer SET undo_requested = TRUE
		WHERE action_id = $1 AND undo_requested = FALSE AND undo_completed = FALSE`
	tag, err := s.pool.Exec(ctx, q, actionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FinishUndoEntry marks the entry resolved and records the reversal
// detail. With requireUnrequested (the finalize path) the write is
// additionally guarded on undo_requested = FALSE.
func (s *Store) FinishUndoEntry(ctx context.Context, actionID, detail string, requireUnrequested bool) (bool, error) {
	q := `UPDATE undo_buffer SET undo_completed = TRUE, reversal_detail = $2
		WHERE action_id = $1 AND undo_completed = FALSE`
	if requireUnrequested {
		q += ` AND undo_requested = FALSE`
	}
	tag, err := s.pool.Exec(ctx, q, actionID, detail)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpiredUndoEntries returns up to limit unresolved entries whose
// deadline has passed, oldest first.
func (s *Store) ListExpiredUndoEntries(ctx context.Context, now time.Time, limit int) ([]action.UndoEntry, error) {
	const q = `SELECT id, action_id, owner_id, category, executed_at, deadline,
		undo_requested, undo_completed, reversal_detail
		FROM undo_buffer
		WHERE undo_requested = FALSE AND undo_completed = FALSE AND deadline < $1
		ORDER BY deadline ASC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []action.UndoEntry
	for rows.Next() {
		var e action.UndoEntry
		if err := rows.Scan(
			&e.ID, &e.ActionID, &e.OwnerID, &e.Category, &e.ExecutedAt, &e.Deadline,
			&e.UndoRequested, &e.UndoCompleted, &e.ReversalDetail,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
