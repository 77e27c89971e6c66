package postgres

import (
	"context"
	"time"

	"github.com/arcwell-foundry/aria/internal/domain/action"
)

// CreateAction inserts a new action record.
func (s *Store) CreateAction(ctx context.Context, a *action.Action) error {
	const q = `INSERT INTO actions
		(id, owner_id, category, status, payload, result, previous_state, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := s.pool.Exec(ctx, q,
		a.ID, a.OwnerID, string(a.Category), string(a.Status),
		a.Payload, a.Result, a.PreviousState, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// GetAction retrieves an action by ID.
func (s *Store) GetAction(ctx context.Context, id string) (*action.Action, error) {
	const q = `SELECT id, owner_id, category, status, payload, result, previous_state, created_at, updated_at
		FROM actions WHERE id = $1`
	a := &action.Action{}
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.OwnerID, &a.Category, &a.Status,
		&a.Payload, &a.Result, &a.PreviousState, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, notFoundWrap(err, "get action %s", id)
	}
	return a, nil
}

// UpdateActionStatus transitions an action from one status to another.
// The update is guarded on the current status: a false return means the
// action was no longer in the from status and nothing was written.
func (s *Store) UpdateActionStatus(ctx context.Context, id string, from, to action.Status) (bool, error) {
	const q = `UPDATE actions SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`
	tag, err := s.pool.Exec(ctx, q, id, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetActionResult records the dispatch result payload.
func (s *Store) SetActionResult(ctx context.Context, id string, result map[string]any) error {
	const q = `UPDATE actions SET result = $2, updated_at = now() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, result)
	return err
}
