package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/arcwell-foundry/aria/internal/domain/action"
)

// defaultTrustScore is assumed for an (owner, category) pair that has no
// recorded history yet.
const defaultTrustScore = 0.5

// GetTrustScore returns the stored score, or the neutral default when the
// pair has no row.
func (s *Store) GetTrustScore(ctx context.Context, ownerID string, category action.Category) (float64, error) {
	const q = `SELECT score FROM trust_scores WHERE owner_id = $1 AND category = $2`
	var score float64
	err := s.pool.QueryRow(ctx, q, ownerID, string(category)).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultTrustScore, nil
	}
	if err != nil {
		return 0, err
	}
	return score, nil
}

// UpsertTrustScore writes the score for an (owner, category) pair.
func (s *Store) UpsertTrustScore(ctx context.Context, ownerID string, category action.Category, score float64) error {
	const q = `INSERT INTO trust_scores (owner_id, category, score, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (owner_id, category)
		DO UPDATE SET score = EXCLUDED.score, updated_at = now()`
	_, err := s.pool.Exec(ctx, q, ownerID, string(category), score)
	return err
}
