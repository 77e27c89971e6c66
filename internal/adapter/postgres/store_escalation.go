package postgres

import (
	"context"

	"github.com/arcwell-foundry/aria/internal/domain/decision"
)

// CreateEscalation inserts an escalation record for the review inbox.
func (s *Store) CreateEscalation(ctx context.Context, e *decision.Escalation) error {
	const q = `INSERT INTO escalations (id, unit_id, agent_role, reason, partial_results, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.pool.Exec(ctx, q,
		e.ID, e.UnitID, string(e.AgentRole), e.Reason, e.PartialResults, e.CreatedAt,
	)
	return err
}

// ListEscalations returns the most recent escalations, newest first.
func (s *Store) ListEscalations(ctx context.Context, limit int) ([]decision.Escalation, error) {
	const q = `SELECT id, unit_id, agent_role, reason, partial_results, created_at
		FROM escalations ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []decision.Escalation
	for rows.Next() {
		var e decision.Escalation
		if err := rows.Scan(&e.ID, &e.UnitID, &e.AgentRole, &e.Reason, &e.PartialResults, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
