package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/arcwell-foundry/aria/internal/domain"
	"github.com/arcwell-foundry/aria/internal/domain/agent"
	"github.com/arcwell-foundry/aria/internal/port/tracestore"
	"github.com/arcwell-foundry/aria/internal/port/verifier"
)

// StartTrace opens an execution trace and returns its id.
func (s *Store) StartTrace(ctx context.Context, unitID, ownerID string, role agent.Role) (string, error) {
	const q = `INSERT INTO traces (id, unit_id, owner_id, agent_role, status, started_at)
		VALUES ($1, $2, $3, $4, 'running', now())`
	id := uuid.NewString()
	if _, err := s.pool.Exec(ctx, q, id, unitID, ownerID, string(role)); err != nil {
		return "", err
	}
	return id, nil
}

// CompleteTrace closes a trace with its terminal status and outputs.
func (s *Store) CompleteTrace(ctx context.Context, traceID string, status tracestore.Status, outputs map[string]any, verification *verifier.Result) error {
	const q = `UPDATE traces SET status = $2, outputs = $3, verification = $4, ended_at = now()
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, traceID, string(status), outputs, verification)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete trace %s: %w", traceID, domain.ErrNotFound)
	}
	return nil
}
