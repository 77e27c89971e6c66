// Package trust defines the trust service port (interface).
//
// Trust scores are read and written only through this interface; the
// coordinator never mutates them directly.
package trust

import (
	"context"

	"github.com/arcwell-foundry/aria/internal/domain/action"
)

// Service gates execution by blending a stored trust score for
// (owner, category) with a numeric risk score, and adjusts the score on
// execution outcomes.
type Service interface {
	// ApprovalLevel selects the execution mode for an action category.
	ApprovalLevel(ctx context.Context, ownerID string, category action.Category, risk float64) (action.ExecutionMode, error)

	// RecordSuccess bumps trust after a finalized or completed execution.
	RecordSuccess(ctx context.Context, ownerID string, category action.Category) error

	// RecordFailure lowers trust after an execution failure.
	RecordFailure(ctx context.Context, ownerID string, category action.Category) error

	// RecordOverride lowers trust slightly after a user-triggered undo.
	// An undo is a course-correction, not necessarily agent error.
	RecordOverride(ctx context.Context, ownerID string, category action.Category) error
}
