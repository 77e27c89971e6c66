// Package tracestore defines the execution trace recorder port (interface).
package tracestore

import (
	"context"

	"github.com/arcwell-foundry/aria/internal/domain/agent"
	"github.com/arcwell-foundry/aria/internal/port/verifier"
)

// Status is the terminal status recorded for a trace.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusReDelegated marks a trace whose work was checkpointed and
	// handed to another agent: terminal for this trace, recoverable for
	// the unit of work.
	StatusReDelegated Status = "re_delegated"
)

// Recorder records execution traces for audit and continuation.
type Recorder interface {
	StartTrace(ctx context.Context, unitID, ownerID string, role agent.Role) (string, error)
	CompleteTrace(ctx context.Context, traceID string, status Status, outputs map[string]any, verification *verifier.Result) error
}
