package service

import (
	"context"
	"log/slog"

	"github.com/arcwell-foundry/aria/internal/domain/agent"
	"github.com/arcwell-foundry/aria/internal/domain/evaluation"
	"github.com/arcwell-foundry/aria/internal/port/tracestore"
)

// CheckpointRecorder persists partial output and failure context against
// the execution trace on non-terminal failures, so re-delegated work can
// be audited and continued.
type CheckpointRecorder struct {
	traces tracestore.Recorder
}

// NewCheckpointRecorder creates a CheckpointRecorder. traces may be nil,
// in which case Checkpoint is a no-op.
func NewCheckpointRecorder(traces tracestore.Recorder) *CheckpointRecorder {
	return &CheckpointRecorder{traces: traces}
}

// Checkpoint marks the trace re_delegated with the partial output attached.
// Failures from the trace recorder are logged and swallowed: checkpointing
// must never abort the decision pipeline.
func (r *CheckpointRecorder) Checkpoint(ctx context.Context, unitID, ownerID string, role agent.Role, partial map[string]any, failure *evaluation.Failure, traceID string) {
	if r.traces == nil || traceID == "" {
		return
	}

	outputs := map[string]any{
		"partial_results": partial,
		"unit_id":         unitID,
		"owner_id":        ownerID,
		"agent_role":      string(role),
	}
	if failure != nil {
		outputs["failure_kind"] = string(failure.Kind)
		outputs["failure_detail"] = failure.Detail
		outputs["failure_severity"] = failure.Severity
	}

	if err := r.traces.CompleteTrace(ctx, traceID, tracestore.StatusReDelegated, outputs, nil); err != nil {
		slog.Warn("checkpoint trace update failed",
			"unit_id", unitID,
			"trace_id", traceID,
			"error", err,
		)
	}
}
