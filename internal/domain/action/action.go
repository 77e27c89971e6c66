// Package action defines the executable action entity, its status machine,
// and the undo buffer entry that makes some actions reversible.
package action

import "time"

// Status represents the current state of an action.
// Transitions are monotonic (queued → executing → completed | undo_pending
// → completed | failed) except that undo_pending resolves to failed on a
// successful reversal or completed when the reversal is refused or the
// window expires.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusExecuting   Status = "executing"
	StatusCompleted   Status = "completed"
	StatusUndoPending Status = "undo_pending"
	StatusFailed      Status = "failed"
)

// Category classifies an action for trust gating and reversal handling.
type Category string

const (
	CategoryResearch      Category = "research"
	CategoryLeadDiscovery Category = "lead_discovery"
	CategoryEmailDraft    Category = "email_draft"
	CategoryContentDraft  Category = "content_draft"
	CategoryCRMUpdate     Category = "crm_update"
)

// ExecutionMode is the trust-gated execution mode selected for an action.
type ExecutionMode string

const (
	ModeAutoExecute      ExecutionMode = "auto_execute"
	ModeExecuteAndNotify ExecutionMode = "execute_and_notify"
	ModeApprovePlan      ExecutionMode = "approve_plan"
	ModeApproveEach      ExecutionMode = "approve_each"
)

// Action is a unit of committed work dispatched to an agent backend.
type Action struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"owner_id"`
	Category      Category       `json:"category"`
	Status        Status         `json:"status"`
	Payload       map[string]any `json:"payload,omitempty"`
	Result        map[string]any `json:"result,omitempty"`
	PreviousState map[string]any `json:"previous_state,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ExternallyCommitted reports whether the action's result was flagged as
// committed to an external system, which makes it irreversible regardless
// of category.
func (a *Action) ExternallyCommitted() bool {
	if a.Result == nil {
		return false
	}
	v, ok := a.Result["externally_committed"].(bool)
	return ok && v
}

// UndoEntry holds one pending-reversible execution. It is mutated exactly
// once, by either a user-triggered undo or a finalize; both re-check state
// before mutating.
type UndoEntry struct {
	ID             string    `json:"id"`
	ActionID       string    `json:"action_id"`
	OwnerID        string    `json:"owner_id"`
	Category       Category  `json:"category"`
	ExecutedAt     time.Time `json:"executed_at"`
	Deadline       time.Time `json:"deadline"`
	UndoRequested  bool      `json:"undo_requested"`
	UndoCompleted  bool      `json:"undo_completed"`
	ReversalDetail string    `json:"reversal_detail,omitempty"`
}

// ReversalOutcome reports what happened when a reversal was attempted.
type ReversalOutcome struct {
	Reversed bool   `json:"reversed"`
	Reason   string `json:"reason"`
}
