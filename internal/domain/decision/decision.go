// Package decision defines the adaptive decision entity produced by the
// decision engine, and the escalation record kept for human review.
package decision

import (
	"time"

	"github.com/arcwell-foundry/aria/internal/domain/agent"
	"github.com/arcwell-foundry/aria/internal/domain/evaluation"
)

// Kind enumerates the five possible decisions.
type Kind string

const (
	KindProceed    Kind = "proceed"
	KindRetrySame  Kind = "retry_same"
	KindReDelegate Kind = "re_delegate"
	KindAugment    Kind = "augment"
	KindEscalate   Kind = "escalate"
)

// RetryParams carries hints for a retried attempt. Only meaningful on a
// retry_same decision.
type RetryParams struct {
	Feedback      string `json:"feedback,omitempty"`
	ExtendTimeout bool   `json:"extend_timeout,omitempty"`
	RefineQuery   bool   `json:"refine_query,omitempty"`
}

// Decision is the engine's verdict for one evaluation. Fields beyond Kind
// are populated per variant: Failure is nil for proceed, TargetRole is set
// only for re_delegate, RetryParams only for retry_same.
type Decision struct {
	Kind           Kind                `json:"kind"`
	Failure        *evaluation.Failure `json:"failure,omitempty"`
	TargetRole     agent.Role          `json:"target_role,omitempty"`
	RetryParams    *RetryParams        `json:"retry_params,omitempty"`
	PartialResults map[string]any      `json:"partial_results,omitempty"`
	Reasoning      string              `json:"reasoning"`
	RetryCount     int                 `json:"retry_count"`
}

// RiskProfile is a caller-supplied descriptor of task criticality and
// uncertainty, used for risk-aware early escalation.
type RiskProfile struct {
	Criticality float64 `json:"criticality"`
	Uncertainty float64 `json:"uncertainty"`
}

// High reports whether the profile warrants escalating one decision step
// earlier than the default policy.
func (r RiskProfile) High() bool {
	return r.Criticality >= 0.7 || r.Uncertainty >= 0.7
}

// Escalation is a persisted record of an escalate decision, listable for
// human review. Escalation is a terminal outcome, not a pipeline failure.
type Escalation struct {
	ID             string         `json:"id"`
	UnitID         string         `json:"unit_id"`
	AgentRole      agent.Role     `json:"agent_role"`
	Reason         string         `json:"reason"`
	PartialResults map[string]any `json:"partial_results,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
