// Package evaluation defines the agent output evaluation entity and the
// failure taxonomy derived from it.
package evaluation

import (
	"time"

	"github.com/arcwell-foundry/aria/internal/domain/action"
	"github.com/arcwell-foundry/aria/internal/domain/agent"
)

// Verification is the outcome of an independent verification pass over
// agent output. A nil Verification on an Evaluation means verification was
// not configured or failed open.
type Verification struct {
	Passed      bool     `json:"passed"`
	Issues      []string `json:"issues,omitempty"`
	Confidence  float64  `json:"confidence"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Evaluation captures one agent execution outcome. It is immutable per
// evaluation call: the decision engine reads it, never writes it.
type Evaluation struct {
	AgentRole        agent.Role      `json:"agent_role"`
	UnitID           string          `json:"unit_id"`
	OwnerID          string          `json:"owner_id,omitempty"`
	Category         action.Category `json:"category,omitempty"`
	Output           map[string]any  `json:"output"`
	Confidence       float64         `json:"confidence"`
	Duration         time.Duration   `json:"duration"`
	ExpectedDuration time.Duration   `json:"expected_duration"`
	Verification     *Verification   `json:"verification,omitempty"`
	TraceID          string          `json:"trace_id,omitempty"`
}

// FailureKind enumerates the closed failure taxonomy.
type FailureKind string

const (
	FailureLowConfidence      FailureKind = "low_confidence"
	FailureNoResults          FailureKind = "no_results"
	FailureStaleData          FailureKind = "stale_data"
	FailureTimeout            FailureKind = "timeout"
	FailureVerificationFailed FailureKind = "verification_failed"
)

// Failure is a classified execution failure. Created fresh per evaluation,
// never mutated.
type Failure struct {
	Kind        FailureKind `json:"kind"`
	Severity    float64     `json:"severity"`
	Detail      string      `json:"detail"`
	Recoverable bool        `json:"recoverable"`
}
