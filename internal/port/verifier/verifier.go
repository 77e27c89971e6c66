// Package verifier defines the output verification port (interface).
//
// Verification is best-effort: absence of a verifier, or any error from
// Verify, must fail open. The caller proceeds as if verification were not
// configured and never blocks acceptance on it.
package verifier

import "context"

// Result is the outcome of one verification pass.
type Result struct {
	Passed      bool     `json:"passed"`
	Issues      []string `json:"issues,omitempty"`
	Confidence  float64  `json:"confidence"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Verifier checks agent output against its task context.
type Verifier interface {
	Verify(ctx context.Context, output map[string]any, taskContext map[string]any) (*Result, error)
}
