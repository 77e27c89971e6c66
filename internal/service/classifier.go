package service

import (
	"fmt"
	"strings"

	"github.com/arcwell-foundry/aria/internal/domain/evaluation"
)

const (
	// lowConfidenceThreshold is the confidence below which output is
	// classified low_confidence. The boundary itself does not trigger.
	lowConfidenceThreshold = 0.5

	// timeoutMultiplier flags executions strictly slower than this factor
	// of the expected duration.
	timeoutMultiplier = 2.0

	// noResultsSeverity is the fixed moderate severity for empty output.
	noResultsSeverity = 0.5
)

// Classify inspects one agent execution outcome against the failure
// taxonomy and returns the classified failure, or nil when the output is
// acceptable. It is a pure function of its input.
//
// Precedence, first match wins: verification_failed, no_results,
// low_confidence, timeout.
func Classify(ev *evaluation.Evaluation) *evaluation.Failure {
	if v := ev.Verification; v != nil && !v.Passed {
		return &evaluation.Failure{
			Kind:        evaluation.FailureVerificationFailed,
			Severity:    clamp01(1.0 - v.Confidence),
			Detail:      verificationDetail(v),
			Recoverable: true,
		}
	}

	if emptyOutput(ev.Output) {
		return &evaluation.Failure{
			Kind:        evaluation.FailureNoResults,
			Severity:    noResultsSeverity,
			Detail:      "agent produced no results",
			Recoverable: true,
		}
	}

	if ev.Confidence < lowConfidenceThreshold {
		return &evaluation.Failure{
			Kind:        evaluation.FailureLowConfidence,
			Severity:    clamp01((lowConfidenceThreshold - ev.Confidence) / lowConfidenceThreshold),
			Detail:      fmt.Sprintf("confidence %.2f below threshold %.2f", ev.Confidence, lowConfidenceThreshold),
			Recoverable: true,
		}
	}

	if ev.ExpectedDuration > 0 && ev.Duration.Seconds() > timeoutMultiplier*ev.ExpectedDuration.Seconds() {
		ratio := ev.Duration.Seconds() / ev.ExpectedDuration.Seconds()
		return &evaluation.Failure{
			Kind:        evaluation.FailureTimeout,
			Severity:    clamp01((ratio - timeoutMultiplier) / timeoutMultiplier),
			Detail:      fmt.Sprintf("took %.1fx expected duration", ratio),
			Recoverable: true,
		}
	}

	return nil
}

// emptyOutput reports whether the payload carries no usable results: it is
// empty, or it contains collection-valued fields and all of them are empty.
// Scalar-only payloads count as results.
func emptyOutput(out map[string]any) bool {
	if len(out) == 0 {
		return true
	}
	collections := 0
	for _, v := range out {
		switch val := v.(type) {
		case nil:
			collections++
		case []any:
			collections++
			if len(val) > 0 {
				return false
			}
		case map[string]any:
			collections++
			if len(val) > 0 {
				return false
			}
		case []string:
			collections++
			if len(val) > 0 {
				return false
			}
		}
	}
	return collections > 0
}

func verificationDetail(v *evaluation.Verification) string {
	if len(v.Issues) == 0 {
		return "verification failed"
	}
	return "verification failed: " + strings.Join(v.Issues, "; ")
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
