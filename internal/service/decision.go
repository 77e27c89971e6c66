package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arcwell-foundry/aria/internal/domain/agent"
	"github.com/arcwell-foundry/aria/internal/domain/decision"
	"github.com/arcwell-foundry/aria/internal/domain/evaluation"
	"github.com/arcwell-foundry/aria/internal/port/database"
	"github.com/arcwell-foundry/aria/internal/port/trust"
	"github.com/arcwell-foundry/aria/internal/port/verifier"
	"github.com/arcwell-foundry/aria/internal/resilience"
)

// DecisionEngine combines failure classification, verification, retry
// budget state, and optional task risk into one of five decisions:
// proceed, retry_same, re_delegate, augment, or escalate.
type DecisionEngine struct {
	governor *BudgetGovernor
	resolver *FallbackResolver
	recorder *CheckpointRecorder

	// verifier is optional. Calls go through the breaker and fail open:
	// a verification error or an open circuit is treated as verification
	// not configured, never as a failed evaluation.
	verifier verifier.Verifier
	breaker  *resilience.Breaker

	// store is optional; when present, escalate decisions are persisted
	// for the human review inbox. Store errors are logged, not raised.
	store database.Store

	// trust is optional; when present, escalations lower the owner's
	// trust score for the unit's category.
	trust trust.Service
}

// NewDecisionEngine creates a DecisionEngine. recorder, verif, brk,
// store, and trustSvc may be nil.
func NewDecisionEngine(
	governor *BudgetGovernor,
	resolver *FallbackResolver,
	recorder *CheckpointRecorder,
	verif verifier.Verifier,
	brk *resilience.Breaker,
	store database.Store,
	trustSvc trust.Service,
) *DecisionEngine {
	return &DecisionEngine{
		governor: governor,
		resolver: resolver,
		recorder: recorder,
		verifier: verif,
		breaker:  brk,
		store:    store,
		trust:    trustSvc,
	}
}

// Evaluate classifies one agent execution outcome and decides what to do
// with it. tried is the caller-maintained set of roles already attempted
// for this unit of work; the engine does not infer it.
//
// Budget side effects: retry_same, re_delegate, and augment consume one
// retry; proceed and escalate consume nothing.
func (e *DecisionEngine) Evaluate(ctx context.Context, ev *evaluation.Evaluation, risk *decision.RiskProfile, tried map[agent.Role]bool) *decision.Decision {
	ev = e.withVerification(ctx, ev)

	failure := Classify(ev)
	if failure == nil {
		return &decision.Decision{
			Kind:           decision.KindProceed,
			PartialResults: ev.Output,
			Reasoning:      "output accepted",
			RetryCount:     e.governor.RetriesUsed(ev.UnitID),
		}
	}

	retries := e.governor.RetriesUsed(ev.UnitID)

	if e.governor.OverBudget(ev.UnitID) {
		return e.escalate(ctx, ev, failure, retries, "retry budget exhausted")
	}

	if risk != nil && risk.High() && retries >= 1 {
		return e.escalate(ctx, ev, failure, retries,
			fmt.Sprintf("high-risk task: escalating after %d retries rather than re-delegating", retries))
	}

	if failure.Kind == evaluation.FailureNoResults {
		return e.decideNoResults(ctx, ev, failure, retries, tried)
	}
	return e.decideRetryable(ctx, ev, failure, retries, tried)
}

// decideRetryable handles low_confidence, verification_failed, timeout,
// and stale_data: retry the same agent once with targeted feedback, then
// hand the work to the next untried fallback.
func (e *DecisionEngine) decideRetryable(ctx context.Context, ev *evaluation.Evaluation, failure *evaluation.Failure, retries int, tried map[agent.Role]bool) *decision.Decision {
	if retries == 0 {
		count := e.governor.ConsumeRetry(ev.UnitID)
		return &decision.Decision{
			Kind:           decision.KindRetrySame,
			Failure:        failure,
			RetryParams:    retryParamsFor(failure),
			PartialResults: ev.Output,
			Reasoning:      fmt.Sprintf("first %s: retrying %s with feedback", failure.Kind, ev.AgentRole),
			RetryCount:     count,
		}
	}
	return e.reDelegate(ctx, ev, failure, retries, tried)
}

// decideNoResults handles empty output: a same-agent retry is useless when
// there is nothing to refine, so re-delegate immediately, then broaden the
// task on the second occurrence.
func (e *DecisionEngine) decideNoResults(ctx context.Context, ev *evaluation.Evaluation, failure *evaluation.Failure, retries int, tried map[agent.Role]bool) *decision.Decision {
	if retries == 1 {
		count := e.governor.ConsumeRetry(ev.UnitID)
		return &decision.Decision{
			Kind:           decision.KindAugment,
			Failure:        failure,
			PartialResults: ev.Output,
			Reasoning:      "repeated empty results: broadening the task instead of switching agents",
			RetryCount:     count,
		}
	}
	return e.reDelegate(ctx, ev, failure, retries, tried)
}

func (e *DecisionEngine) reDelegate(ctx context.Context, ev *evaluation.Evaluation, failure *evaluation.Failure, retries int, tried map[agent.Role]bool) *decision.Decision {
	target, ok := e.resolver.NextFallback(ev.AgentRole, tried)
	if !ok {
		return e.escalate(ctx, ev, failure, retries,
			fmt.Sprintf("no capable fallback remaining for role %s", ev.AgentRole))
	}

	count := e.governor.ConsumeRetry(ev.UnitID)
	if e.recorder != nil {
		e.recorder.Checkpoint(ctx, ev.UnitID, ev.OwnerID, ev.AgentRole, ev.Output, failure, ev.TraceID)
	}
	return &decision.Decision{
		Kind:           decision.KindReDelegate,
		Failure:        failure,
		TargetRole:     target,
		PartialResults: ev.Output,
		Reasoning:      fmt.Sprintf("%s persisted after retry: handing work from %s to %s", failure.Kind, ev.AgentRole, target),
		RetryCount:     count,
	}
}

// escalate never consumes budget. Partial results are still carried so the
// caller can checkpoint them on the way to human review.
func (e *DecisionEngine) escalate(ctx context.Context, ev *evaluation.Evaluation, failure *evaluation.Failure, retries int, reason string) *decision.Decision {
	if e.store != nil {
		esc := &decision.Escalation{
			ID:             uuid.NewString(),
			UnitID:         ev.UnitID,
			AgentRole:      ev.AgentRole,
			Reason:         reason,
			PartialResults: ev.Output,
			CreatedAt:      time.Now().UTC(),
		}
		if err := e.store.CreateEscalation(ctx, esc); err != nil {
			slog.Warn("persist escalation failed", "unit_id", ev.UnitID, "error", err)
		}
	}
	if e.trust != nil && ev.OwnerID != "" && ev.Category != "" {
		if err := e.trust.RecordFailure(ctx, ev.OwnerID, ev.Category); err != nil {
			slog.Warn("trust failure update failed", "unit_id", ev.UnitID, "error", err)
		}
	}
	slog.Info("escalating to human review",
		"unit_id", ev.UnitID,
		"agent_role", ev.AgentRole,
		"failure", failure.Kind,
		"reason", reason,
	)
	return &decision.Decision{
		Kind:           decision.KindEscalate,
		Failure:        failure,
		PartialResults: ev.Output,
		Reasoning:      reason,
		RetryCount:     retries,
	}
}

// withVerification runs the verifier when the evaluation does not already
// carry a verification outcome. Any verifier error (or an open breaker)
// fails open: the evaluation is returned unverified.
func (e *DecisionEngine) withVerification(ctx context.Context, ev *evaluation.Evaluation) *evaluation.Evaluation {
	if ev.Verification != nil || e.verifier == nil {
		return ev
	}

	var result *verifier.Result
	call := func() error {
		var err error
		result, err = e.verifier.Verify(ctx, ev.Output, map[string]any{
			"unit_id":    ev.UnitID,
			"agent_role": string(ev.AgentRole),
		})
		return err
	}

	var err error
	if e.breaker != nil {
		err = e.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil || result == nil {
		slog.Warn("verification unavailable, failing open",
			"unit_id", ev.UnitID,
			"error", err,
		)
		return ev
	}

	verified := *ev
	verified.Verification = &evaluation.Verification{
		Passed:      result.Passed,
		Issues:      result.Issues,
		Confidence:  result.Confidence,
		Suggestions: result.Suggestions,
	}
	return &verified
}

// retryParamsFor builds the trigger-specific hints carried to a retried
// attempt.
func retryParamsFor(f *evaluation.Failure) *decision.RetryParams {
	switch f.Kind {
	case evaluation.FailureVerificationFailed:
		return &decision.RetryParams{Feedback: f.Detail}
	case evaluation.FailureTimeout:
		return &decision.RetryParams{
			Feedback:      "execution exceeded its time budget; narrowing scope and extending the timeout",
			ExtendTimeout: true,
		}
	case evaluation.FailureStaleData:
		return &decision.RetryParams{Feedback: "underlying data appears stale; refresh sources before retrying"}
	default:
		return &decision.RetryParams{
			Feedback:    "confidence was low; refine the query and cite concrete evidence",
			RefineQuery: true,
		}
	}
}
