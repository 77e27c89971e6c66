package service

import (
	"context"
	"testing"
	"time"

	"github.com/arcwell-foundry/aria/internal/domain/action"
	"github.com/arcwell-foundry/aria/internal/domain/agent"
	"github.com/arcwell-foundry/aria/internal/domain/decision"
	"github.com/arcwell-foundry/aria/internal/domain/evaluation"
	"github.com/arcwell-foundry/aria/internal/port/verifier"
	"github.com/arcwell-foundry/aria/internal/resilience"
)

func newEngine(ceiling int) (*DecisionEngine, *BudgetGovernor) {
	g := NewBudgetGovernor(ceiling)
	e := NewDecisionEngine(g, NewFallbackResolver(), nil, nil, nil, nil, nil)
	return e, g
}

func lowConfidenceEval(unitID string) *evaluation.Evaluation {
	return &evaluation.Evaluation{
		AgentRole:        agent.RoleScout,
		UnitID:           unitID,
		OwnerID:          "owner-1",
		Output:           map[string]any{"leads": []any{"acme"}},
		Confidence:       0.3,
		Duration:         5 * time.Second,
		ExpectedDuration: 5 * time.Second,
	}
}

func TestEvaluateProceedDoesNotConsumeBudget(t *testing.T) {
	engine, g := newEngine(3)
	ev := lowConfidenceEval("goal-1")
	ev.Confidence = 0.9

	d := engine.Evaluate(context.Background(), ev, nil, nil)
	if d.Kind != decision.KindProceed {
		t.Fatalf("kind = %v, want proceed", d.Kind)
	}
	if d.Failure != nil {
		t.Error("proceed must carry no failure")
	}
	if got := g.RetriesUsed("goal-1"); got != 0 {
		t.Errorf("budget consumed on proceed: %d", got)
	}
}

// A scout on goal-1 with confidence 0.3 and ceiling 3 goes retry_same,
// re_delegate(analyst), re_delegate(hunter), escalate.
func TestEvaluateLowConfidenceProgression(t *testing.T) {
	engine, g := newEngine(3)
	ctx := context.Background()

	d := engine.Evaluate(ctx, lowConfidenceEval("goal-1"), nil, nil)
	if d.Kind != decision.KindRetrySame {
		t.Fatalf("first decision = %v, want retry_same", d.Kind)
	}
	if d.RetryParams == nil || !d.RetryParams.RefineQuery {
		t.Errorf("retry_same for low confidence should carry a refine-query hint, got %+v", d.RetryParams)
	}
	if d.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", d.RetryCount)
	}

	d = engine.Evaluate(ctx, lowConfidenceEval("goal-1"), nil, nil)
	if d.Kind != decision.KindReDelegate || d.TargetRole != agent.RoleAnalyst {
		t.Fatalf("second decision = %v/%v, want re_delegate/analyst", d.Kind, d.TargetRole)
	}

	d = engine.Evaluate(ctx, lowConfidenceEval("goal-1"), nil, map[agent.Role]bool{agent.RoleAnalyst: true})
	if d.Kind != decision.KindReDelegate || d.TargetRole != agent.RoleHunter {
		t.Fatalf("third decision = %v/%v, want re_delegate/hunter", d.Kind, d.TargetRole)
	}

	d = engine.Evaluate(ctx, lowConfidenceEval("goal-1"), nil, map[agent.Role]bool{agent.RoleAnalyst: true, agent.RoleHunter: true})
	if d.Kind != decision.KindEscalate {
		t.Fatalf("fourth decision = %v, want escalate", d.Kind)
	}
	if d.Reasoning != "retry budget exhausted" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}
	if got := g.RetriesUsed("goal-1"); got != 3 {
		t.Errorf("escalate must not consume budget: %d", got)
	}
	if d.PartialResults == nil {
		t.Error("partial results must be carried onto the escalation")
	}
}

func TestEvaluateNoResultsReDelegatesThenAugments(t *testing.T) {
	engine, _ := newEngine(3)
	ctx := context.Background()

	ev := lowConfidenceEval("goal-2")
	ev.Confidence = 0.9
	ev.Output = map[string]any{"leads": []any{}}

	d := engine.Evaluate(ctx, ev, nil, nil)
	if d.Kind != decision.KindReDelegate || d.TargetRole != agent.RoleAnalyst {
		t.Fatalf("first no_results decision = %v/%v, want re_delegate/analyst", d.Kind, d.TargetRole)
	}

	d = engine.Evaluate(ctx, ev, nil, map[agent.Role]bool{agent.RoleAnalyst: true})
	if d.Kind != decision.KindAugment {
		t.Fatalf("second no_results decision = %v, want augment", d.Kind)
	}
}

func TestEvaluateRiskAwareEarlyEscalation(t *testing.T) {
	engine, g := newEngine(3)
	ctx := context.Background()
	risk := &decision.RiskProfile{Criticality: 0.9}

	// First failure proceeds to retry even on a high-risk task.
	d := engine.Evaluate(ctx, lowConfidenceEval("goal-3"), risk, nil)
	if d.Kind != decision.KindRetrySame {
		t.Fatalf("first decision = %v, want retry_same", d.Kind)
	}

	// After one consumed retry, high risk escalates instead of
	// re-delegating.
	d = engine.Evaluate(ctx, lowConfidenceEval("goal-3"), risk, nil)
	if d.Kind != decision.KindEscalate {
		t.Fatalf("second decision = %v, want escalate", d.Kind)
	}
	if got := g.RetriesUsed("goal-3"); got != 1 {
		t.Errorf("early escalation must not consume budget: %d", got)
	}
}

func TestEvaluateEscalatesWhenFallbacksExhausted(t *testing.T) {
	engine, _ := newEngine(5)
	ctx := context.Background()

	ev := lowConfidenceEval("goal-4")
	ev.AgentRole = agent.RoleOperator

	// Consume the first retry so the next failure wants to re-delegate.
	if d := engine.Evaluate(ctx, ev, nil, nil); d.Kind != decision.KindRetrySame {
		t.Fatalf("first decision = %v, want retry_same", d.Kind)
	}
	d := engine.Evaluate(ctx, ev, nil, nil)
	if d.Kind != decision.KindEscalate {
		t.Fatalf("operator has no delegates, want escalate, got %v", d.Kind)
	}
}

func TestEvaluateVerificationFailThenPass(t *testing.T) {
	g := NewBudgetGovernor(3)
	fv := &fakeVerifier{results: []*verifier.Result{
		{Passed: false, Issues: []string{"numbers disagree"}, Confidence: 0.4},
		{Passed: true, Confidence: 0.95},
	}}
	engine := NewDecisionEngine(g, NewFallbackResolver(), nil, fv, nil, nil, nil)
	ctx := context.Background()

	ev := lowConfidenceEval("goal-5")
	ev.Confidence = 0.9

	d := engine.Evaluate(ctx, ev, nil, nil)
	if d.Kind != decision.KindRetrySame {
		t.Fatalf("failed verification should retry, got %v", d.Kind)
	}
	if d.Failure == nil || d.Failure.Kind != evaluation.FailureVerificationFailed {
		t.Fatalf("failure = %+v, want verification_failed", d.Failure)
	}
	if d.RetryParams == nil || d.RetryParams.Feedback == "" {
		t.Error("retry params should carry the verification issues")
	}

	d = engine.Evaluate(ctx, ev, nil, nil)
	if d.Kind != decision.KindProceed {
		t.Fatalf("passing verification on retry should proceed, got %v", d.Kind)
	}
}

func TestEvaluateVerifierErrorFailsOpen(t *testing.T) {
	g := NewBudgetGovernor(3)
	fv := &fakeVerifier{err: errBoom}
	engine := NewDecisionEngine(g, NewFallbackResolver(), nil, fv, nil, nil, nil)

	ev := lowConfidenceEval("goal-6")
	ev.Confidence = 0.9

	d := engine.Evaluate(context.Background(), ev, nil, nil)
	if d.Kind != decision.KindProceed {
		t.Fatalf("verifier error must fail open, got %v", d.Kind)
	}
}

func TestEvaluateOpenBreakerFailsOpen(t *testing.T) {
	g := NewBudgetGovernor(3)
	fv := &fakeVerifier{err: errBoom}
	brk := resilience.NewBreaker(1, time.Hour)
	engine := NewDecisionEngine(g, NewFallbackResolver(), nil, fv, brk, nil, nil)
	ctx := context.Background()

	ev := lowConfidenceEval("goal-7")
	ev.Confidence = 0.9

	// First call trips the breaker; both still proceed.
	for i := range 2 {
		if d := engine.Evaluate(ctx, ev, nil, nil); d.Kind != decision.KindProceed {
			t.Fatalf("call %d: open breaker must fail open, got %v", i, d.Kind)
		}
	}
	if fv.calls != 1 {
		t.Errorf("verifier calls = %d, want 1 (breaker open on second)", fv.calls)
	}
}

func TestEvaluateReDelegateCheckpointsTrace(t *testing.T) {
	g := NewBudgetGovernor(3)
	traces := &fakeTraces{}
	recorder := NewCheckpointRecorder(traces)
	engine := NewDecisionEngine(g, NewFallbackResolver(), recorder, nil, nil, nil, nil)
	ctx := context.Background()

	ev := lowConfidenceEval("goal-8")
	ev.TraceID = "trace-8"

	engine.Evaluate(ctx, ev, nil, nil) // retry_same
	d := engine.Evaluate(ctx, ev, nil, nil)
	if d.Kind != decision.KindReDelegate {
		t.Fatalf("decision = %v, want re_delegate", d.Kind)
	}
	if len(traces.completed) != 1 || traces.completed[0] != "trace-8" {
		t.Fatalf("trace not checkpointed: %v", traces.completed)
	}
}

func TestEvaluateRepeatedVerificationFailureEscalatesAndLowersTrust(t *testing.T) {
	g := NewBudgetGovernor(3)
	fv := &fakeVerifier{results: []*verifier.Result{
		{Passed: false, Issues: []string{"claims unsupported"}, Confidence: 0.3},
		{Passed: false, Issues: []string{"claims still unsupported"}, Confidence: 0.3},
	}}
	tr := &fakeTrust{}
	engine := NewDecisionEngine(g, NewFallbackResolver(), nil, fv, nil, nil, tr)
	ctx := context.Background()

	ev := func() *evaluation.Evaluation {
		e := lowConfidenceEval("goal-10")
		e.AgentRole = agent.RoleOperator
		e.Category = action.CategoryCRMUpdate
		e.Confidence = 0.9
		return e
	}

	d := engine.Evaluate(ctx, ev(), nil, nil)
	if d.Kind != decision.KindRetrySame {
		t.Fatalf("first decision = %v, want retry_same", d.Kind)
	}
	if tr.failures != 0 {
		t.Fatalf("trust failures = %d before escalation, want 0", tr.failures)
	}

	// Operator has no delegates, so the second failed verification cannot
	// re-delegate and escalates.
	d = engine.Evaluate(ctx, ev(), nil, nil)
	if d.Kind != decision.KindEscalate {
		t.Fatalf("second decision = %v, want escalate", d.Kind)
	}
	if d.Failure == nil || d.Failure.Kind != evaluation.FailureVerificationFailed {
		t.Errorf("failure = %+v, want verification_failed", d.Failure)
	}
	if tr.failures != 1 {
		t.Errorf("trust failures = %d, want 1", tr.failures)
	}
}

func TestEvaluatePersistsEscalations(t *testing.T) {
	g := NewBudgetGovernor(1)
	store := newFakeStore()
	engine := NewDecisionEngine(g, NewFallbackResolver(), nil, nil, nil, store, nil)
	ctx := context.Background()

	engine.Evaluate(ctx, lowConfidenceEval("goal-9"), nil, nil) // consumes the only retry
	d := engine.Evaluate(ctx, lowConfidenceEval("goal-9"), nil, nil)
	if d.Kind != decision.KindEscalate {
		t.Fatalf("decision = %v, want escalate", d.Kind)
	}

	escalations, _ := store.ListEscalations(ctx, 10)
	if len(escalations) != 1 {
		t.Fatalf("escalations persisted = %d, want 1", len(escalations))
	}
	if escalations[0].UnitID != "goal-9" {
		t.Errorf("escalation unit = %q", escalations[0].UnitID)
	}
}
