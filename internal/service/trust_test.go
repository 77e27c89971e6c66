package service

import (
	"context"
	"testing"

	"github.com/arcwell-foundry/aria/internal/domain/action"
)

func TestApprovalLevelThresholds(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		risk  float64
		want  action.ExecutionMode
	}{
		{"high trust no risk", 0.85, 0, action.ModeAutoExecute},
		{"high trust discounted by risk", 0.85, 0.5, action.ModeExecuteAndNotify},
		{"moderate trust", 0.65, 0, action.ModeExecuteAndNotify},
		{"unknown owner gets the default score", trustDefaultScore, 0, action.ModeApprovePlan},
		{"low trust", 0.3, 0, action.ModeApproveEach},
		{"maximum risk forces per-step approval", 0.85, 1.0, action.ModeApproveEach},
		{"boundary score exactly at auto threshold", 0.8, 0, action.ModeAutoExecute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			if tt.score != trustDefaultScore {
				store.UpsertTrustScore(context.Background(), "owner-1", action.CategoryResearch, tt.score)
			}
			svc := NewTrustService(store, nil, 0.5)

			mode, err := svc.ApprovalLevel(context.Background(), "owner-1", action.CategoryResearch, tt.risk)
			if err != nil {
				t.Fatalf("approval level: %v", err)
			}
			if mode != tt.want {
				t.Errorf("mode = %v, want %v", mode, tt.want)
			}
		})
	}
}

func TestTrustAdjustments(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewTrustService(store, nil, 0.5)

	if err := svc.RecordSuccess(ctx, "owner-1", action.CategoryResearch); err != nil {
		t.Fatalf("record success: %v", err)
	}
	score, _ := store.GetTrustScore(ctx, "owner-1", action.CategoryResearch)
	if !almostEqual(score, trustDefaultScore+trustSuccessDelta) {
		t.Errorf("score after success = %v", score)
	}

	if err := svc.RecordFailure(ctx, "owner-1", action.CategoryResearch); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	score, _ = store.GetTrustScore(ctx, "owner-1", action.CategoryResearch)
	if !almostEqual(score, trustDefaultScore+trustSuccessDelta+trustFailureDelta) {
		t.Errorf("score after failure = %v", score)
	}

	if err := svc.RecordOverride(ctx, "owner-1", action.CategoryResearch); err != nil {
		t.Fatalf("record override: %v", err)
	}
	score, _ = store.GetTrustScore(ctx, "owner-1", action.CategoryResearch)
	if !almostEqual(score, trustDefaultScore+trustSuccessDelta+trustFailureDelta+trustOverrideDelta) {
		t.Errorf("score after override = %v", score)
	}
}

func TestTrustScoreClamping(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewTrustService(store, nil, 0.5)

	store.UpsertTrustScore(ctx, "owner-1", action.CategoryResearch, 0.99)
	svc.RecordSuccess(ctx, "owner-1", action.CategoryResearch)
	score, _ := store.GetTrustScore(ctx, "owner-1", action.CategoryResearch)
	if score != 1.0 {
		t.Errorf("score = %v, want clamped to 1.0", score)
	}

	store.UpsertTrustScore(ctx, "owner-1", action.CategoryCRMUpdate, 0.05)
	svc.RecordFailure(ctx, "owner-1", action.CategoryCRMUpdate)
	score, _ = store.GetTrustScore(ctx, "owner-1", action.CategoryCRMUpdate)
	if score != 0.0 {
		t.Errorf("score = %v, want clamped to 0.0", score)
	}
}

func TestTrustScoresAreIndependentPerCategory(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewTrustService(store, nil, 0.5)

	svc.RecordFailure(ctx, "owner-1", action.CategoryCRMUpdate)

	score, _ := store.GetTrustScore(ctx, "owner-1", action.CategoryResearch)
	if score != trustDefaultScore {
		t.Errorf("unrelated category moved to %v", score)
	}
}
