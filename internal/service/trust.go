package service

import (
	"context"
	"fmt"

	"github.com/arcwell-foundry/aria/internal/adapter/ristretto"
	"github.com/arcwell-foundry/aria/internal/domain/action"
	"github.com/arcwell-foundry/aria/internal/port/database"
)

// Trust score adjustments per outcome. Scores stay within [0, 1].
const (
	trustSuccessDelta  = 0.02
	trustFailureDelta  = -0.10
	trustOverrideDelta = -0.05

	// trustDefaultScore is assumed for an (owner, category) pair with no
	// history.
	trustDefaultScore = 0.5
)

// Approval mode thresholds over the risk-discounted effective score.
const (
	autoExecuteThreshold      = 0.8
	executeAndNotifyThreshold = 0.6
	approvePlanThreshold      = 0.4
)

// TrustService implements the trust port over the store, with a
// read-through ristretto cache in front of score lookups.
type TrustService struct {
	store      database.Store
	cache      *ristretto.ScoreCache
	riskWeight float64
}

// NewTrustService creates a TrustService. cache may be nil to disable
// caching; riskWeight <= 0 selects the default 0.5.
func NewTrustService(store database.Store, cache *ristretto.ScoreCache, riskWeight float64) *TrustService {
	if riskWeight <= 0 {
		riskWeight = 0.5
	}
	return &TrustService{
		store:      store,
		cache:      cache,
		riskWeight: riskWeight,
	}
}

// ApprovalLevel blends the stored trust score with the action's risk score
// and maps the result onto an execution mode.
func (s *TrustService) ApprovalLevel(ctx context.Context, ownerID string, category action.Category, risk float64) (action.ExecutionMode, error) {
	score, err := s.score(ctx, ownerID, category)
	if err != nil {
		return "", fmt.Errorf("trust score for %s/%s: %w", ownerID, category, err)
	}

	effective := score - risk*s.riskWeight
	switch {
	case effective >= autoExecuteThreshold:
		return action.ModeAutoExecute, nil
	case effective >= executeAndNotifyThreshold:
		return action.ModeExecuteAndNotify, nil
	case effective >= approvePlanThreshold:
		return action.ModeApprovePlan, nil
	default:
		return action.ModeApproveEach, nil
	}
}

// RecordSuccess bumps trust after a completed or finalized execution.
func (s *TrustService) RecordSuccess(ctx context.Context, ownerID string, category action.Category) error {
	return s.adjust(ctx, ownerID, category, trustSuccessDelta)
}

// RecordFailure lowers trust after an execution failure.
func (s *TrustService) RecordFailure(ctx context.Context, ownerID string, category action.Category) error {
	return s.adjust(ctx, ownerID, category, trustFailureDelta)
}

// RecordOverride lowers trust slightly after a user-triggered undo.
func (s *TrustService) RecordOverride(ctx context.Context, ownerID string, category action.Category) error {
	return s.adjust(ctx, ownerID, category, trustOverrideDelta)
}

func (s *TrustService) score(ctx context.Context, ownerID string, category action.Category) (float64, error) {
	key := scoreKey(ownerID, category)
	if s.cache != nil {
		if score, ok := s.cache.Get(key); ok {
			return score, nil
		}
	}

	score, err := s.store.GetTrustScore(ctx, ownerID, category)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.Set(key, score)
	}
	return score, nil
}

func (s *TrustService) adjust(ctx context.Context, ownerID string, category action.Category, delta float64) error {
	score, err := s.store.GetTrustScore(ctx, ownerID, category)
	if err != nil {
		return fmt.Errorf("load trust score: %w", err)
	}

	score = clamp01(score + delta)
	if err := s.store.UpsertTrustScore(ctx, ownerID, category, score); err != nil {
		return fmt.Errorf("store trust score: %w", err)
	}
	if s.cache != nil {
		s.cache.Delete(scoreKey(ownerID, category))
	}
	return nil
}

func scoreKey(ownerID string, category action.Category) string {
	return ownerID + ":" + string(category)
}
