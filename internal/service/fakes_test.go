package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arcwell-foundry/aria/internal/domain"
	"github.com/arcwell-foundry/aria/internal/domain/action"
	"github.com/arcwell-foundry/aria/internal/domain/agent"
	"github.com/arcwell-foundry/aria/internal/domain/decision"
	"github.com/arcwell-foundry/aria/internal/port/tracestore"
	"github.com/arcwell-foundry/aria/internal/port/verifier"
)

// fakeStore is an in-memory database.Store with the same conditional
// update semantics as the postgres adapter.
type fakeStore struct {
	mu          sync.Mutex
	actions     map[string]*action.Action
	entries     map[string]*action.UndoEntry
	scores      map[string]float64
	escalations []decision.Escalation

	listErr error // injected failure for ListExpiredUndoEntries
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		actions: make(map[string]*action.Action),
		entries: make(map[string]*action.UndoEntry),
		scores:  make(map[string]float64),
	}
}

func (s *fakeStore) CreateAction(_ context.Context, a *action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.actions[a.ID] = &cp
	return nil
}

func (s *fakeStore) GetAction(_ context.Context, id string) (*action.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return nil, fmt.Errorf("get action %s: %w", id, domain.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) UpdateActionStatus(_ context.Context, id string, from, to action.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (s *fakeStore) SetActionResult(_ context.Context, id string, result map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return fmt.Errorf("set result %s: %w", id, domain.ErrNotFound)
	}
	a.Result = result
	return nil
}

func (s *fakeStore) CreateUndoEntry(_ context.Context, e *action.UndoEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries[e.ActionID] = &cp
	return nil
}

func (s *fakeStore) GetUndoEntry(_ context.Context, actionID string) (*action.UndoEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[actionID]
	if !ok {
		return nil, fmt.Errorf("get undo entry %s: %w", actionID, domain.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) MarkUndoRequested(_ context.Context, actionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[actionID]
	if !ok || e.UndoRequested || e.UndoCompleted {
		return false, nil
	}
	e.UndoRequested = true
	return true, nil
}

func (s *fakeStore) FinishUndoEntry(_ context.Context, actionID, detail string, requireUnrequested bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[actionID]
	if !ok || e.UndoCompleted {
		return false, nil
	}
	if requireUnrequested && e.UndoRequested {
		return false, nil
	}
	e.UndoCompleted = true
	e.ReversalDetail = detail
	return true, nil
}

func (s *fakeStore) ListExpiredUndoEntries(_ context.Context, now time.Time, limit int) ([]action.UndoEntry, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []action.UndoEntry
	for _, e := range s.entries {
		if !e.UndoRequested && !e.UndoCompleted && e.Deadline.Before(now) {
			result = append(result, *e)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (s *fakeStore) GetTrustScore(_ context.Context, ownerID string, category action.Category) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, ok := s.scores[ownerID+":"+string(category)]
	if !ok {
		return trustDefaultScore, nil
	}
	return score, nil
}

func (s *fakeStore) UpsertTrustScore(_ context.Context, ownerID string, category action.Category, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[ownerID+":"+string(category)] = score
	return nil
}

func (s *fakeStore) CreateEscalation(_ context.Context, e *decision.Escalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalations = append(s.escalations, *e)
	return nil
}

func (s *fakeStore) ListEscalations(_ context.Context, limit int) ([]decision.Escalation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.escalations) > limit {
		return s.escalations[:limit], nil
	}
	return s.escalations, nil
}

// fakeDispatcher returns a canned result or error and records calls.
type fakeDispatcher struct {
	mu     sync.Mutex
	result map[string]any
	err    error
	calls  []*action.Action
}

func (d *fakeDispatcher) Dispatch(_ context.Context, a *action.Action) (map[string]any, error) {
	d.mu.Lock()
	d.calls = append(d.calls, a)
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.result != nil {
		return d.result, nil
	}
	return map[string]any{"ok": true}, nil
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// fakeTrust counts outcome updates and returns a fixed mode.
type fakeTrust struct {
	mu        sync.Mutex
	mode      action.ExecutionMode
	successes int
	failures  int
	overrides int
}

func (t *fakeTrust) ApprovalLevel(_ context.Context, _ string, _ action.Category, _ float64) (action.ExecutionMode, error) {
	if t.mode == "" {
		return action.ModeAutoExecute, nil
	}
	return t.mode, nil
}

func (t *fakeTrust) RecordSuccess(_ context.Context, _ string, _ action.Category) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successes++
	return nil
}

func (t *fakeTrust) RecordFailure(_ context.Context, _ string, _ action.Category) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures++
	return nil
}

func (t *fakeTrust) RecordOverride(_ context.Context, _ string, _ action.Category) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.overrides++
	return nil
}

// fakeVerifier returns a scripted sequence of results, one per call.
type fakeVerifier struct {
	mu      sync.Mutex
	results []*verifier.Result
	err     error
	calls   int
}

func (v *fakeVerifier) Verify(_ context.Context, _ map[string]any, _ map[string]any) (*verifier.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	if len(v.results) == 0 {
		return &verifier.Result{Passed: true, Confidence: 1.0}, nil
	}
	r := v.results[0]
	if len(v.results) > 1 {
		v.results = v.results[1:]
	}
	return r, nil
}

// fakeTraces records CompleteTrace calls and can fail on demand.
type fakeTraces struct {
	mu        sync.Mutex
	completed []string
	statuses  []tracestore.Status
	err       error
}

func (t *fakeTraces) StartTrace(_ context.Context, _, _ string, _ agent.Role) (string, error) {
	return "trace-1", nil
}

func (t *fakeTraces) CompleteTrace(_ context.Context, traceID string, status tracestore.Status, _ map[string]any, _ *verifier.Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.completed = append(t.completed, traceID)
	t.statuses = append(t.statuses, status)
	return nil
}

var errBoom = errors.New("boom")
