package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arcwell-foundry/aria/internal/domain/action"
)

// seedExpired installs an undo-pending action whose window already
// elapsed, as if its finalize timer had been lost to a restart.
func seedExpired(t *testing.T, store *fakeStore, id string) {
	t.Helper()
	seedAction(t, store, &action.Action{
		ID:       id,
		OwnerID:  "owner-1",
		Category: action.CategoryResearch,
		Status:   action.StatusUndoPending,
	})
	store.CreateUndoEntry(context.Background(), &action.UndoEntry{
		ID:       "e-" + id,
		ActionID: id,
		OwnerID:  "owner-1",
		Category: action.CategoryResearch,
		Deadline: time.Now().Add(-time.Minute),
	})
}

func TestSweepFinalizesExpiredEntries(t *testing.T) {
	store := newFakeStore()
	tr := &fakeTrust{}
	exec := newTestExecutor(store, &fakeDispatcher{}, tr, time.Hour)
	sweeper := NewUndoSweeper(store, exec, time.Minute, 50)

	seedExpired(t, store, "s-1")
	seedExpired(t, store, "s-2")

	sweeper.Sweep(context.Background())

	for _, id := range []string{"s-1", "s-2"} {
		a, _ := store.GetAction(context.Background(), id)
		if a.Status != action.StatusCompleted {
			t.Errorf("action %s status = %v, want completed", id, a.Status)
		}
		entry, _ := store.GetUndoEntry(context.Background(), id)
		if !entry.UndoCompleted {
			t.Errorf("entry %s not closed", id)
		}
	}
	if tr.successes != 2 {
		t.Errorf("trust successes = %d, want 2", tr.successes)
	}
}

func TestSweepSkipsRequestedAndUnexpiredEntries(t *testing.T) {
	store := newFakeStore()
	exec := newTestExecutor(store, &fakeDispatcher{}, &fakeTrust{}, time.Hour)
	sweeper := NewUndoSweeper(store, exec, time.Minute, 50)

	// Still inside its window.
	seedAction(t, store, &action.Action{ID: "s-3", OwnerID: "owner-1", Status: action.StatusUndoPending})
	store.CreateUndoEntry(context.Background(), &action.UndoEntry{
		ID: "e-s-3", ActionID: "s-3", OwnerID: "owner-1", Deadline: time.Now().Add(time.Hour),
	})
	// Expired but already claimed by an undo request.
	seedAction(t, store, &action.Action{ID: "s-4", OwnerID: "owner-1", Status: action.StatusUndoPending})
	store.CreateUndoEntry(context.Background(), &action.UndoEntry{
		ID: "e-s-4", ActionID: "s-4", OwnerID: "owner-1",
		Deadline: time.Now().Add(-time.Minute), UndoRequested: true,
	})

	sweeper.Sweep(context.Background())

	for _, id := range []string{"s-3", "s-4"} {
		a, _ := store.GetAction(context.Background(), id)
		if a.Status != action.StatusUndoPending {
			t.Errorf("action %s status = %v, sweep must not touch it", id, a.Status)
		}
	}
}

func TestSweepBoundsBatchSize(t *testing.T) {
	store := newFakeStore()
	exec := newTestExecutor(store, &fakeDispatcher{}, &fakeTrust{}, time.Hour)
	sweeper := NewUndoSweeper(store, exec, time.Minute, 2)

	for i := range 5 {
		seedExpired(t, store, fmt.Sprintf("s-batch-%d", i))
	}

	sweeper.Sweep(context.Background())

	completed := 0
	for i := range 5 {
		a, _ := store.GetAction(context.Background(), fmt.Sprintf("s-batch-%d", i))
		if a.Status == action.StatusCompleted {
			completed++
		}
	}
	if completed != 2 {
		t.Errorf("finalized %d entries in one sweep, want 2", completed)
	}
}

func TestSweepSurvivesListFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errBoom
	exec := newTestExecutor(store, &fakeDispatcher{}, &fakeTrust{}, time.Hour)
	sweeper := NewUndoSweeper(store, exec, time.Minute, 50)

	sweeper.Sweep(context.Background()) // must not panic

	store.listErr = nil
	seedExpired(t, store, "s-5")
	sweeper.Sweep(context.Background())

	a, _ := store.GetAction(context.Background(), "s-5")
	if a.Status != action.StatusCompleted {
		t.Errorf("sweep did not recover after a list failure: %v", a.Status)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newFakeStore()
	exec := newTestExecutor(store, &fakeDispatcher{}, &fakeTrust{}, time.Hour)
	sweeper := NewUndoSweeper(store, exec, 5*time.Millisecond, 50)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
