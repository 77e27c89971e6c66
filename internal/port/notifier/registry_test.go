package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recordingNotifier struct {
	mu     sync.Mutex
	name   string
	err    error
	events []Event
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) Send(_ context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, ev)
	return nil
}

func TestBroadcastFansOut(t *testing.T) {
	a := &recordingNotifier{name: "a"}
	b := &recordingNotifier{name: "b"}

	r := NewRegistry()
	r.Add(a)
	r.Add(b)

	r.Broadcast(context.Background(), Event{Type: EventExecutedUndoable, ActionID: "a-1"})

	for _, n := range []*recordingNotifier{a, b} {
		if len(n.events) != 1 || n.events[0].ActionID != "a-1" {
			t.Errorf("notifier %s events = %v", n.name, n.events)
		}
	}
}

func TestBroadcastSurvivesFailingNotifier(t *testing.T) {
	broken := &recordingNotifier{name: "broken", err: errors.New("down")}
	healthy := &recordingNotifier{name: "healthy"}

	r := NewRegistry()
	r.Add(broken)
	r.Add(healthy)

	r.Broadcast(context.Background(), Event{Type: EventUndoOutcome})

	if len(healthy.events) != 1 {
		t.Errorf("healthy notifier got %d events, want 1", len(healthy.events))
	}
}

func TestAddIgnoresNil(t *testing.T) {
	r := NewRegistry()
	r.Add(nil)
	r.Broadcast(context.Background(), Event{Type: EventUndoOutcome}) // must not panic
}
