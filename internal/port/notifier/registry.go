package notifier

import (
	"context"
	"log/slog"
	"sync"
)

// Registry fans an event out to every registered notifier. Per-notifier
// failures are logged and do not block delivery to the others.
type Registry struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a notifier. Nil notifiers are ignored.
func (r *Registry) Add(n Notifier) {
	if n == nil {
		return
	}
	r.mu.Lock()
	r.notifiers = append(r.notifiers, n)
	r.mu.Unlock()
}

// Broadcast sends the event to all registered notifiers.
func (r *Registry) Broadcast(ctx context.Context, ev Event) {
	r.mu.RLock()
	targets := make([]Notifier, len(r.notifiers))
	copy(targets, r.notifiers)
	r.mu.RUnlock()

	for _, n := range targets {
		if err := n.Send(ctx, ev); err != nil {
			slog.Warn("notifier send failed",
				"notifier", n.Name(),
				"event", ev.Type,
				"error", err,
			)
		}
	}
}
