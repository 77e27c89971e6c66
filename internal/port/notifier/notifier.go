// Package notifier defines the notification dispatch port (interface).
//
// Notification is fire-and-forget: send failures are logged by the caller
// and never propagated into the decision or execution pipeline.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Event types emitted by the coordinator.
const (
	EventExecutedUndoable = "action.executed_undoable"
	EventUndoOutcome      = "action.undo_outcome"
)

// Event is the payload sent through a Notifier.
type Event struct {
	Type     string `json:"type"`
	OwnerID  string `json:"owner_id"`
	ActionID string `json:"action_id,omitempty"`
	Message  string `json:"message"`
	Level    string `json:"level"` // "info", "warning", "error"
}

// Notifier is the port interface for sending coordinator events.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "nats").
	Name() string

	// Send delivers an event.
	Send(ctx context.Context, ev Event) error
}
