// Package dispatch defines the agent dispatch port (interface).
package dispatch

import (
	"context"

	"github.com/arcwell-foundry/aria/internal/domain/action"
)

// Dispatcher executes an action as an opaque unit of work against an agent
// backend. Errors from Dispatch are never swallowed at the executor
// boundary; the caller must surface them.
type Dispatcher interface {
	Dispatch(ctx context.Context, a *action.Action) (map[string]any, error)
}
