package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arcwell-foundry/aria/internal/domain/action"
)

// dispatchSubjectPrefix routes actions to agent workers by category,
// e.g. "agents.dispatch.crm_update".
const dispatchSubjectPrefix = "agents.dispatch."

// dispatchReply is the wire shape agent workers answer with.
type dispatchReply struct {
	Result map[string]any `json:"result"`
	Error  string         `json:"error,omitempty"`
}

// Dispatch sends the action to its category's worker subject and waits
// for the reply. Errors propagate: the executor boundary never swallows
// dispatch failures.
func (n *Client) Dispatch(ctx context.Context, a *action.Action) (map[string]any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal action %s: %w", a.ID, err)
	}

	subject := dispatchSubjectPrefix + string(a.Category)
	msg, err := n.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s to %s: %w", a.ID, subject, err)
	}

	var reply dispatchReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("decode dispatch reply for %s: %w", a.ID, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("agent worker failed for %s: %s", a.ID, reply.Error)
	}
	return reply.Result, nil
}
