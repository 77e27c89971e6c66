package service

import "github.com/arcwell-foundry/aria/internal/domain/agent"

// FallbackResolver resolves the next untried agent role capable of taking
// over a unit of work, from the static capability table in the agent
// package.
type FallbackResolver struct{}

// NewFallbackResolver creates a FallbackResolver.
func NewFallbackResolver() *FallbackResolver {
	return &FallbackResolver{}
}

// NextFallback returns the first fallback for role not present in tried,
// and false when the list is exhausted or the role has no delegates.
// The already-tried set is owned by the caller: the resolver keeps no
// delegation history of its own.
func (r *FallbackResolver) NextFallback(role agent.Role, tried map[agent.Role]bool) (agent.Role, bool) {
	for _, fb := range agent.Fallbacks(role) {
		if !tried[fb] {
			return fb, true
		}
	}
	return "", false
}
