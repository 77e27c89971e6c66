package service

import "sync"

// DefaultRetryCeiling is the retry budget per unit of work when the
// configured ceiling is zero or negative.
const DefaultRetryCeiling = 3

// BudgetGovernor tracks retry consumption per unit-of-work id against a
// fixed ceiling. Counters are independent per id, created lazily on first
// consultation, and scoped to the process lifetime.
type BudgetGovernor struct {
	mu      sync.Mutex
	counts  map[string]int
	ceiling int
}

// NewBudgetGovernor creates a governor with the given retry ceiling.
func NewBudgetGovernor(ceiling int) *BudgetGovernor {
	if ceiling <= 0 {
		ceiling = DefaultRetryCeiling
	}
	return &BudgetGovernor{
		counts:  make(map[string]int),
		ceiling: ceiling,
	}
}

// RetriesUsed returns the number of retries consumed for the unit of work.
func (g *BudgetGovernor) RetriesUsed(unitID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[unitID]
}

// ConsumeRetry increments the counter and returns the new count.
func (g *BudgetGovernor) ConsumeRetry(unitID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts[unitID]++
	return g.counts[unitID]
}

// OverBudget reports whether the unit of work has reached the ceiling.
func (g *BudgetGovernor) OverBudget(unitID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[unitID] >= g.ceiling
}
