// Package ristretto provides an in-process trust score cache backed by
// dgraph-io/ristretto.
package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// ScoreCache caches trust scores keyed by owner and category, so the
// executor does not hit the store on every approval decision.
type ScoreCache struct {
	c   *ristretto.Cache[string, float64]
	ttl time.Duration
}

// NewScoreCache creates a cache holding up to maxItems scores, each
// expiring after ttl.
func NewScoreCache(maxItems int64, ttl time.Duration) (*ScoreCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, float64]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ScoreCache{c: c, ttl: ttl}, nil
}

// Get retrieves a cached score.
func (s *ScoreCache) Get(key string) (float64, bool) {
	return s.c.Get(key)
}

// Set stores a score. Each entry costs 1 against the item capacity.
func (s *ScoreCache) Set(key string, score float64) {
	s.c.SetWithTTL(key, score, 1, s.ttl)
}

// Delete evicts a score, forcing the next read through to the store.
func (s *ScoreCache) Delete(key string) {
	s.c.Del(key)
}

// Close shuts down the cache and releases resources.
func (s *ScoreCache) Close() {
	s.c.Close()
}
