package httpapi

import (
	"sync"

	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

// resultKey identifies one analysis request shape.
type resultKey struct {
	Username string
	MinElo   int
	MaxElo   int
}

type resultEntry struct {
	result     *opportunity.AnalysisResult
	generation int64
}

// resultCache memoizes aggregated analysis responses per request shape.
// Entries are valid only for the store generation they were built from;
// any committed write invalidates them all implicitly.
type resultCache struct {
	mu      sync.RWMutex
	entries map[resultKey]resultEntry
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[resultKey]resultEntry)}
}

func (c *resultCache) get(key resultKey, generation int64) (*opportunity.AnalysisResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.generation != generation {
		return nil, false
	}
	return e.result, true
}

func (c *resultCache) put(key resultKey, generation int64, result *opportunity.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = resultEntry{result: result, generation: generation}
}
