package items

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-process Repository, used by tests and by
// callers that load items from a file rather than the store.
type MemoryRepository struct {
	mu        sync.RWMutex
	items     map[string]Item
	analytics map[string]Analytics
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items:     make(map[string]Item),
		analytics: make(map[string]Analytics),
	}
}

// Put adds or replaces an item.
func (m *MemoryRepository) Put(it Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
}

// SetAnalytics adds or replaces the analytics row for an item.
func (m *MemoryRepository) SetAnalytics(a Analytics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analytics[a.ItemID] = a
}

// QueryLowMastery implements Repository.
func (m *MemoryRepository) QueryLowMastery(_ context.Context, pool Kind, limit int) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cands []Candidate
	for _, it := range m.items {
		if it.Kind != pool {
			continue
		}
		a, ok := m.analytics[it.ID]
		if !ok {
			a = Analytics{ItemID: it.ID}
		}
		cands = append(cands, Candidate{Item: it, Analytics: a})
	}

	sort.Slice(cands, func(i, j int) bool { return Less(cands[i], cands[j]) })

	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]Item, len(cands))
	for i, c := range cands {
		out[i] = c.Item
	}
	return out, nil
}
