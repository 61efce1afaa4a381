// internal/service/router/infrastructure/memory_cache.go
package infrastructure

import (
	"context"
	"sync"

	"stockmesh/internal/service/router/domain"
)

// MemoryCandidateCache 是库存缓存的进程内实现，单实例部署的默认后端。
// 进程重启缓存清空，由兜底探测兜住，不需要预热。
type MemoryCandidateCache struct {
	mu      sync.RWMutex
	entries map[int64]map[string]domain.CachedStockEntry
}

func NewMemoryCandidateCache() *MemoryCandidateCache {
	return &MemoryCandidateCache{
		entries: make(map[int64]map[string]domain.CachedStockEntry),
	}
}

func (c *MemoryCandidateCache) Update(_ context.Context, entry domain.CachedStockEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	byNode, ok := c.entries[entry.ProductID]
	if !ok {
		byNode = make(map[string]domain.CachedStockEntry)
		c.entries[entry.ProductID] = byNode
	}
	byNode[entry.NodeID] = entry
	return nil
}

func (c *MemoryCandidateCache) Entries(_ context.Context, productID int64) ([]domain.CachedStockEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	byNode := c.entries[productID]
	out := make([]domain.CachedStockEntry, 0, len(byNode))
	for _, entry := range byNode {
		out = append(out, entry)
	}
	return out, nil
}

func (c *MemoryCandidateCache) Candidates(ctx context.Context, productID int64, requiredQty int) ([]domain.CachedStockEntry, error) {
	entries, err := c.Entries(ctx, productID)
	if err != nil {
		return nil, err
	}
	return domain.FilterCandidates(entries, requiredQty), nil
}

func (c *MemoryCandidateCache) Evict(_ context.Context, productID int64, nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if byNode, ok := c.entries[productID]; ok {
		delete(byNode, nodeID)
		if len(byNode) == 0 {
			delete(c.entries, productID)
		}
	}
	return nil
}

func (c *MemoryCandidateCache) Snapshot(_ context.Context) (map[int64][]domain.CachedStockEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int64][]domain.CachedStockEntry, len(c.entries))
	for productID, byNode := range c.entries {
		entries := make([]domain.CachedStockEntry, 0, len(byNode))
		for _, entry := range byNode {
			entries = append(entries, entry)
		}
		out[productID] = entries
	}
	return out, nil
}
