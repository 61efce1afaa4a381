// internal/service/router/domain/cache.go
package domain

import (
	"context"
	"sort"
)

// CachedStockEntry 是库存缓存里的一条软状态：某个节点对某个商品
// 最后一次广播的库存和价格。它只是路由提示，允许过期、允许缺失，
// 永远不作为正确性依据。
type CachedStockEntry struct {
	ProductID   int64   `json:"productId"`
	NodeID      string  `json:"nodeId"`
	StockOnHand int     `json:"stockOnHand"`
	Price       float64 `json:"price"`
	ProductName string  `json:"productName"`
}

// CandidateCache 是路由层持有的库存缓存。
// 并发读（在途的路由决策）和并发写（库存事件消费者）按
// (productId, nodeId) 为粒度，不需要跨 key 的锁。
// 只对本实例保证读己之写；和权威台账之间没有任何时点一致性保证，
// 这是整个设计的核心取舍。
type CandidateCache interface {
	// Update 对 (productId, nodeId) 做 upsert；幂等，按到达顺序覆盖。
	Update(ctx context.Context, entry CachedStockEntry) error
	// Entries 返回某个商品的全部缓存条目（未过滤、未排序）。
	Entries(ctx context.Context, productID int64) ([]CachedStockEntry, error)
	// Candidates 返回库存足够的候选，按 FilterCandidates 的确定性顺序。
	Candidates(ctx context.Context, productID int64, requiredQty int) ([]CachedStockEntry, error)
	// Evict 移除一个条目：探测失败后这个节点在新事件到来之前不再被重试。
	Evict(ctx context.Context, productID int64, nodeID string) error
	// Snapshot 返回全量缓存视图，用于调试端点和推送初始状态。
	Snapshot(ctx context.Context) (map[int64][]CachedStockEntry, error)
}

// FilterCandidates 是候选排序的唯一实现，所有缓存后端共用：
// 过滤掉库存不足的条目，按库存降序排列，库存相同时按 nodeId 升序，
// 保证路由决策的确定性。
func FilterCandidates(entries []CachedStockEntry, requiredQty int) []CachedStockEntry {
	candidates := make([]CachedStockEntry, 0, len(entries))
	for _, e := range entries {
		if e.StockOnHand >= requiredQty {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].StockOnHand != candidates[j].StockOnHand {
			return candidates[i].StockOnHand > candidates[j].StockOnHand
		}
		return candidates[i].NodeID < candidates[j].NodeID
	})
	return candidates
}
