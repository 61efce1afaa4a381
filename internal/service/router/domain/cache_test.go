// internal/service/router/domain/cache_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterCandidatesDropsInsufficientStock(t *testing.T) {
	entries := []CachedStockEntry{
		{NodeID: "wh-a", StockOnHand: 5},
		{NodeID: "wh-b", StockOnHand: 20},
		{NodeID: "wh-c", StockOnHand: 20},
	}

	candidates := FilterCandidates(entries, 10)

	assert.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.StockOnHand, 10)
	}
}

func TestFilterCandidatesOrderIsDeterministic(t *testing.T) {
	entries := []CachedStockEntry{
		{NodeID: "wh-c", StockOnHand: 20},
		{NodeID: "wh-a", StockOnHand: 5},
		{NodeID: "wh-b", StockOnHand: 20},
	}

	// 库存降序，相同库存按 nodeId 升序：任何输入顺序都得到同一结果
	for i := 0; i < 10; i++ {
		candidates := FilterCandidates(entries, 10)
		assert.Equal(t, "wh-b", candidates[0].NodeID)
		assert.Equal(t, "wh-c", candidates[1].NodeID)
	}
}

func TestFilterCandidatesPrefersDeepestStock(t *testing.T) {
	entries := []CachedStockEntry{
		{NodeID: "wh-a", StockOnHand: 15},
		{NodeID: "wh-b", StockOnHand: 30},
	}

	candidates := FilterCandidates(entries, 10)
	assert.Equal(t, "wh-b", candidates[0].NodeID)
}

func TestFilterCandidatesEmptyInput(t *testing.T) {
	assert.Empty(t, FilterCandidates(nil, 1))
	assert.Empty(t, FilterCandidates([]CachedStockEntry{{NodeID: "wh-a", StockOnHand: 3}}, 5))
}
