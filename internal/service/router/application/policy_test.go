// internal/service/router/application/policy_test.go
package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockmesh/internal/service/router/domain"
)

func TestEmptyExpressionMeansNoPolicy(t *testing.T) {
	policy, err := NewSelectionPolicy("")
	require.NoError(t, err)
	assert.Nil(t, policy)
	// nil 策略放行一切
	assert.True(t, policy.Admit(domain.CachedStockEntry{}, 1))
}

func TestPolicyFiltersByPriceAndNode(t *testing.T) {
	policy, err := NewSelectionPolicy(`price <= 5.0 && node_id != "wh-banned"`)
	require.NoError(t, err)

	assert.True(t, policy.Admit(domain.CachedStockEntry{NodeID: "wh-1", Price: 3.0}, 1))
	assert.False(t, policy.Admit(domain.CachedStockEntry{NodeID: "wh-1", Price: 8.0}, 1))
	assert.False(t, policy.Admit(domain.CachedStockEntry{NodeID: "wh-banned", Price: 1.0}, 1))
}

func TestPolicySeesStockAndQuantity(t *testing.T) {
	// 只接受成交后还剩一半以上库存的节点
	policy, err := NewSelectionPolicy(`stock - quantity >= stock / 2`)
	require.NoError(t, err)

	assert.True(t, policy.Admit(domain.CachedStockEntry{StockOnHand: 20}, 5))
	assert.False(t, policy.Admit(domain.CachedStockEntry{StockOnHand: 20}, 15))
}

func TestInvalidExpressionRejectedAtStartup(t *testing.T) {
	_, err := NewSelectionPolicy(`price <<< 5`)
	assert.Error(t, err)
}

func TestNonBoolExpressionRejected(t *testing.T) {
	_, err := NewSelectionPolicy(`price + 1.0`)
	assert.Error(t, err)
}
