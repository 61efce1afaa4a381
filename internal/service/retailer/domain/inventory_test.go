// internal/service/retailer/domain/inventory_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPurchaseWeightedAverage(t *testing.T) {
	inv := &OriginInventory{QuantityOnHand: 10, AverageCost: 2.0}

	// (10*2.0 + 5*5.0) / 15 = 3.0
	inv.ApplyPurchase(5, 5.0)

	assert.Equal(t, 15, inv.QuantityOnHand)
	assert.InDelta(t, 3.0, inv.AverageCost, 1e-9)
}

func TestApplyPurchaseOnEmptyInventory(t *testing.T) {
	inv := &OriginInventory{}

	inv.ApplyPurchase(4, 2.5)

	assert.Equal(t, 4, inv.QuantityOnHand)
	assert.InDelta(t, 2.5, inv.AverageCost, 1e-9)
}

func TestApplySaleKeepsAverageCost(t *testing.T) {
	inv := &OriginInventory{QuantityOnHand: 10, AverageCost: 3.0}

	require.NoError(t, inv.ApplySale(4))

	assert.Equal(t, 6, inv.QuantityOnHand)
	assert.InDelta(t, 3.0, inv.AverageCost, 1e-9)
}

func TestApplySaleInsufficientStock(t *testing.T) {
	inv := &OriginInventory{QuantityOnHand: 3, AverageCost: 3.0}

	err := inv.ApplySale(5)

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, inv.QuantityOnHand)
}
