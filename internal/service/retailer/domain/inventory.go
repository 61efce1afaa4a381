// internal/service/retailer/domain/inventory.go
package domain

import (
	"fmt"
	"time"
)

// OriginInventory 是发起方本地的一条库存记录：持有数量和加权平均成本。
// 它只被成功结单的采购和本地销售驱动，和节点台账之间没有直接一致性，
// 对账完全靠结果事件。
type OriginInventory struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	OriginID       string    `json:"originId" gorm:"size:64;uniqueIndex:idx_origin_product"`
	ProductID      int64     `json:"productId" gorm:"uniqueIndex:idx_origin_product"`
	ProductName    string    `json:"productName" gorm:"size:255"`
	QuantityOnHand int       `json:"quantityOnHand"`
	AverageCost    float64   `json:"averageCost"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// TableName 覆盖 GORM 默认的表名。
func (OriginInventory) TableName() string { return "origin_inventories" }

// ApplyPurchase 把一次成交并入库存，平均成本按数量加权重算：
// (旧数量×旧均价 + 新数量×成交价) / (旧数量+新数量)。
func (inv *OriginInventory) ApplyPurchase(quantity int, price float64) {
	oldQty := inv.QuantityOnHand
	newQty := oldQty + quantity
	if newQty > 0 {
		inv.AverageCost = (float64(oldQty)*inv.AverageCost + float64(quantity)*price) / float64(newQty)
	}
	inv.QuantityOnHand = newQty
	inv.LastUpdated = time.Now()
}

// ApplySale 扣减本地库存。均价不变，卖出不影响剩余存货的成本。
func (inv *OriginInventory) ApplySale(quantity int) error {
	if inv.QuantityOnHand < quantity {
		return fmt.Errorf("%w: available %d, requested %d", ErrInsufficientStock, inv.QuantityOnHand, quantity)
	}
	inv.QuantityOnHand -= quantity
	inv.LastUpdated = time.Now()
	return nil
}

// HistoryType 标记一条库存历史的来源。
type HistoryType string

const (
	HistoryPurchased HistoryType = "PURCHASED"
	HistorySold      HistoryType = "SOLD"
)

// OriginInventoryHistory 是发起方库存的只追加历史，一条记录一次变动。
type OriginInventoryHistory struct {
	ID            int64       `json:"id" gorm:"primaryKey;autoIncrement"`
	OriginID      string      `json:"originId" gorm:"size:64;index"`
	ProductID     int64       `json:"productId" gorm:"index"`
	ProductName   string      `json:"productName" gorm:"size:255"`
	Type          HistoryType `json:"type" gorm:"size:16"`
	Quantity      int         `json:"quantity"`
	UnitPrice     float64     `json:"unitPrice"`
	QuantityAfter int         `json:"quantityAfter"`
	OrderID       *string     `json:"orderId,omitempty" gorm:"size:64;index"`
	RecordedAt    time.Time   `json:"recordedAt"`
}

// TableName 覆盖 GORM 默认的表名。
func (OriginInventoryHistory) TableName() string { return "origin_inventory_histories" }
