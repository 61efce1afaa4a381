// internal/service/retailer/domain/repository.go
package domain

import "context"

// InventoryRepository 管理发起方的本地库存。
type InventoryRepository interface {
	// FindByProduct 查单个商品；没有记录时返回 ErrProductNotInInventory。
	FindByProduct(ctx context.Context, originID string, productID int64) (*OriginInventory, error)
	FindAll(ctx context.Context, originID string) ([]OriginInventory, error)
	Save(ctx context.Context, inv *OriginInventory) error
}

// HistoryRepository 只追加的库存历史。
type HistoryRepository interface {
	Append(ctx context.Context, record *OriginInventoryHistory) error
	FindByProduct(ctx context.Context, originID string, productID int64) ([]OriginInventoryHistory, error)
}

// PurchaseRepository 管理已结单采购记录，orderId 唯一。
type PurchaseRepository interface {
	// FindByOrderID 没有记录时返回 (nil, nil)，存在性检查是幂等判断的一部分。
	FindByOrderID(ctx context.Context, orderID string) (*Purchase, error)
	Create(ctx context.Context, purchase *Purchase) error
}

// SaleRepository 记录对外销售。
type SaleRepository interface {
	Create(ctx context.Context, sale *Sale) error
	FindByOrigin(ctx context.Context, originID string) ([]Sale, error)
}

// TrackingRepository 管理采购订单跟踪记录。
type TrackingRepository interface {
	Create(ctx context.Context, tracking *OrderTracking) error
	FindByOrderID(ctx context.Context, orderID string) (*OrderTracking, error)
	Save(ctx context.Context, tracking *OrderTracking) error
	FindByOrigin(ctx context.Context, originID string) ([]OrderTracking, error)
}
