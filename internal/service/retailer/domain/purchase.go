// internal/service/retailer/domain/purchase.go
package domain

import "time"

// Purchase 是一次已结单采购的本地记录。orderId 上的唯一索引
// 就是结果消费的幂等屏障：同一订单的重复 COMPLETED 只能落一条。
type Purchase struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID     string    `json:"orderId" gorm:"size:64;uniqueIndex"`
	OriginID    string    `json:"originId" gorm:"size:64;index"`
	ProductID   int64     `json:"productId" gorm:"index"`
	ProductName string    `json:"productName" gorm:"size:255"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unitPrice"`
	CompletedAt time.Time `json:"completedAt"`
}

// TableName 覆盖 GORM 默认的表名。
func (Purchase) TableName() string { return "purchases" }

// Sale 是一次对外销售的记录，售价在平均成本上加成。
type Sale struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	OriginID    string    `json:"originId" gorm:"size:64;index"`
	ProductID   int64     `json:"productId" gorm:"index"`
	ProductName string    `json:"productName" gorm:"size:255"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unitPrice"`
	SoldAt      time.Time `json:"soldAt"`
}

// TableName 覆盖 GORM 默认的表名。
func (Sale) TableName() string { return "sales" }

// TrackingStatus 是发起方视角下一笔采购订单的状态。
type TrackingStatus string

const (
	TrackingPending    TrackingStatus = "PENDING"
	TrackingCompleted  TrackingStatus = "COMPLETED"
	TrackingFailed     TrackingStatus = "FAILED"
	TrackingOutOfStock TrackingStatus = "OUT_OF_STOCK"
)

// OrderTracking 跟踪发起方发出的每一笔采购订单。
// 它是结果事件的投影，真正的订单生命周期归路由层管。
type OrderTracking struct {
	ID          int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID     string         `json:"orderId" gorm:"size:64;uniqueIndex"`
	ReferenceID string         `json:"referenceId" gorm:"size:32;index"`
	OriginID    string         `json:"originId" gorm:"size:64;index"`
	ProductID   int64          `json:"productId"`
	ProductName string         `json:"productName" gorm:"size:255"`
	Quantity    int            `json:"quantity"`
	Status      TrackingStatus `json:"status" gorm:"size:16;index"`
	Message     string         `json:"message" gorm:"size:512"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// TableName 覆盖 GORM 默认的表名。
func (OrderTracking) TableName() string { return "order_trackings" }
