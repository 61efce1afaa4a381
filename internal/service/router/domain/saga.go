// internal/service/router/domain/saga.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderSaga 是订单聚合的根实体：一次采购从接受到终态的完整生命周期。
// 它的状态分布在三个独立持久化的存储（路由层、节点台账、发起方库存）之间，
// 只靠已投递的事件达成一致，这条记录是路由层的那一份。
type OrderSaga struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID     string     `json:"orderId" gorm:"size:64;uniqueIndex"`
	ReferenceID string     `json:"referenceId" gorm:"size:32;index"`
	OriginID    string     `json:"originId" gorm:"size:64;index"`
	ProductID   int64      `json:"productId" gorm:"index"`
	ProductName string     `json:"productName" gorm:"size:255"`
	Quantity    int        `json:"quantity"`
	Price       float64    `json:"price"`
	NodeID      *string    `json:"nodeId,omitempty" gorm:"size:64"`
	Status      Status     `json:"status" gorm:"size:16;index"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Notes       string     `json:"notes" gorm:"size:512"`
}

// TableName 覆盖 GORM 默认的表名。
func (OrderSaga) TableName() string { return "order_sagas" }

// NewOrderSaga 创建一个新的订单 Saga，初始状态 ACCEPTED。
// orderId 在这里生成且之后不再变更、永不复用。
func NewOrderSaga(originID string, productID int64, productName string, quantity int, price float64) *OrderSaga {
	now := time.Now()
	return &OrderSaga{
		OrderID:     generateOrderID(now),
		ReferenceID: generateReferenceID(),
		OriginID:    originID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		Price:       price,
		Status:      StatusAccepted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkRouted 记录订单派发到了哪个节点。nodeId 只在这次流转时赋值一次。
func (s *OrderSaga) MarkRouted(nodeID string, price float64) error {
	if s.Status != StatusAccepted {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, StatusRouted)
	}
	s.NodeID = &nodeID
	s.Price = price
	s.Status = StatusRouted
	s.UpdatedAt = time.Now()
	return nil
}

// MarkExhausted 记录路由彻底失败：缓存和兜底探测都没有成交。
// hadCandidates 决定终态是 FAILED（有过候选但全部拒绝）还是
// OUT_OF_STOCK（从未出现过候选）。
func (s *OrderSaga) MarkExhausted(hadCandidates bool, notes string) error {
	if s.Status != StatusAccepted {
		return fmt.Errorf("%w: %s -> exhausted", ErrInvalidTransition, s.Status)
	}
	if hadCandidates {
		s.Status = StatusFailed
	} else {
		s.Status = StatusOutOfStock
	}
	s.Notes = notes
	now := time.Now()
	s.UpdatedAt = now
	s.CompletedAt = &now
	return nil
}

// ApplyOutcome 应用节点回报的处理结果。
// 返回值 applied=false 且 err=nil 表示这是一次对已终态 Saga 的重复投递，
// 按幂等要求静默吸收；真正违反流转规则才返回 ErrInvalidTransition。
func (s *OrderSaga) ApplyOutcome(status Status, price float64, message string) (applied bool, err error) {
	if status != StatusCompleted && status != StatusFailed {
		return false, fmt.Errorf("%w: outcome status %s", ErrInvalidTransition, status)
	}
	if s.Status.IsTerminal() {
		return false, nil
	}
	if s.Status != StatusRouted {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, status)
	}

	s.Status = status
	if price > 0 {
		s.Price = price
	}
	s.Notes = message
	now := time.Now()
	s.UpdatedAt = now
	s.CompletedAt = &now
	return true, nil
}

// generateOrderID 生成 ORD-YYYY-MM-DD-XXXXXXXX 形式的全局唯一订单号。
func generateOrderID(now time.Time) string {
	unique := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("2006-01-02"), unique)
}

// generateReferenceID 生成发给发起方的 REF-XXXXXXXX 关联号。
func generateReferenceID() string {
	return "REF-" + strings.ToUpper(uuid.New().String()[:8])
}
