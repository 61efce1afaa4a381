// internal/service/router/domain/repository.go
package domain

import "context"

// SagaRepository 定义订单 Saga 的持久化接口，由基础设施层实现。
type SagaRepository interface {
	// Create 插入一条新 Saga。orderId 上有唯一约束。
	Create(ctx context.Context, saga *OrderSaga) error
	// FindByOrderID 按订单号查找。
	FindByOrderID(ctx context.Context, orderID string) (*OrderSaga, error)
	// Save 保存状态变更。
	Save(ctx context.Context, saga *OrderSaga) error
	// FindByStatus 返回处于某个状态的全部 Saga。
	FindByStatus(ctx context.Context, status Status) ([]OrderSaga, error)
	// FindByOrigin 返回某个发起方的全部 Saga。
	FindByOrigin(ctx context.Context, originID string) ([]OrderSaga, error)
}
