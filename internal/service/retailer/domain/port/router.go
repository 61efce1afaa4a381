// internal/service/retailer/domain/port/router.go
package port

import "context"

// PlacedOrder 是路由层对下单请求的同步回执。
// 回执只说明订单被接受，终态通过结果事件异步到达。
type PlacedOrder struct {
	OrderID     string `json:"orderId"`
	ReferenceID string `json:"referenceId"`
	Status      string `json:"status"`
}

// OrderPlacer 是发起方到路由层的下单调用。
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, originID string, productID int64, productName string, quantity int) (*PlacedOrder, error)
}
