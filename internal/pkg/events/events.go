// internal/pkg/events/events.go
package events

// 跨进程的事件契约。所有跨边界的状态更新都以这些不可变载荷传递，
// 没有任何实体跨进程共享可变状态。

// StockChanged 由仓库节点在每次台账变更后发布到 stock.changed。
type StockChanged struct {
	NodeID      string  `json:"nodeId"`
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	StockOnHand int     `json:"stockOnHand"`
	Price       float64 `json:"price"`
}

// OrderAccepted 由路由层在创建订单 Saga 时发布到 order.accepted。
type OrderAccepted struct {
	OrderID     string `json:"orderId"`
	ReferenceID string `json:"referenceId"`
	OriginID    string `json:"originId"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// OrderRouted 由路由层发布到 order.routed.<nodeId>，只被目标节点消费。
type OrderRouted struct {
	OrderID   string `json:"orderId"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	OriginID  string `json:"originId"`
}

// OrderOutcome 由仓库节点在处理完订单后发布到 order.outcome；
// 状态传播器更新 Saga 后以同样的载荷转发到 origin.<originId>.outcome。
// 路由耗尽时由路由层直接向发起方转发 FAILED / OUT_OF_STOCK。
type OrderOutcome struct {
	OrderID string  `json:"orderId"`
	Status  string  `json:"status"` // COMPLETED、FAILED 或 OUT_OF_STOCK
	Price   float64 `json:"price"`
	Message string  `json:"message"`
}
