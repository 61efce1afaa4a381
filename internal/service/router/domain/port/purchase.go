// internal/service/router/domain/port/purchase.go
package port

import "context"

// Node 描述一个静态已知的履约节点。
type Node struct {
	ID      string
	BaseURL string
}

// Topology 提供静态拓扑：有哪些节点、按什么顺序兜底探测。
// 加载机制在核心之外，这里只依赖读取契约。
type Topology interface {
	Nodes() []Node
}

// ProbeResult 是一次同步探测的成功应答。
// StockAfter 是假定成交后的预计剩余库存，探测本身不做任何变更。
type ProbeResult struct {
	NodeID     string  `json:"nodeId"`
	ProductID  int64   `json:"productId"`
	Price      float64 `json:"price"`
	StockAfter int     `json:"stockAfter"`
}

// PurchaseClient 是路由器对节点的同步探测调用。
// 失败以 domain.ErrInsufficientStock / domain.ErrNodeUnavailable 区分；
// 超时等同于失败，由调用方淘汰候选后继续。
type PurchaseClient interface {
	Check(ctx context.Context, node Node, productID int64, quantity int, counterpartyID string) (*ProbeResult, error)
}
