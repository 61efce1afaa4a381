// internal/service/router/domain/port/producer.go
package port

import (
	"context"

	"stockmesh/internal/pkg/events"
)

// OrderDispatcher 是路由器的出站消息端口。
type OrderDispatcher interface {
	// DispatchAccepted 在 Saga 创建后发布 order.accepted，触发路由流程。
	DispatchAccepted(ctx context.Context, event *events.OrderAccepted) error
	// DispatchRouted 把订单派发到目标节点专属的 order.routed.<nodeId>。
	DispatchRouted(ctx context.Context, nodeID string, event *events.OrderRouted) error
}

// OutcomeForwarder 把已应用到 Saga 的结果转发给发起方。
type OutcomeForwarder interface {
	ForwardToOrigin(ctx context.Context, originID string, event *events.OrderOutcome) error
}

// StockFeed 把消费到的库存事件推给已连接的观察方（运维 UI）。
// 纯旁路：推送失败不影响缓存刷新。
type StockFeed interface {
	Broadcast(event *events.StockChanged)
}
