// internal/pkg/mq/topics.go
package mq

// 核心事件主题。均为持久化主题，至少一次投递，跨主题不保证顺序。
const (
	// TopicStockChanged 由每个仓库节点在每次台账变更后发布，所有库存缓存实例消费。
	TopicStockChanged = "stock.changed"
	// TopicOrderAccepted 由路由层在创建订单 Saga 时发布，触发路由流程。
	TopicOrderAccepted = "order.accepted"
	// TopicOrderOutcome 由仓库节点在处理完订单后发布，状态传播器消费。
	TopicOrderOutcome = "order.outcome"
)

// OrderRoutedTopic 返回指定节点专属的订单派发主题。
func OrderRoutedTopic(nodeID string) string {
	return "order.routed." + nodeID
}

// OriginOutcomeTopic 返回指定发起方专属的结果主题。
func OriginOutcomeTopic(originID string) string {
	return "origin." + originID + ".outcome"
}
