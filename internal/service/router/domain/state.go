// internal/service/router/domain/state.go
package domain

// Status 定义了订单 Saga 的生命周期状态。
// 状态只向前流转：ACCEPTED → ROUTED → (COMPLETED | FAILED)，
// 或 ACCEPTED → OUT_OF_STOCK（从未路由成功）。
type Status string

const (
	StatusAccepted   Status = "ACCEPTED"     // 已创建，等待路由
	StatusRouted     Status = "ROUTED"       // 已派发到某个节点
	StatusCompleted  Status = "COMPLETED"    // 节点处理成功（终态）
	StatusFailed     Status = "FAILED"       // 节点拒绝或全部候选失败（终态）
	StatusOutOfStock Status = "OUT_OF_STOCK" // 从未出现过任何候选（终态）
)

// IsTerminal 判断是否为终态。终态之后不再接受任何流转。
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusOutOfStock
}
