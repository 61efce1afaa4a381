// internal/service/warehouse/domain/port/locker.go
package port

import "context"

// ProductLocker 是台账 check-then-act 所依赖的互斥保障。
// 这是整个系统里唯一需要真正互斥的地方：同一节点同一商品的并发售出
// 不允许都越过库存上限。单副本部署用进程内 keyed mutex，
// 多副本部署用 ZooKeeper 实现。
type ProductLocker interface {
	// Acquire 获取以 key（商品名）标识的锁，返回释放函数。
	Acquire(ctx context.Context, key string) (release func(), err error)
}
