// internal/service/warehouse/infrastructure/locker.go
package infrastructure

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"stockmesh/internal/pkg/zklock"
)

// LocalLocker 是 port.ProductLocker 的进程内实现：按 key 的互斥锁。
// 适用于单副本的仓库节点，是测试里使用的实现。
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker 创建进程内商品锁。
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

// ZkLocker 是 port.ProductLocker 的 ZooKeeper 实现，
// 供同一节点身份跑多副本的部署使用。
type ZkLocker struct {
	conn   *zklock.Conn
	nodeID string
}

// NewZkLocker 创建基于 ZooKeeper 的商品锁。
func NewZkLocker(conn *zklock.Conn, nodeID string) *ZkLocker {
	return &ZkLocker{conn: conn, nodeID: nodeID}
}

func (l *ZkLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := zklock.NewDistributedLock(l.conn, l.nodeID+"-"+key)
	if err != nil {
		return nil, errors.Wrap(err, "create distributed lock")
	}
	if err := lock.Lock(); err != nil {
		return nil, errors.Wrap(err, "acquire distributed lock")
	}
	return func() { _ = lock.Unlock() }, nil
}
