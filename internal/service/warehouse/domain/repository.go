// internal/service/warehouse/domain/repository.go
package domain

import "context"

// ItemRepository 定义台账条目的持久化接口，由基础设施层实现。
type ItemRepository interface {
	FindByID(ctx context.Context, id int64) (*LedgerItem, error)
	FindByProductName(ctx context.Context, name string) (*LedgerItem, error)
	FindAll(ctx context.Context) ([]LedgerItem, error)
	Save(ctx context.Context, item *LedgerItem) error
}

// EntryRepository 定义审计流水的持久化接口。流水只追加，不更新。
type EntryRepository interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	// FindByProduct 按时间升序返回某个商品的全部流水
	FindByProduct(ctx context.Context, productID int64) ([]LedgerEntry, error)
	// FindByNode 按时间降序返回本节点的全部流水
	FindByNode(ctx context.Context, nodeID string) ([]LedgerEntry, error)
}
