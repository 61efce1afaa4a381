// internal/service/warehouse/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"stockmesh/internal/service/warehouse/domain"
)

// GormItemRepository 是 domain.ItemRepository 的 GORM 实现。
type GormItemRepository struct {
	db     *gorm.DB
	nodeID string
}

// NewGormItemRepository 创建台账条目仓储。只操作本节点的数据。
func NewGormItemRepository(db *gorm.DB, nodeID string) *GormItemRepository {
	return &GormItemRepository{db: db, nodeID: nodeID}
}

func (r *GormItemRepository) FindByID(ctx context.Context, id int64) (*domain.LedgerItem, error) {
	var item domain.LedgerItem
	err := r.db.WithContext(ctx).Where("id = ? AND node_id = ?", id, r.nodeID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *GormItemRepository) FindByProductName(ctx context.Context, name string) (*domain.LedgerItem, error) {
	var item domain.LedgerItem
	err := r.db.WithContext(ctx).Where("product_name = ? AND node_id = ?", name, r.nodeID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *GormItemRepository) FindAll(ctx context.Context) ([]domain.LedgerItem, error) {
	var items []domain.LedgerItem
	err := r.db.WithContext(ctx).Where("node_id = ?", r.nodeID).Order("id").Find(&items).Error
	return items, err
}

func (r *GormItemRepository) Save(ctx context.Context, item *domain.LedgerItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// GormEntryRepository 是 domain.EntryRepository 的 GORM 实现。
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository 创建审计流水仓储。
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

func (r *GormEntryRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormEntryRepository) FindByProduct(ctx context.Context, productID int64) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("transaction_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *GormEntryRepository) FindByNode(ctx context.Context, nodeID string) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("node_id = ?", nodeID).
		Order("transaction_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}
