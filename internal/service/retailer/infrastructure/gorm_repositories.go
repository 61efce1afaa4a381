// internal/service/retailer/infrastructure/gorm_repositories.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"stockmesh/internal/service/retailer/domain"
)

// GormInventoryRepository 是 InventoryRepository 的 MySQL 实现。
type GormInventoryRepository struct {
	db *gorm.DB
}

func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

func (r *GormInventoryRepository) FindByProduct(ctx context.Context, originID string, productID int64) (*domain.OriginInventory, error) {
	var inv domain.OriginInventory
	err := r.db.WithContext(ctx).
		Where("origin_id = ? AND product_id = ?", originID, productID).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotInInventory
		}
		return nil, err
	}
	return &inv, nil
}

func (r *GormInventoryRepository) FindAll(ctx context.Context, originID string) ([]domain.OriginInventory, error) {
	var invs []domain.OriginInventory
	err := r.db.WithContext(ctx).Where("origin_id = ?", originID).Order("product_id ASC").Find(&invs).Error
	return invs, err
}

func (r *GormInventoryRepository) Save(ctx context.Context, inv *domain.OriginInventory) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

// GormHistoryRepository 是 HistoryRepository 的 MySQL 实现。
type GormHistoryRepository struct {
	db *gorm.DB
}

func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

func (r *GormHistoryRepository) Append(ctx context.Context, record *domain.OriginInventoryHistory) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *GormHistoryRepository) FindByProduct(ctx context.Context, originID string, productID int64) ([]domain.OriginInventoryHistory, error) {
	var records []domain.OriginInventoryHistory
	err := r.db.WithContext(ctx).
		Where("origin_id = ? AND product_id = ?", originID, productID).
		Order("recorded_at ASC").
		Find(&records).Error
	return records, err
}

// GormPurchaseRepository 是 PurchaseRepository 的 MySQL 实现。
type GormPurchaseRepository struct {
	db *gorm.DB
}

func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

func (r *GormPurchaseRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Purchase, error) {
	var purchase domain.Purchase
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

func (r *GormPurchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

// GormSaleRepository 是 SaleRepository 的 MySQL 实现。
type GormSaleRepository struct {
	db *gorm.DB
}

func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

func (r *GormSaleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *GormSaleRepository) FindByOrigin(ctx context.Context, originID string) ([]domain.Sale, error) {
	var sales []domain.Sale
	err := r.db.WithContext(ctx).Where("origin_id = ?", originID).Order("sold_at DESC").Find(&sales).Error
	return sales, err
}

// GormTrackingRepository 是 TrackingRepository 的 MySQL 实现。
type GormTrackingRepository struct {
	db *gorm.DB
}

func NewGormTrackingRepository(db *gorm.DB) *GormTrackingRepository {
	return &GormTrackingRepository{db: db}
}

func (r *GormTrackingRepository) Create(ctx context.Context, tracking *domain.OrderTracking) error {
	return r.db.WithContext(ctx).Create(tracking).Error
}

func (r *GormTrackingRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.OrderTracking, error) {
	var tracking domain.OrderTracking
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&tracking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTrackingNotFound
		}
		return nil, err
	}
	return &tracking, nil
}

func (r *GormTrackingRepository) Save(ctx context.Context, tracking *domain.OrderTracking) error {
	return r.db.WithContext(ctx).Save(tracking).Error
}

func (r *GormTrackingRepository) FindByOrigin(ctx context.Context, originID string) ([]domain.OrderTracking, error) {
	var trackings []domain.OrderTracking
	err := r.db.WithContext(ctx).Where("origin_id = ?", originID).Order("created_at DESC").Find(&trackings).Error
	return trackings, err
}
