// internal/service/router/infrastructure/gorm_saga_repository.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"stockmesh/internal/service/router/domain"
)

// GormSagaRepository 是 SagaRepository 的 MySQL 实现。
type GormSagaRepository struct {
	db *gorm.DB
}

func NewGormSagaRepository(db *gorm.DB) *GormSagaRepository {
	return &GormSagaRepository{db: db}
}

func (r *GormSagaRepository) Create(ctx context.Context, saga *domain.OrderSaga) error {
	return r.db.WithContext(ctx).Create(saga).Error
}

func (r *GormSagaRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.OrderSaga, error) {
	var saga domain.OrderSaga
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&saga).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSagaNotFound
		}
		return nil, err
	}
	return &saga, nil
}

func (r *GormSagaRepository) Save(ctx context.Context, saga *domain.OrderSaga) error {
	return r.db.WithContext(ctx).Save(saga).Error
}

func (r *GormSagaRepository) FindByStatus(ctx context.Context, status domain.Status) ([]domain.OrderSaga, error) {
	var sagas []domain.OrderSaga
	err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at DESC").Find(&sagas).Error
	return sagas, err
}

func (r *GormSagaRepository) FindByOrigin(ctx context.Context, originID string) ([]domain.OrderSaga, error) {
	var sagas []domain.OrderSaga
	err := r.db.WithContext(ctx).Where("origin_id = ?", originID).Order("created_at DESC").Find(&sagas).Error
	return sagas, err
}
