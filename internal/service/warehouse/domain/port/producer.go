// internal/service/warehouse/domain/port/producer.go
package port

import (
	"context"

	"stockmesh/internal/pkg/events"
)

// StockChangedProducer 在每次台账变更后对外广播最新库存。
type StockChangedProducer interface {
	PublishStockChanged(ctx context.Context, event *events.StockChanged) error
}

// OutcomeProducer 在订单处理结束后对外发布处理结果。
type OutcomeProducer interface {
	PublishOutcome(ctx context.Context, event *events.OrderOutcome) error
}
