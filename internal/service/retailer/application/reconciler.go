// internal/service/retailer/application/reconciler.go
package application

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/service/retailer/domain"
)

// ReconcilerService 消费 origin.<originId>.outcome，把成交并入本地库存。
// 消费端的重试语义意味着同一条结果可能到达多次，幂等由 orderId 上的
// 采购记录保证：有记录就是已对账，直接吸收。
type ReconcilerService struct {
	originID  string
	inventory domain.InventoryRepository
	history   domain.HistoryRepository
	purchases domain.PurchaseRepository
	tracking  domain.TrackingRepository
	tracer    trace.Tracer
}

func NewReconcilerService(
	originID string,
	inventory domain.InventoryRepository,
	history domain.HistoryRepository,
	purchases domain.PurchaseRepository,
	tracking domain.TrackingRepository,
	tracer trace.Tracer,
) *ReconcilerService {
	return &ReconcilerService{
		originID:  originID,
		inventory: inventory,
		history:   history,
		purchases: purchases,
		tracking:  tracking,
		tracer:    tracer,
	}
}

// HandleOutcome 处理一条采购结果。
func (s *ReconcilerService) HandleOutcome(ctx context.Context, event *events.OrderOutcome) error {
	ctx, span := s.tracer.Start(ctx, "retailer.HandleOutcome", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("order.id", event.OrderID), attribute.String("outcome", event.Status))

	tracking, err := s.tracking.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrTrackingNotFound) {
			log.Warn().Str("order", event.OrderID).Msg("outcome for untracked order, dropped")
			return nil
		}
		span.RecordError(err)
		return err
	}

	switch event.Status {
	case string(domain.TrackingCompleted):
		return s.reconcileCompleted(ctx, tracking, event)
	case string(domain.TrackingFailed), string(domain.TrackingOutOfStock):
		return s.recordFailure(ctx, tracking, event)
	default:
		log.Warn().Str("order", event.OrderID).Str("status", event.Status).Msg("unknown outcome status, dropped")
		return nil
	}
}

// reconcileCompleted 把一次成交并入本地库存。每个 orderId 恰好并入一次。
func (s *ReconcilerService) reconcileCompleted(ctx context.Context, tracking *domain.OrderTracking, event *events.OrderOutcome) error {
	existing, err := s.purchases.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Info().Str("order", event.OrderID).Msg("duplicate completed outcome, already reconciled")
		return nil
	}

	purchase := &domain.Purchase{
		OrderID:     event.OrderID,
		OriginID:    s.originID,
		ProductID:   tracking.ProductID,
		ProductName: tracking.ProductName,
		Quantity:    tracking.Quantity,
		UnitPrice:   event.Price,
		CompletedAt: time.Now(),
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		return err
	}

	inv, err := s.inventory.FindByProduct(ctx, s.originID, tracking.ProductID)
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotInInventory) {
			return err
		}
		inv = &domain.OriginInventory{
			OriginID:    s.originID,
			ProductID:   tracking.ProductID,
			ProductName: tracking.ProductName,
		}
	}
	inv.ApplyPurchase(tracking.Quantity, event.Price)
	if err := s.inventory.Save(ctx, inv); err != nil {
		return err
	}

	orderID := event.OrderID
	record := &domain.OriginInventoryHistory{
		OriginID:      s.originID,
		ProductID:     tracking.ProductID,
		ProductName:   tracking.ProductName,
		Type:          domain.HistoryPurchased,
		Quantity:      tracking.Quantity,
		UnitPrice:     event.Price,
		QuantityAfter: inv.QuantityOnHand,
		OrderID:       &orderID,
		RecordedAt:    time.Now(),
	}
	if err := s.history.Append(ctx, record); err != nil {
		return err
	}

	s.updateTracking(ctx, tracking, domain.TrackingCompleted, event.Message)
	log.Info().Str("order", event.OrderID).Int64("product", tracking.ProductID).
		Int("quantity", tracking.Quantity).Float64("price", event.Price).
		Float64("avg_cost", inv.AverageCost).Msg("purchase reconciled into inventory")
	return nil
}

// recordFailure 只更新跟踪记录，库存不动。
func (s *ReconcilerService) recordFailure(ctx context.Context, tracking *domain.OrderTracking, event *events.OrderOutcome) error {
	if tracking.Status != domain.TrackingPending {
		log.Info().Str("order", event.OrderID).Str("status", string(tracking.Status)).
			Msg("duplicate outcome for settled order, absorbed")
		return nil
	}
	s.updateTracking(ctx, tracking, domain.TrackingStatus(event.Status), event.Message)
	log.Warn().Str("order", event.OrderID).Str("status", event.Status).
		Str("message", event.Message).Msg("purchase order did not complete")
	return nil
}

func (s *ReconcilerService) updateTracking(ctx context.Context, tracking *domain.OrderTracking, status domain.TrackingStatus, message string) {
	tracking.Status = status
	tracking.Message = message
	tracking.UpdatedAt = time.Now()
	if err := s.tracking.Save(ctx, tracking); err != nil {
		// 跟踪记录是投影，保存失败留痕即可，不回滚库存
		log.Error().Err(err).Str("order", tracking.OrderID).Msg("failed to update order tracking")
	}
}
