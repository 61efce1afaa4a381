// internal/service/retailer/application/retailer.go
package application

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockmesh/internal/service/retailer/domain"
	"stockmesh/internal/service/retailer/domain/port"
)

// saleMarkup 是对外售价相对平均成本的加成比例。
const saleMarkup = 0.15

// RetailerService 是发起方的应用层：向仓网采购补货，对外销售本地存货。
type RetailerService struct {
	originID  string
	placer    port.OrderPlacer
	inventory domain.InventoryRepository
	history   domain.HistoryRepository
	sales     domain.SaleRepository
	tracking  domain.TrackingRepository
	tracer    trace.Tracer
}

func NewRetailerService(
	originID string,
	placer port.OrderPlacer,
	inventory domain.InventoryRepository,
	history domain.HistoryRepository,
	sales domain.SaleRepository,
	tracking domain.TrackingRepository,
	tracer trace.Tracer,
) *RetailerService {
	return &RetailerService{
		originID:  originID,
		placer:    placer,
		inventory: inventory,
		history:   history,
		sales:     sales,
		tracking:  tracking,
		tracer:    tracer,
	}
}

// OriginID 返回本发起方的标识。
func (s *RetailerService) OriginID() string { return s.originID }

// BuyFromWarehouse 向路由层下一笔采购订单并开始跟踪。
// 库存要等结果事件回来才会变化，这里只拿到订单号。
func (s *RetailerService) BuyFromWarehouse(ctx context.Context, productID int64, productName string, quantity int) (*domain.OrderTracking, error) {
	ctx, span := s.tracer.Start(ctx, "retailer.BuyFromWarehouse")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", productID), attribute.Int("quantity", quantity))

	placed, err := s.placer.PlaceOrder(ctx, s.originID, productID, productName, quantity)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := time.Now()
	tracking := &domain.OrderTracking{
		OrderID:     placed.OrderID,
		ReferenceID: placed.ReferenceID,
		OriginID:    s.originID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		Status:      domain.TrackingPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tracking.Create(ctx, tracking); err != nil {
		span.RecordError(err)
		return nil, err
	}

	log.Info().Str("order", placed.OrderID).Int64("product", productID).
		Int("quantity", quantity).Msg("purchase order placed")
	return tracking, nil
}

// SellToCustomer 从本地存货卖出。售价 = 平均成本 × (1 + 加成)。
func (s *RetailerService) SellToCustomer(ctx context.Context, productID int64, quantity int) (*domain.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "retailer.SellToCustomer")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", productID), attribute.Int("quantity", quantity))

	inv, err := s.inventory.FindByProduct(ctx, s.originID, productID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := inv.ApplySale(quantity); err != nil {
		return nil, err
	}
	if err := s.inventory.Save(ctx, inv); err != nil {
		span.RecordError(err)
		return nil, err
	}

	unitPrice := inv.AverageCost * (1 + saleMarkup)
	sale := &domain.Sale{
		OriginID:    s.originID,
		ProductID:   productID,
		ProductName: inv.ProductName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		SoldAt:      time.Now(),
	}
	if err := s.sales.Create(ctx, sale); err != nil {
		span.RecordError(err)
		return nil, err
	}

	record := &domain.OriginInventoryHistory{
		OriginID:      s.originID,
		ProductID:     productID,
		ProductName:   inv.ProductName,
		Type:          domain.HistorySold,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		QuantityAfter: inv.QuantityOnHand,
		RecordedAt:    time.Now(),
	}
	if err := s.history.Append(ctx, record); err != nil {
		span.RecordError(err)
		return nil, err
	}

	log.Info().Int64("product", productID).Int("quantity", quantity).
		Float64("unit_price", unitPrice).Msg("sale completed")
	return sale, nil
}

// Inventory 返回本发起方的全部库存记录。
func (s *RetailerService) Inventory(ctx context.Context) ([]domain.OriginInventory, error) {
	return s.inventory.FindAll(ctx, s.originID)
}

// ProductHistory 返回某个商品的库存变动历史。
func (s *RetailerService) ProductHistory(ctx context.Context, productID int64) ([]domain.OriginInventoryHistory, error) {
	return s.history.FindByProduct(ctx, s.originID, productID)
}

// Orders 返回全部采购订单的跟踪记录。
func (s *RetailerService) Orders(ctx context.Context) ([]domain.OrderTracking, error) {
	return s.tracking.FindByOrigin(ctx, s.originID)
}

// Order 按订单号查询跟踪记录。
func (s *RetailerService) Order(ctx context.Context, orderID string) (*domain.OrderTracking, error) {
	return s.tracking.FindByOrderID(ctx, orderID)
}

// Sales 返回全部销售记录。
func (s *RetailerService) Sales(ctx context.Context) ([]domain.Sale, error) {
	return s.sales.FindByOrigin(ctx, s.originID)
}
