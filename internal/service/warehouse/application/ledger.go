// internal/service/warehouse/application/ledger.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/service/warehouse/domain"
	"stockmesh/internal/service/warehouse/domain/port"
)

// LedgerService 是仓库节点的核心应用服务：本节点库存的唯一权威。
// 所有变更都在商品锁内做 check-then-act，然后追加审计流水并广播库存事件。
type LedgerService struct {
	nodeID  string
	items   domain.ItemRepository
	entries domain.EntryRepository
	locker  port.ProductLocker
	stock   port.StockChangedProducer
	tracer  trace.Tracer
}

// NewLedgerService 创建台账服务。nodeID 显式传入，不走全局状态。
func NewLedgerService(
	nodeID string,
	items domain.ItemRepository,
	entries domain.EntryRepository,
	locker port.ProductLocker,
	stock port.StockChangedProducer,
	tracer trace.Tracer,
) *LedgerService {
	return &LedgerService{
		nodeID:  nodeID,
		items:   items,
		entries: entries,
		locker:  locker,
		stock:   stock,
		tracer:  tracer,
	}
}

// NodeID 返回本节点的标识。
func (s *LedgerService) NodeID() string { return s.nodeID }

// AddStock 按商品名 upsert：已有商品累加数量并以最新价格为准，
// 新商品直接建档。两种情况都会留下 ADDED 流水并广播库存事件。
func (s *LedgerService) AddStock(ctx context.Context, productName string, quantity int, price float64) (*domain.LedgerItem, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.AddStock")
	defer span.End()
	span.SetAttributes(attribute.String("product.name", productName), attribute.Int("quantity", quantity))

	release, err := s.locker.Acquire(ctx, productName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer release()

	item, err := s.items.FindByProductName(ctx, productName)
	if err != nil && !errors.Is(err, domain.ErrItemNotFound) {
		span.RecordError(err)
		return nil, err
	}

	var stockBefore int
	notes := "Initial stock"
	if item == nil {
		item = &domain.LedgerItem{
			NodeID:      s.nodeID,
			ProductName: productName,
			Price:       price,
			StockOnHand: quantity,
		}
	} else {
		stockBefore = item.StockOnHand
		item.StockOnHand = stockBefore + quantity
		item.Price = price
		notes = "Restocked inventory"
	}

	if err := s.items.Save(ctx, item); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.record(ctx, item, domain.TransactionAdded, quantity, stockBefore, item.StockOnHand, nil, notes); err != nil {
		return nil, err
	}
	s.publishStock(ctx, item)

	log.Info().Str("node", s.nodeID).Str("product", productName).
		Int("before", stockBefore).Int("after", item.StockOnHand).
		Msg("stock added")
	return item, nil
}

// Sell 处理一次售出。库存不足时以 ErrInsufficientStock 拒绝且不做任何变更。
// 这是全系统唯一保证库存一致性的地方。
func (s *LedgerService) Sell(ctx context.Context, counterpartyID string, productID int64, quantity int) (*domain.LedgerItem, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Sell")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", quantity),
		attribute.String("counterparty.id", counterpartyID),
	)

	// 先拿到商品名才能确定锁的 key，加锁后必须重读再检查
	item, err := s.items.FindByID(ctx, productID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, item.ProductName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer release()

	item, err = s.items.FindByID(ctx, productID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !item.CanSell(quantity) {
		err := fmt.Errorf("%w: available %d, requested %d", domain.ErrInsufficientStock, item.StockOnHand, quantity)
		span.SetStatus(codes.Error, "insufficient stock")
		return nil, err
	}

	stockBefore := item.StockOnHand
	item.StockOnHand = stockBefore - quantity
	if err := s.items.Save(ctx, item); err != nil {
		span.RecordError(err)
		return nil, err
	}

	notes := "Sold to " + counterpartyID
	if err := s.record(ctx, item, domain.TransactionSold, quantity, stockBefore, item.StockOnHand, &counterpartyID, notes); err != nil {
		return nil, err
	}
	s.publishStock(ctx, item)

	log.Info().Str("node", s.nodeID).Str("product", item.ProductName).
		Int("before", stockBefore).Int("after", item.StockOnHand).
		Str("counterparty", counterpartyID).
		Msg("stock sold")
	return item, nil
}

// Adjust 把库存直接校正到 newQuantity，流水里记录带符号的差值。
func (s *LedgerService) Adjust(ctx context.Context, productID int64, newQuantity int) (*domain.LedgerItem, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Adjust")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", productID), attribute.Int("new_quantity", newQuantity))

	item, err := s.items.FindByID(ctx, productID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, item.ProductName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer release()

	item, err = s.items.FindByID(ctx, productID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	stockBefore := item.StockOnHand
	delta := newQuantity - stockBefore
	item.StockOnHand = newQuantity
	if err := s.items.Save(ctx, item); err != nil {
		span.RecordError(err)
		return nil, err
	}

	notes := "Stock increased"
	if delta < 0 {
		notes = "Stock decreased"
	}
	if err := s.record(ctx, item, domain.TransactionAdjusted, delta, stockBefore, item.StockOnHand, nil, notes); err != nil {
		return nil, err
	}
	s.publishStock(ctx, item)

	log.Info().Str("node", s.nodeID).Str("product", item.ProductName).
		Int("before", stockBefore).Int("after", newQuantity).
		Msg("stock adjusted")
	return item, nil
}

// Item 按 ID 查询台账条目。
func (s *LedgerService) Item(ctx context.Context, id int64) (*domain.LedgerItem, error) {
	return s.items.FindByID(ctx, id)
}

// Items 返回本节点的全部台账条目。
func (s *LedgerService) Items(ctx context.Context) ([]domain.LedgerItem, error) {
	return s.items.FindAll(ctx)
}

// ProductHistory 返回某个商品的审计流水（时间升序）。
func (s *LedgerService) ProductHistory(ctx context.Context, productID int64) ([]domain.LedgerEntry, error) {
	return s.entries.FindByProduct(ctx, productID)
}

// NodeHistory 返回本节点的全部审计流水（时间降序）。
func (s *LedgerService) NodeHistory(ctx context.Context) ([]domain.LedgerEntry, error) {
	return s.entries.FindByNode(ctx, s.nodeID)
}

// AuditProduct 重放某个商品的流水并与当前库存比对。
// 返回 (重放结果, 当前库存, 是否一致)。
func (s *LedgerService) AuditProduct(ctx context.Context, productID int64) (int, int, bool, error) {
	item, err := s.items.FindByID(ctx, productID)
	if err != nil {
		return 0, 0, false, err
	}
	entries, err := s.entries.FindByProduct(ctx, productID)
	if err != nil {
		return 0, 0, false, err
	}
	replayed := domain.Replay(entries)
	return replayed, item.StockOnHand, replayed == item.StockOnHand, nil
}

func (s *LedgerService) record(
	ctx context.Context,
	item *domain.LedgerItem,
	txType domain.TransactionType,
	quantity, stockBefore, stockAfter int,
	counterpartyID *string,
	notes string,
) error {
	entry := &domain.LedgerEntry{
		NodeID:             s.nodeID,
		ProductID:          item.ID,
		ProductName:        item.ProductName,
		TransactionType:    txType,
		Quantity:           quantity,
		PriceAtTransaction: item.Price,
		StockBefore:        stockBefore,
		StockAfter:         stockAfter,
		CounterpartyID:     counterpartyID,
		TransactionAt:      time.Now(),
		Notes:              notes,
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("product", item.ProductName).Msg("failed to append ledger entry")
		return err
	}
	return nil
}

func (s *LedgerService) publishStock(ctx context.Context, item *domain.LedgerItem) {
	event := &events.StockChanged{
		NodeID:      s.nodeID,
		ProductID:   item.ID,
		ProductName: item.ProductName,
		StockOnHand: item.StockOnHand,
		Price:       item.Price,
	}
	// 库存事件是软状态的刷新源，发布失败不回滚台账，只留痕。
	// 缓存会因为拿不到新事件而变旧，路由侧的探测兜底会消化这部分偏差。
	if err := s.stock.PublishStockChanged(ctx, event); err != nil {
		log.Error().Err(err).Int64("product", item.ID).Msg("failed to publish stock.changed")
	}
}
