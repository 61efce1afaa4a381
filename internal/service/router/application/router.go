// internal/service/router/application/router.go
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
	"stockmesh/internal/service/router/domain"
	"stockmesh/internal/service/router/domain/port"
)

// RouterService 负责订单的接单和路由：
// 先用缓存里的软状态挑候选，失败就淘汰条目继续，缓存帮不上忙时
// 退回对全部已知节点的一轮兜底探测。缓存只是优化，不是正确性机制——
// 正确性由节点自己的 check-and-decrement 保证，兜底存在的意义正是
// 缓存可能出错（过期、为空、和并发采购赛跑）。
type RouterService struct {
	sagas        domain.SagaRepository
	cache        domain.CandidateCache
	topology     port.Topology
	probe        port.PurchaseClient
	dispatcher   port.OrderDispatcher
	forwarder    port.OutcomeForwarder
	policy       *SelectionPolicy
	probeTimeout time.Duration
	tracer       trace.Tracer
}

// NewRouterService 创建路由服务。policy 可以为 nil。
func NewRouterService(
	sagas domain.SagaRepository,
	cache domain.CandidateCache,
	topology port.Topology,
	probe port.PurchaseClient,
	dispatcher port.OrderDispatcher,
	forwarder port.OutcomeForwarder,
	policy *SelectionPolicy,
	probeTimeout time.Duration,
	tracer trace.Tracer,
) *RouterService {
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}
	return &RouterService{
		sagas:        sagas,
		cache:        cache,
		topology:     topology,
		probe:        probe,
		dispatcher:   dispatcher,
		forwarder:    forwarder,
		policy:       policy,
		probeTimeout: probeTimeout,
		tracer:       tracer,
	}
}

// CreateOrder 创建一条 ACCEPTED 状态的 Saga 并发布 order.accepted。
// 商品名缺失时从缓存补齐（缓存没有就留空，等结果事件回填）。
func (s *RouterService) CreateOrder(ctx context.Context, originID string, productID int64, productName string, quantity int) (*domain.OrderSaga, error) {
	ctx, span := s.tracer.Start(ctx, "router.CreateOrder")
	defer span.End()

	var price float64
	if entries, err := s.cache.Entries(ctx, productID); err == nil && len(entries) > 0 {
		if productName == "" {
			productName = entries[0].ProductName
		}
		price = entries[0].Price
	}

	saga := domain.NewOrderSaga(originID, productID, productName, quantity, price)
	if err := s.sagas.Create(ctx, saga); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", saga.OrderID), attribute.Int64("product.id", productID))
	log.Info().Str("order", saga.OrderID).Str("origin", originID).
		Int64("product", productID).Int("quantity", quantity).
		Msg("order accepted")

	event := &events.OrderAccepted{
		OrderID:     saga.OrderID,
		ReferenceID: saga.ReferenceID,
		OriginID:    saga.OriginID,
		ProductID:   saga.ProductID,
		ProductName: saga.ProductName,
		Quantity:    saga.Quantity,
	}
	if err := s.dispatcher.DispatchAccepted(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish order.accepted")
		return nil, err
	}
	return saga, nil
}

// HandleOrderAccepted 是 order.accepted 的消费入口：加载 Saga 并执行路由。
func (s *RouterService) HandleOrderAccepted(ctx context.Context, event *events.OrderAccepted) error {
	ctx, span := s.tracer.Start(ctx, "router.HandleOrderAccepted", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("order.id", event.OrderID))

	saga, err := s.sagas.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrSagaNotFound) {
			log.Warn().Str("order", event.OrderID).Msg("order.accepted references unknown saga, dropped")
			return nil
		}
		span.RecordError(err)
		return err
	}
	if saga.Status != domain.StatusAccepted {
		// 重投：路由已经发生过，直接吸收
		log.Info().Str("order", saga.OrderID).Str("status", string(saga.Status)).
			Msg("duplicate order.accepted for already-routed saga, dropped")
		return nil
	}

	return s.routeOrder(ctx, saga)
}

// routeOrder 执行 §候选 → 淘汰 → 兜底 的单轮路由。
// 每个已知节点最多被兜底探测一次，没有重试和退避。
func (s *RouterService) routeOrder(ctx context.Context, saga *domain.OrderSaga) error {
	ctx, span := s.tracer.Start(ctx, "router.RouteOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", saga.OrderID), attribute.Int64("product.id", saga.ProductID))

	candidates, err := s.cache.Candidates(ctx, saga.ProductID, saga.Quantity)
	if err != nil {
		// 缓存故障视同缓存为空：直接走兜底
		log.Error().Err(err).Str("order", saga.OrderID).Msg("candidate lookup failed, falling back to direct probing")
		candidates = nil
	}
	hadCandidates := len(candidates) > 0

	var lastFailure error
	for _, candidate := range candidates {
		if !s.policy.Admit(candidate, saga.Quantity) {
			log.Info().Str("order", saga.OrderID).Str("node", candidate.NodeID).Msg("candidate rejected by selection policy")
			continue
		}
		node, ok := s.lookupNode(candidate.NodeID)
		if !ok {
			// 缓存里有、拓扑里没有：节点已下线，条目作废
			s.evict(ctx, saga.ProductID, candidate.NodeID)
			continue
		}
		result, err := s.attempt(ctx, saga, node)
		if err == nil {
			return s.dispatch(ctx, saga, result)
		}
		lastFailure = err
		s.evict(ctx, saga.ProductID, candidate.NodeID)
	}

	// 缓存为空或全部候选失败：对全部已知节点按配置顺序兜底探测一轮
	log.Warn().Str("order", saga.OrderID).Bool("had_candidates", hadCandidates).
		Msg("cache exhausted, probing all known nodes directly")
	for _, node := range s.topology.Nodes() {
		fallbackProbesTotal.Inc()
		result, err := s.attempt(ctx, saga, node)
		if err == nil {
			return s.dispatch(ctx, saga, result)
		}
		lastFailure = err
		s.evict(ctx, saga.ProductID, node.ID)
	}

	// 彻底失败：落终态并把结果告知发起方，订单不能停在 PENDING
	notes := "no fulfillment node available"
	if lastFailure != nil {
		notes = fmt.Sprintf("routing exhausted, last failure: %v", lastFailure)
	}
	if err := saga.MarkExhausted(hadCandidates, notes); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.sagas.Save(ctx, saga); err != nil {
		span.RecordError(err)
		return err
	}
	ordersTotal.WithLabelValues(string(saga.Status)).Inc()
	span.SetStatus(codes.Error, "routing exhausted")
	log.Warn().Str("order", saga.OrderID).Str("status", string(saga.Status)).Str("notes", notes).
		Msg("routing exhausted")

	// 没有任何节点会为这笔订单发 order.outcome，终态只能由路由层自己转发
	outcome := &events.OrderOutcome{
		OrderID: saga.OrderID,
		Status:  string(saga.Status),
		Message: notes,
	}
	if err := s.forwarder.ForwardToOrigin(ctx, saga.OriginID, outcome); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("order", saga.OrderID).Str("origin", saga.OriginID).
			Msg("failed to forward exhaustion outcome to origin")
		return err
	}
	return nil
}

// attempt 对单个节点做一次有超时的同步探测。
func (s *RouterService) attempt(ctx context.Context, saga *domain.OrderSaga, node port.Node) (*port.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	result, err := s.probe.Check(ctx, node, saga.ProductID, saga.Quantity, saga.OriginID)
	if err != nil {
		log.Info().Err(err).Str("order", saga.OrderID).Str("node", node.ID).Msg("purchase attempt failed")
		return nil, err
	}
	return result, nil
}

func (s *RouterService) dispatch(ctx context.Context, saga *domain.OrderSaga, result *port.ProbeResult) error {
	if err := saga.MarkRouted(result.NodeID, result.Price); err != nil {
		return err
	}
	if err := s.sagas.Save(ctx, saga); err != nil {
		return err
	}

	event := &events.OrderRouted{
		OrderID:   saga.OrderID,
		ProductID: saga.ProductID,
		Quantity:  saga.Quantity,
		OriginID:  saga.OriginID,
	}
	if err := s.dispatcher.DispatchRouted(ctx, result.NodeID, event); err != nil {
		log.Error().Err(err).Str("order", saga.OrderID).Str("node", result.NodeID).
			Msg("failed to dispatch routed order")
		return err
	}

	log.Info().Str("order", saga.OrderID).Str("node", result.NodeID).
		Float64("price", result.Price).Msg("order dispatched")
	return nil
}

func (s *RouterService) evict(ctx context.Context, productID int64, nodeID string) {
	if err := s.cache.Evict(ctx, productID, nodeID); err != nil {
		log.Error().Err(err).Int64("product", productID).Str("node", nodeID).Msg("cache eviction failed")
		return
	}
	cacheEvictionsTotal.Inc()
}

func (s *RouterService) lookupNode(nodeID string) (port.Node, bool) {
	for _, node := range s.topology.Nodes() {
		if node.ID == nodeID {
			return node, true
		}
	}
	return port.Node{}, false
}

// Order 按订单号查询 Saga。
func (s *RouterService) Order(ctx context.Context, orderID string) (*domain.OrderSaga, error) {
	return s.sagas.FindByOrderID(ctx, orderID)
}

// OrdersByStatus 返回处于某个状态的全部 Saga。
func (s *RouterService) OrdersByStatus(ctx context.Context, status domain.Status) ([]domain.OrderSaga, error) {
	return s.sagas.FindByStatus(ctx, status)
}

// OrdersByOrigin 返回某个发起方的全部 Saga。
func (s *RouterService) OrdersByOrigin(ctx context.Context, originID string) ([]domain.OrderSaga, error) {
	return s.sagas.FindByOrigin(ctx, originID)
}
