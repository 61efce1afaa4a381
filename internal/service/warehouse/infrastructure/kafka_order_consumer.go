// internal/service/warehouse/infrastructure/kafka_order_consumer.go
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/service/warehouse/application"
	"stockmesh/internal/service/warehouse/domain/port"
)

// OrderConsumerHandler 消费 order.routed.<nodeId>：对到达本节点的订单
// 执行权威的 check-and-decrement，并把结果发布到 order.outcome。
// 同一消息可能被重投，售出失败路径天然幂等；成功路径依赖台账锁内的
// 状态检查，重复售出会因库存已扣减而以 FAILED 结果暴露给传播器吸收。
type OrderConsumerHandler struct {
	ledger  *application.LedgerService
	outcome port.OutcomeProducer
	tracer  trace.Tracer
}

// NewOrderConsumerHandler 创建订单消费处理器。
func NewOrderConsumerHandler(ledger *application.LedgerService, outcome port.OutcomeProducer, tracer trace.Tracer) *OrderConsumerHandler {
	return &OrderConsumerHandler{ledger: ledger, outcome: outcome, tracer: tracer}
}

// Handle 实现 mq.HandlerFunc。
func (h *OrderConsumerHandler) Handle(ctx context.Context, msg kafka.Message) error {
	ctx, span := h.tracer.Start(ctx, "warehouse.ConsumeOrder", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var order events.OrderRouted
	if err := json.Unmarshal(msg.Value, &order); err != nil {
		// 坏消息没有可用的 orderId，无法回发结果，只能丢弃留痕
		log.Error().Err(err).Msg("failed to unmarshal order.routed event, message skipped")
		span.RecordError(err)
		return nil
	}

	span.SetAttributes(
		attribute.String("order.id", order.OrderID),
		attribute.Int64("product.id", order.ProductID),
		attribute.Int("quantity", order.Quantity),
	)
	log.Info().Str("node", h.ledger.NodeID()).Str("order", order.OrderID).
		Int64("product", order.ProductID).Msg("received routed order")

	item, err := h.ledger.Sell(ctx, order.OriginID, order.ProductID, order.Quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order processing failed")
		log.Error().Err(err).Str("order", order.OrderID).Msg("failed to process order")

		h.publish(ctx, &events.OrderOutcome{
			OrderID: order.OrderID,
			Status:  "FAILED",
			Price:   0,
			Message: err.Error(),
		})
		return nil
	}

	h.publish(ctx, &events.OrderOutcome{
		OrderID: order.OrderID,
		Status:  "COMPLETED",
		Price:   item.Price,
		Message: "Order processed successfully by node " + h.ledger.NodeID(),
	})
	log.Info().Str("order", order.OrderID).Str("node", h.ledger.NodeID()).Msg("order completed")
	return nil
}

func (h *OrderConsumerHandler) publish(ctx context.Context, outcome *events.OrderOutcome) {
	if err := h.outcome.PublishOutcome(ctx, outcome); err != nil {
		log.Error().Err(err).Str("order", outcome.OrderID).Msg("failed to publish order outcome")
	}
}
