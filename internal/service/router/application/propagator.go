// internal/service/router/application/propagator.go
package application

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/service/router/domain"
	"stockmesh/internal/service/router/domain/port"
)

// StatusPropagator 消费节点回报的 order.outcome，更新 Saga 终态，
// 再把结果转发到发起方专属的 origin.<originId>.outcome。
// 转发必须发生在 Saga 落库之后，顺序不能反。
type StatusPropagator struct {
	sagas     domain.SagaRepository
	forwarder port.OutcomeForwarder
	tracer    trace.Tracer
}

func NewStatusPropagator(sagas domain.SagaRepository, forwarder port.OutcomeForwarder, tracer trace.Tracer) *StatusPropagator {
	return &StatusPropagator{sagas: sagas, forwarder: forwarder, tracer: tracer}
}

// HandleOutcome 处理一条结果事件。重复投递和乱序投递都被吸收而不是报错，
// 消费侧的重试语义要求这里幂等。
func (p *StatusPropagator) HandleOutcome(ctx context.Context, event *events.OrderOutcome) error {
	ctx, span := p.tracer.Start(ctx, "router.HandleOutcome", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("order.id", event.OrderID), attribute.String("outcome", event.Status))

	saga, err := p.sagas.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrSagaNotFound) {
			// 收到了不属于任何 Saga 的结果，留痕排查，不打断消费
			log.Warn().Str("order", event.OrderID).Str("outcome", event.Status).
				Msg("outcome for unknown order, dropped")
			return nil
		}
		span.RecordError(err)
		return err
	}

	applied, err := saga.ApplyOutcome(domain.Status(event.Status), event.Price, event.Message)
	if err != nil {
		log.Error().Err(err).Str("order", saga.OrderID).Str("status", string(saga.Status)).
			Str("outcome", event.Status).Msg("outcome rejected by saga state machine")
		return nil
	}
	if !applied {
		log.Info().Str("order", saga.OrderID).Str("status", string(saga.Status)).
			Msg("duplicate outcome for terminal saga, absorbed")
		return nil
	}

	if err := p.sagas.Save(ctx, saga); err != nil {
		span.RecordError(err)
		return err
	}
	ordersTotal.WithLabelValues(string(saga.Status)).Inc()
	log.Info().Str("order", saga.OrderID).Str("status", string(saga.Status)).Msg("saga reached terminal state")

	forwarded := &events.OrderOutcome{
		OrderID: saga.OrderID,
		Status:  string(saga.Status),
		Price:   saga.Price,
		Message: event.Message,
	}
	if err := p.forwarder.ForwardToOrigin(ctx, saga.OriginID, forwarded); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("order", saga.OrderID).Str("origin", saga.OriginID).
			Msg("failed to forward outcome to origin")
		return err
	}
	return nil
}
