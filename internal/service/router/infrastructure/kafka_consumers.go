// internal/service/router/infrastructure/kafka_consumers.go
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/service/router/application"
	"stockmesh/internal/service/router/domain"
	"stockmesh/internal/service/router/domain/port"
)

// StockChangedHandler 消费 stock.changed，刷新库存缓存并旁路推送。
type StockChangedHandler struct {
	cache domain.CandidateCache
	feed  port.StockFeed
}

func NewStockChangedHandler(cache domain.CandidateCache, feed port.StockFeed) *StockChangedHandler {
	return &StockChangedHandler{cache: cache, feed: feed}
}

func (h *StockChangedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event events.StockChanged
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error().Err(err).Str("topic", msg.Topic).Msg("malformed stock.changed event, skipped")
		return nil
	}

	entry := domain.CachedStockEntry{
		ProductID:   event.ProductID,
		NodeID:      event.NodeID,
		StockOnHand: event.StockOnHand,
		Price:       event.Price,
		ProductName: event.ProductName,
	}
	if err := h.cache.Update(ctx, entry); err != nil {
		return err
	}
	log.Debug().Str("node", event.NodeID).Int64("product", event.ProductID).
		Int("stock", event.StockOnHand).Msg("stock cache refreshed")

	if h.feed != nil {
		h.feed.Broadcast(&event)
	}
	return nil
}

// OrderAcceptedHandler 消费 order.accepted，触发路由。
type OrderAcceptedHandler struct {
	router *application.RouterService
}

func NewOrderAcceptedHandler(router *application.RouterService) *OrderAcceptedHandler {
	return &OrderAcceptedHandler{router: router}
}

func (h *OrderAcceptedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event events.OrderAccepted
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error().Err(err).Str("topic", msg.Topic).Msg("malformed order.accepted event, skipped")
		return nil
	}
	return h.router.HandleOrderAccepted(ctx, &event)
}

// OrderOutcomeHandler 消费 order.outcome，交给状态传播器。
type OrderOutcomeHandler struct {
	propagator *application.StatusPropagator
}

func NewOrderOutcomeHandler(propagator *application.StatusPropagator) *OrderOutcomeHandler {
	return &OrderOutcomeHandler{propagator: propagator}
}

func (h *OrderOutcomeHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event events.OrderOutcome
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error().Err(err).Str("topic", msg.Topic).Msg("malformed order.outcome event, skipped")
		return nil
	}
	return h.propagator.HandleOutcome(ctx, &event)
}
