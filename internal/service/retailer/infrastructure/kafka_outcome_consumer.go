// internal/service/retailer/infrastructure/kafka_outcome_consumer.go
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/service/retailer/application"
)

// OutcomeConsumerHandler 消费 origin.<originId>.outcome，交给对账服务。
type OutcomeConsumerHandler struct {
	reconciler *application.ReconcilerService
}

func NewOutcomeConsumerHandler(reconciler *application.ReconcilerService) *OutcomeConsumerHandler {
	return &OutcomeConsumerHandler{reconciler: reconciler}
}

func (h *OutcomeConsumerHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event events.OrderOutcome
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error().Err(err).Str("topic", msg.Topic).Msg("malformed outcome event, skipped")
		return nil
	}
	return h.reconciler.HandleOutcome(ctx, &event)
}
