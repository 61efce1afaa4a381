// internal/service/warehouse/infrastructure/kafka_producers.go
package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/pkg/mq"
)

// StockProducerAdapter 把台账变更发布到 stock.changed。
type StockProducerAdapter struct {
	writer *kafka.Writer
}

// NewStockProducerAdapter 创建库存事件生产者。
func NewStockProducerAdapter(writer *kafka.Writer) *StockProducerAdapter {
	return &StockProducerAdapter{writer: writer}
}

func (p *StockProducerAdapter) PublishStockChanged(ctx context.Context, event *events.StockChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// 以商品 ID 作为 Key，同一商品的更新保持分区内有序
	key := []byte(strconv.FormatInt(event.ProductID, 10))
	if err := mq.ProduceMessage(ctx, p.writer, key, payload); err != nil {
		log.Error().Err(err).Msg("failed to produce stock.changed")
		return err
	}
	return nil
}

// OutcomeProducerAdapter 把订单处理结果发布到 order.outcome。
type OutcomeProducerAdapter struct {
	writer *kafka.Writer
}

// NewOutcomeProducerAdapter 创建结果事件生产者。
func NewOutcomeProducerAdapter(writer *kafka.Writer) *OutcomeProducerAdapter {
	return &OutcomeProducerAdapter{writer: writer}
}

func (p *OutcomeProducerAdapter) PublishOutcome(ctx context.Context, event *events.OrderOutcome) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := mq.ProduceMessage(ctx, p.writer, []byte(event.OrderID), payload); err != nil {
		log.Error().Err(err).Str("order", event.OrderID).Msg("failed to produce order.outcome")
		return err
	}
	return nil
}
