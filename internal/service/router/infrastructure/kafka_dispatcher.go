// internal/service/router/infrastructure/kafka_dispatcher.go
package infrastructure

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/pkg/mq"
)

// KafkaDispatcher 承担路由器的全部出站消息：
// order.accepted 走固定主题，order.routed.<nodeId> 和
// origin.<originId>.outcome 是动态主题，Writer 按需创建后缓存复用。
type KafkaDispatcher struct {
	brokers []string

	accepted *kafka.Writer

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewKafkaDispatcher(brokers []string) *KafkaDispatcher {
	return &KafkaDispatcher{
		brokers:  brokers,
		accepted: mq.NewWriter(brokers, mq.TopicOrderAccepted),
		writers:  make(map[string]*kafka.Writer),
	}
}

func (d *KafkaDispatcher) DispatchAccepted(ctx context.Context, event *events.OrderAccepted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, d.accepted, []byte(event.OrderID), payload)
}

func (d *KafkaDispatcher) DispatchRouted(ctx context.Context, nodeID string, event *events.OrderRouted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writer := d.writerFor(mq.OrderRoutedTopic(nodeID))
	return mq.ProduceMessage(ctx, writer, []byte(event.OrderID), payload)
}

func (d *KafkaDispatcher) ForwardToOrigin(ctx context.Context, originID string, event *events.OrderOutcome) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writer := d.writerFor(mq.OriginOutcomeTopic(originID))
	return mq.ProduceMessage(ctx, writer, []byte(event.OrderID), payload)
}

func (d *KafkaDispatcher) writerFor(topic string) *kafka.Writer {
	d.mu.Lock()
	defer d.mu.Unlock()
	writer, ok := d.writers[topic]
	if !ok {
		writer = mq.NewWriter(d.brokers, topic)
		d.writers[topic] = writer
	}
	return writer
}

// Close 关闭全部 Writer。
func (d *KafkaDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.accepted.Close()
	for _, writer := range d.writers {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
