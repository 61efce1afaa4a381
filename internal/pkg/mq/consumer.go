// internal/pkg/mq/consumer.go
package mq

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc 处理一条已经恢复了 trace 上下文的消息。
// 返回 nil 表示消息已处理完（含主动丢弃的坏消息和重复投递），位移会被提交；
// 返回 error 表示瞬时失败（存储不可用等），位移不提交，等重启或
// rebalance 重投。因此处理器自身必须幂等。
type HandlerFunc func(ctx context.Context, msg kafka.Message) error

// messageSource 抽象 worker 依赖的 Reader 行为。*kafka.Reader 实现它。
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer 是一个带并发 worker 池的消费组消费者。
// 每个 worker 持有自己的 Reader（同一个 GroupID），分区由 broker 分配，
// 因此同一订单的消息不保证总落在同一个 worker 上。
type Consumer struct {
	brokers []string
	groupID string
	topic   string
	workers int
	handler HandlerFunc

	mu      sync.Mutex
	readers []*kafka.Reader
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer 创建消费者。workers <= 0 时退化为单 worker。
func NewConsumer(brokers []string, groupID, topic string, workers int, handler HandlerFunc) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		brokers: brokers,
		groupID: groupID,
		topic:   topic,
		workers: workers,
		handler: handler,
	}
}

// Start 启动所有 worker。非阻塞。
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.brokers,
			GroupID:  c.groupID,
			Topic:    c.topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
		c.mu.Lock()
		c.readers = append(c.readers, reader)
		c.mu.Unlock()

		g.Go(func() error {
			c.runWorker(ctx, reader)
			return nil
		})
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = g.Wait()
	}()
	log.Info().Str("topic", c.topic).Str("group", c.groupID).Int("workers", c.workers).Msg("kafka consumer started")
}

func (c *Consumer) runWorker(ctx context.Context, reader messageSource) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("topic", c.topic).Msg("could not fetch message, retrying")
			time.Sleep(time.Second) // 避免对不可用的 broker 快速空转
			continue
		}

		msgCtx := ExtractTraceContext(ctx, msg)
		if err := c.handler(msgCtx, msg); err != nil {
			// 瞬时失败不提交位移，让重投兜底；处理器的幂等性保证重投安全
			log.Error().Err(err).Str("topic", c.topic).Msg("handler failed, offset not committed")
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("topic", c.topic).Msg("failed to commit offset")
		}
	}
}

// Close 停止所有 worker 并关闭 Reader。
func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	for _, r := range c.readers {
		_ = r.Close()
	}
	c.mu.Unlock()
	c.wg.Wait()
	log.Info().Str("topic", c.topic).Msg("kafka consumer stopped")
}
