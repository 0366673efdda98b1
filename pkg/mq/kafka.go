package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/storefront/pkg/logger"
)

const headerEventID = "event_id"

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      []string
	GroupID      string
	MaxRetries   int
	RetryBackoff int
}

// KafkaProducer Kafka 生产者，作为 outbox relay 的投递目标
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer 创建 Kafka 生产者
func NewProducer(cfg KafkaConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        time.Duration(cfg.RetryBackoff) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoff*10) * time.Millisecond,
	}

	logger.Info(context.Background(), "Kafka producer created successfully", "brokers", cfg.Brokers)
	return &KafkaProducer{writer: writer}
}

// Handle 将消息写入与事件类型同名的 topic
func (kp *KafkaProducer) Handle(ctx context.Context, msg Message) error {
	err := kp.writer.WriteMessages(ctx, kafka.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Payload,
		Time:    msg.OccurredAt,
		Headers: []kafka.Header{{Key: headerEventID, Value: []byte(msg.ID)}},
	})
	if err != nil {
		logger.Error(ctx, "Failed to send Kafka message", "topic", msg.Topic, "key", msg.Key, "error", err)
		return fmt.Errorf("kafka write %s: %w", msg.Topic, err)
	}
	logger.Debug(ctx, "Kafka message sent", "topic", msg.Topic, "key", msg.Key)
	return nil
}

// Close 关闭生产者
func (kp *KafkaProducer) Close() error {
	return kp.writer.Close()
}

// KafkaConsumer Kafka 消费者组
type KafkaConsumer struct {
	reader *kafka.Reader
}

// NewConsumer 创建订阅多个 topic 的消费者
func NewConsumer(cfg KafkaConfig, topics []string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	logger.Info(context.Background(), "Kafka consumer created successfully", "group_id", cfg.GroupID, "topics", topics)
	return &KafkaConsumer{reader: reader}
}

// Run 拉取消息交给 handler，处理失败记录日志后仍提交位点
func (kc *KafkaConsumer) Run(ctx context.Context, handler Handler) error {
	for {
		m, err := kc.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		msg := Message{Topic: m.Topic, Key: string(m.Key), Payload: m.Value, OccurredAt: m.Time}
		for _, h := range m.Headers {
			if h.Key == headerEventID {
				msg.ID = string(h.Value)
			}
		}

		if err := handler.Handle(ctx, msg); err != nil {
			logger.Error(ctx, "Kafka message handling failed",
				"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "error", err)
		}
		if err := kc.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

// Close 关闭消费者
func (kc *KafkaConsumer) Close() error {
	return kc.reader.Close()
}
