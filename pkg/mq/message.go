// Package mq 提供领域事件的 outbox 持久化、转发与 Kafka producer/consumer
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Message 领域事件消息
type Message struct {
	ID         string
	Topic      string
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

// UnmarshalPayload 反序列化消息体
func (m Message) UnmarshalPayload(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", m.Topic, err)
	}
	return nil
}

// Handler 消息处理函数
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc 函数适配器
type HandlerFunc func(ctx context.Context, msg Message) error

// Handle 实现 Handler
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// EventPublisher 事件发布接口；context 中存在事务时与业务写入同一事务提交
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}
