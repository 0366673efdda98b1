package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/storefront/pkg/db"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
	"gorm.io/gorm"
)

// Outbox 消息状态
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxMessage outbox 表
type OutboxMessage struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	EventID   string    `gorm:"type:varchar(36);uniqueIndex"`
	Topic     string    `gorm:"type:varchar(100);index"`
	Key       string    `gorm:"column:msg_key;type:varchar(100)"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);index;default:'pending'"`
	Attempts  int       `gorm:"not null;default:0"`
	LastError string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

func (m OutboxMessage) toMessage() Message {
	return Message{
		ID:         m.EventID,
		Topic:      m.Topic,
		Key:        m.Key,
		Payload:    []byte(m.Payload),
		OccurredAt: m.CreatedAt,
	}
}

// OutboxPublisher 以 outbox 模式发布事件
type OutboxPublisher struct {
	db  *gorm.DB
	now func() time.Time
}

// NewOutboxPublisher 创建 OutboxPublisher
func NewOutboxPublisher(gormDB *gorm.DB) *OutboxPublisher {
	return &OutboxPublisher{db: gormDB, now: time.Now}
}

// Publish 写入 outbox；若 context 携带事务则使用该事务
func (p *OutboxPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}

	now := p.now()
	msg := OutboxMessage{
		EventID:   uuid.NewString(),
		Topic:     topic,
		Key:       key,
		Payload:   string(payload),
		Status:    OutboxPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Conn(ctx, p.db).Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to save outbox message: %w", err)
	}
	return nil
}

// Relay 将 outbox 中的待投递消息转发给 Handler（Kafka 或进程内分发器），至少一次语义
type Relay struct {
	db          *gorm.DB
	sink        Handler
	batchSize   int
	maxAttempts int
	metrics     *metrics.Metrics
}

// NewRelay 创建 Relay
func NewRelay(gormDB *gorm.DB, sink Handler, batchSize, maxAttempts int, m *metrics.Metrics) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Relay{db: gormDB, sink: sink, batchSize: batchSize, maxAttempts: maxAttempts, metrics: m}
}

// ProcessBatch 处理一批待投递消息，返回成功投递数量
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	var pending []OutboxMessage
	if err := r.db.WithContext(ctx).
		Where("status = ?", OutboxPending).
		Order("id asc").
		Limit(r.batchSize).
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("failed to load outbox messages: %w", err)
	}

	delivered := 0
	for _, msg := range pending {
		if ctx.Err() != nil {
			break
		}
		updates := map[string]any{"updated_at": time.Now()}
		if err := r.sink.Handle(ctx, msg.toMessage()); err != nil {
			attempts := msg.Attempts + 1
			updates["attempts"] = attempts
			updates["last_error"] = err.Error()
			if attempts >= r.maxAttempts {
				updates["status"] = OutboxFailed
				logger.Error(ctx, "outbox message moved to failed", "event_id", msg.EventID, "topic", msg.Topic, "error", err)
			} else {
				logger.Warn(ctx, "outbox delivery failed", "event_id", msg.EventID, "topic", msg.Topic, "attempts", attempts, "error", err)
			}
			r.metrics.Relayed(msg.Topic, "error")
		} else {
			updates["status"] = OutboxSent
			delivered++
			r.metrics.Relayed(msg.Topic, "ok")
		}
		if err := r.db.WithContext(ctx).Model(&OutboxMessage{}).Where("id = ?", msg.ID).Updates(updates).Error; err != nil {
			return delivered, fmt.Errorf("failed to update outbox message: %w", err)
		}
	}

	var backlog int64
	if err := r.db.WithContext(ctx).Model(&OutboxMessage{}).Where("status = ?", OutboxPending).Count(&backlog).Error; err == nil {
		r.metrics.SetOutboxPending(backlog)
	}
	return delivered, nil
}

// Run 按间隔轮询直到 ctx 结束
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil {
				logger.Error(ctx, "outbox relay batch failed", "error", err)
			}
		}
	}
}

// Cleanup 清理 before 之前已投递的消息
func (r *Relay) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("status = ? AND updated_at < ?", OutboxSent, before).Delete(&OutboxMessage{})
	return res.RowsAffected, res.Error
}
