package domain

import (
	"context"
)

// NotificationRepository 通知记录仓储接口
type NotificationRepository interface {
	// Save 保存或更新通知记录
	Save(ctx context.Context, n *Notification) error
	// ListByUser 指定用户最近的通知
	ListByUser(ctx context.Context, userID uint, limit int) ([]*Notification, error)
}

// StockAlertRepository 到货提醒仓储接口
type StockAlertRepository interface {
	// Subscribe 订阅，重复订阅更新联系方式
	Subscribe(ctx context.Context, alert *StockAlert) error
	ListByProduct(ctx context.Context, productID uint) ([]*StockAlert, error)
	Delete(ctx context.Context, ids ...uint) error
}

// Sender 单一渠道的发送接口
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, msg Message) error
}

// RecipientDirectory 按用户 ID 查询联系方式
type RecipientDirectory interface {
	Recipient(ctx context.Context, userID uint) (*Recipient, error)
}
