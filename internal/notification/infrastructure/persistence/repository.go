// Package persistence 通知记录与到货提醒的 gorm 实现
package persistence

import (
	"context"
	"fmt"

	"github.com/wyfcoding/storefront/internal/notification/domain"
	"github.com/wyfcoding/storefront/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Models 需要迁移的模型
func Models() []any {
	return []any{&domain.Notification{}, &domain.StockAlert{}}
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知记录仓储
func NewNotificationRepository(gormDB *gorm.DB) domain.NotificationRepository {
	return &notificationRepository{db: gormDB}
}

func (r *notificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	if err := db.Conn(ctx, r.db).Save(n).Error; err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]*domain.Notification, error) {
	q := db.Conn(ctx, r.db).Where("user_id = ?", userID).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*domain.Notification
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

type stockAlertRepository struct {
	db *gorm.DB
}

// NewStockAlertRepository 创建到货提醒仓储
func NewStockAlertRepository(gormDB *gorm.DB) domain.StockAlertRepository {
	return &stockAlertRepository{db: gormDB}
}

func (r *stockAlertRepository) Subscribe(ctx context.Context, alert *domain.StockAlert) error {
	err := db.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "phone"}),
	}).Create(alert).Error
	if err != nil {
		return fmt.Errorf("failed to save stock alert: %w", err)
	}
	return nil
}

func (r *stockAlertRepository) ListByProduct(ctx context.Context, productID uint) ([]*domain.StockAlert, error) {
	var out []*domain.StockAlert
	if err := db.Conn(ctx, r.db).Where("product_id = ?", productID).Order("id asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock alerts: %w", err)
	}
	return out, nil
}

func (r *stockAlertRepository) Delete(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := db.Conn(ctx, r.db).Delete(&domain.StockAlert{}, ids).Error; err != nil {
		return fmt.Errorf("failed to delete stock alerts: %w", err)
	}
	return nil
}
