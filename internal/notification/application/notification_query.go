package application

import (
	"context"

	"github.com/wyfcoding/storefront/internal/notification/domain"
)

// NotificationQueryService 通知记录查询
type NotificationQueryService struct {
	records domain.NotificationRepository
}

// NewNotificationQueryService 创建查询服务
func NewNotificationQueryService(records domain.NotificationRepository) *NotificationQueryService {
	return &NotificationQueryService{records: records}
}

// History 用户最近的通知
func (s *NotificationQueryService) History(ctx context.Context, userID uint, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.records.ListByUser(ctx, userID, limit)
}
