package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/wyfcoding/storefront/internal/order/domain"
	"github.com/wyfcoding/storefront/pkg/db"
	"github.com/wyfcoding/storefront/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(gormDB *gorm.DB) domain.OrderRepository {
	return &orderRepository{db: gormDB}
}

func withItems(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id asc") })
}

func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	m := toOrderModel(order)
	conn := db.Conn(ctx, r.db)

	var err error
	if m.ID == 0 {
		err = conn.Create(m).Error
	} else {
		err = conn.Omit(clause.Associations).Save(m).Error
	}
	if err != nil {
		logger.Error(ctx, "order_repository.save failed", "order_number", order.OrderNumber, "error", err)
		return fmt.Errorf("failed to save order: %w", err)
	}

	order.ID = m.ID
	order.CreatedAt = m.CreatedAt
	order.UpdatedAt = m.UpdatedAt
	for i := range order.Items {
		if i < len(m.Items) {
			order.Items[i].ID = m.Items[i].ID
			order.Items[i].OrderID = m.ID
		}
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id uint) (*domain.Order, error) {
	var m OrderModel
	if err := withItems(db.Conn(ctx, r.db)).First(&m, id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return toOrder(&m), nil
}

func (r *orderRepository) GetForUser(ctx context.Context, userID, id uint) (*domain.Order, error) {
	var m OrderModel
	err := withItems(db.Conn(ctx, r.db)).Where("id = ? AND user_id = ?", id, userID).First(&m).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return toOrder(&m), nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]*domain.Order, error) {
	q := withItems(db.Conn(ctx, r.db)).Where("user_id = ?", userID).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []OrderModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return toOrders(models), nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int64, error) {
	q := db.Conn(ctx, r.db).Model(&OrderModel{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PaymentMethod != "" {
		q = q.Where("payment_method = ?", filter.PaymentMethod)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		cond := r.db.Where("LOWER(order_number) LIKE ?", pattern).
			Or("LOWER(shipping_name) LIKE ?", pattern)
		if len(filter.UserIDs) > 0 {
			cond = cond.Or("user_id IN ?", filter.UserIDs)
		}
		q = q.Where(cond)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	q = withItems(q).Order("created_at desc, id desc")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	var models []OrderModel
	if err := q.Find(&models).Error; err != nil {
		logger.Error(ctx, "order_repository.list failed", "error", err)
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return toOrders(models), total, nil
}

func toOrders(models []OrderModel) []*domain.Order {
	out := make([]*domain.Order, 0, len(models))
	for i := range models {
		out = append(out, toOrder(&models[i]))
	}
	return out
}
