// Package client 用户资料页访问订单的适配器
package client

import (
	"context"

	orderdomain "github.com/wyfcoding/storefront/internal/order/domain"
	"github.com/wyfcoding/storefront/internal/user/application"
)

// OrderReader 订单查询
type OrderReader interface {
	RecentForUser(ctx context.Context, userID uint, n int) ([]*orderdomain.Order, error)
}

// OrderClient 将订单查询适配为 application.OrderHistory
type OrderClient struct {
	orders OrderReader
}

// NewOrderClient 创建适配器
func NewOrderClient(orders OrderReader) *OrderClient {
	return &OrderClient{orders: orders}
}

// Recent 实现 application.OrderHistory
func (c *OrderClient) Recent(ctx context.Context, userID uint, n int) ([]application.OrderSummary, error) {
	orders, err := c.orders.RecentForUser(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	out := make([]application.OrderSummary, 0, len(orders))
	for _, o := range orders {
		out = append(out, application.OrderSummary{
			ID:            o.ID,
			OrderNumber:   o.OrderNumber,
			Status:        string(o.Status),
			StatusLabel:   o.Status.Label(),
			PaymentMethod: string(o.PaymentMethod),
			TotalAmount:   o.TotalAmount,
			CreatedAt:     o.CreatedAt,
		})
	}
	return out, nil
}
