package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// 订单事件主题
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

// OrderItemSnapshot 订单行快照
type OrderItemSnapshot struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// OrderCreatedEvent 订单创建事件
type OrderCreatedEvent struct {
	Order      OrderSnapshot       `json:"order"`
	Items      []OrderItemSnapshot `json:"items"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// NewOrderCreatedEvent 由订单构造创建事件
func NewOrderCreatedEvent(o *Order, now time.Time) OrderCreatedEvent {
	items := make([]OrderItemSnapshot, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemSnapshot{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Size:        it.Size,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}
	return OrderCreatedEvent{Order: o.Snapshot(), Items: items, OccurredAt: now}
}

// OrderStatusChangedEvent 订单状态变更事件，携带变更前后快照
type OrderStatusChangedEvent struct {
	Previous   OrderSnapshot `json:"previous"`
	Current    OrderSnapshot `json:"current"`
	OccurredAt time.Time     `json:"occurred_at"`
}
