// Package persistence 订单仓储的 GORM 实现
package persistence

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/order/domain"
)

// OrderModel 订单表映射
type OrderModel struct {
	ID               uint             `gorm:"primaryKey;autoIncrement"`
	CreatedAt        time.Time        `gorm:"column:created_at;index"`
	UpdatedAt        time.Time        `gorm:"column:updated_at"`
	OrderNumber      string           `gorm:"column:order_number;type:varchar(32);uniqueIndex;not null"`
	UserID           uint             `gorm:"column:user_id;index;not null"`
	PaymentMethod    string           `gorm:"column:payment_method;type:varchar(10);not null"`
	PaymentStatus    string           `gorm:"column:payment_status;type:varchar(20);not null"`
	Status           string           `gorm:"column:status;type:varchar(20);index;not null"`
	TotalAmount      decimal.Decimal  `gorm:"column:total_amount;type:decimal(10,2);not null"`
	ShippingName     string           `gorm:"column:shipping_name;type:varchar(200);not null"`
	ShippingPhone    string           `gorm:"column:shipping_phone;type:varchar(20);not null"`
	ShippingAddress  string           `gorm:"column:shipping_address;type:text;not null"`
	ShippingCity     string           `gorm:"column:shipping_city;type:varchar(100);not null"`
	ShippingState    string           `gorm:"column:shipping_state;type:varchar(100);not null"`
	ShippingPincode  string           `gorm:"column:shipping_pincode;type:varchar(10);not null"`
	GatewayOrderID   string           `gorm:"column:gateway_order_id;type:varchar(100);index"`
	GatewayPaymentID string           `gorm:"column:gateway_payment_id;type:varchar(100)"`
	GatewaySignature string           `gorm:"column:gateway_signature;type:varchar(200)"`
	TrackingNumber   string           `gorm:"column:tracking_number;type:varchar(100)"`
	Items            []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName 指定表名
func (OrderModel) TableName() string { return "orders" }

// OrderItemModel 订单行表映射
type OrderItemModel struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	OrderID     uint            `gorm:"column:order_id;index;not null"`
	ProductID   uint            `gorm:"column:product_id;index;not null"`
	ProductName string          `gorm:"column:product_name;type:varchar(200);not null"`
	Size        string          `gorm:"column:size;type:varchar(5)"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null"`
}

// TableName 指定表名
func (OrderItemModel) TableName() string { return "order_items" }

// Models 需要迁移的表
func Models() []any {
	return []any{&OrderModel{}, &OrderItemModel{}}
}

// mapping helpers

func toOrderModel(o *domain.Order) *OrderModel {
	if o == nil {
		return nil
	}
	m := &OrderModel{
		ID:               o.ID,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		PaymentMethod:    string(o.PaymentMethod),
		PaymentStatus:    string(o.PaymentStatus),
		Status:           string(o.Status),
		TotalAmount:      o.TotalAmount,
		ShippingName:     o.Shipping.Name,
		ShippingPhone:    o.Shipping.Phone,
		ShippingAddress:  o.Shipping.Address,
		ShippingCity:     o.Shipping.City,
		ShippingState:    o.Shipping.State,
		ShippingPincode:  o.Shipping.Pincode,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		GatewaySignature: o.GatewaySignature,
		TrackingNumber:   o.TrackingNumber,
	}
	for _, it := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			ID:          it.ID,
			OrderID:     it.OrderID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Size:        it.Size,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}
	return m
}

func toOrder(m *OrderModel) *domain.Order {
	if m == nil {
		return nil
	}
	o := &domain.Order{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		OrderNumber:   m.OrderNumber,
		UserID:        m.UserID,
		PaymentMethod: domain.PaymentMethod(m.PaymentMethod),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		Status:        domain.OrderStatus(m.Status),
		TotalAmount:   m.TotalAmount,
		Shipping: domain.Shipping{
			Name:    m.ShippingName,
			Phone:   m.ShippingPhone,
			Address: m.ShippingAddress,
			City:    m.ShippingCity,
			State:   m.ShippingState,
			Pincode: m.ShippingPincode,
		},
		GatewayOrderID:   m.GatewayOrderID,
		GatewayPaymentID: m.GatewayPaymentID,
		GatewaySignature: m.GatewaySignature,
		TrackingNumber:   m.TrackingNumber,
		Items:            make([]domain.OrderItem, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, domain.OrderItem{
			ID:          it.ID,
			OrderID:     it.OrderID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Size:        it.Size,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}
	return o
}
