// Package domain 包含订单服务的领域模型
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/pkg/errorsx"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// transitions 合法的状态流转
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// ParseStatus 解析订单状态
func ParseStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return status, nil
	}
	return "", ErrInvalidStatus.Withf("Invalid status: %s", s)
}

// CanTransitionTo 是否允许流转到 next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, v := range transitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// Label 展示名称
func (s OrderStatus) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// ParsePaymentMethod 解析支付方式
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.TrimSpace(s)); m {
	case PaymentCOD, PaymentOnline:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

// Label 展示名称
func (m PaymentMethod) Label() string {
	if m == PaymentCOD {
		return "Cash on Delivery"
	}
	return "Online Payment"
}

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Shipping 收货信息
type Shipping struct {
	Name    string `json:"shipping_name"`
	Phone   string `json:"shipping_phone"`
	Address string `json:"shipping_address"`
	City    string `json:"shipping_city"`
	State   string `json:"shipping_state"`
	Pincode string `json:"shipping_pincode"`
}

// Validate 全部字段必填
func (s Shipping) Validate() error {
	for _, v := range []string{s.Name, s.Phone, s.Address, s.City, s.State, s.Pincode} {
		if strings.TrimSpace(v) == "" {
			return ErrIncompleteShipping
		}
	}
	return nil
}

// Order 订单聚合
type Order struct {
	ID               uint            `json:"id"`
	OrderNumber      string          `json:"order_number"`
	UserID           uint            `json:"user_id"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	Status           OrderStatus     `json:"status"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Shipping         Shipping        `json:"shipping"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	GatewaySignature string          `json:"-"`
	TrackingNumber   string          `json:"tracking_number,omitempty"`
	Items            []OrderItem     `json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OrderItem 订单行，价格为下单时快照
type OrderItem struct {
	ID          uint            `json:"id"`
	OrderID     uint            `json:"order_id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Total 行金额
func (i OrderItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrderNumber 生成订单号：ORD + 日期 + 8 位大写十六进制
func NewOrderNumber(now time.Time) string {
	return "ORD" + now.Format("20060102") + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// NewOrder 创建订单；货到付款视为已支付，在线支付待支付
func NewOrder(userID uint, method PaymentMethod, shipping Shipping, items []OrderItem, now time.Time) *Order {
	o := &Order{
		OrderNumber:   NewOrderNumber(now),
		UserID:        userID,
		PaymentMethod: method,
		PaymentStatus: PaymentPending,
		Status:        StatusPending,
		Shipping:      shipping,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if method == PaymentCOD {
		o.PaymentStatus = PaymentCompleted
	}
	o.TotalAmount = o.ItemsTotal()
	return o
}

// ItemsTotal 订单行金额合计
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total())
	}
	return total
}

// AmountMinor 以最小货币单位计的金额
func (o *Order) AmountMinor() int64 {
	return o.TotalAmount.Mul(decimal.NewFromInt(100)).IntPart()
}

// TransitionTo 按状态表流转
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidTransition.Withf("Cannot change order status from %s to %s", o.Status, next)
	}
	o.Status = next
	return nil
}

// MarkPaid 支付成功，进入处理中
func (o *Order) MarkPaid(paymentID, signature string) error {
	if err := o.TransitionTo(StatusProcessing); err != nil {
		return err
	}
	o.GatewayPaymentID = paymentID
	o.GatewaySignature = signature
	o.PaymentStatus = PaymentCompleted
	return nil
}

// MarkPaymentFailed 支付失败，订单取消
func (o *Order) MarkPaymentFailed() error {
	if err := o.TransitionTo(StatusCancelled); err != nil {
		return err
	}
	o.PaymentStatus = PaymentFailed
	return nil
}

// ReleasesStockOn 流转到 next 时是否需要归还库存
func (o *Order) ReleasesStockOn(next OrderStatus) bool {
	return next == StatusCancelled && (o.Status == StatusPending || o.Status == StatusProcessing)
}

// Snapshot 当前状态快照
func (o *Order) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		PaymentMethod:  o.PaymentMethod,
		TotalAmount:    o.TotalAmount,
		TrackingNumber: o.TrackingNumber,
		ShippingName:   o.Shipping.Name,
		ShippingPhone:  o.Shipping.Phone,
	}
}

// OrderSnapshot 订单状态的值拷贝，用于事件
type OrderSnapshot struct {
	ID             uint            `json:"id"`
	OrderNumber    string          `json:"order_number"`
	UserID         uint            `json:"user_id"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
	ShippingName   string          `json:"shipping_name"`
	ShippingPhone  string          `json:"shipping_phone"`
}

// DescribeLine 库存不足提示中的商品描述
func DescribeLine(name, size string) string {
	if size == "" {
		return name
	}
	return fmt.Sprintf("%s (Size %s)", name, size)
}

var (
	ErrOrderNotFound        = errorsx.New(errorsx.KindNotFound, "ORDER_NOT_FOUND", "Order not found")
	ErrEmptyCart            = errorsx.New(errorsx.KindValidation, "EMPTY_CART", "Your cart is empty")
	ErrIncompleteShipping   = errorsx.New(errorsx.KindValidation, "INCOMPLETE_SHIPPING", "Please fill all shipping details")
	ErrInvalidPaymentMethod = errorsx.New(errorsx.KindValidation, "INVALID_PAYMENT_METHOD", "Invalid payment method")
	ErrOnlinePaymentOff     = errorsx.New(errorsx.KindUnavailable, "ONLINE_PAYMENT_OFF", "Online payment is not configured. Please contact support.")
	ErrInsufficientStock    = errorsx.New(errorsx.KindConflict, "ORDER_INSUFFICIENT_STOCK", "Insufficient stock")
	ErrInvalidTransition    = errorsx.New(errorsx.KindConflict, "INVALID_TRANSITION", "Invalid status transition")
	ErrInvalidStatus        = errorsx.New(errorsx.KindValidation, "INVALID_STATUS", "Invalid status")
	ErrMissingPayment       = errorsx.New(errorsx.KindValidation, "MISSING_PAYMENT_DETAILS", "Missing payment details")
	ErrMissingOrderDetails  = errorsx.New(errorsx.KindValidation, "MISSING_ORDER_DETAILS", "Missing order details")
	ErrPaymentNotPending    = errorsx.New(errorsx.KindConflict, "PAYMENT_NOT_PENDING", "Payment is not pending for this order")
)
