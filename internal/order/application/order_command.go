package application

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/wyfcoding/storefront/internal/order/domain"
	paymentdomain "github.com/wyfcoding/storefront/internal/payment/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
	"github.com/wyfcoding/storefront/pkg/mq"
)

// PlaceOrderCommand 下单命令
type PlaceOrderCommand struct {
	UserID        uint
	Shipping      domain.Shipping
	PaymentMethod string
}

// PlaceOrderResult 下单结果；在线支付时携带网关订单信息
type PlaceOrderResult struct {
	Order          *domain.Order
	GatewayOrderID string
	AmountMinor    int64
	Currency       string
	KeyID          string
}

// RedirectToPayment 是否需要前端拉起支付
func (r *PlaceOrderResult) RedirectToPayment() bool {
	return r.GatewayOrderID != ""
}

// ConfirmPaymentCommand 支付成功回调
type ConfirmPaymentCommand struct {
	UserID         uint
	OrderID        uint
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// FailPaymentCommand 支付失败回调
type FailPaymentCommand struct {
	UserID         uint
	OrderID        uint
	GatewayOrderID string
}

// UpdateStatusCommand 后台修改订单状态
type UpdateStatusCommand struct {
	OrderID        uint
	Status         string
	TrackingNumber *string
}

// OrderCommandService 处理订单相关的命令操作
type OrderCommandService struct {
	tx        TxManager
	repo      domain.OrderRepository
	carts     CartPort
	inventory InventoryPort
	gateway   paymentdomain.Gateway
	publisher mq.EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewOrderCommandService 创建新的 OrderCommandService 实例
func NewOrderCommandService(
	tx TxManager,
	repo domain.OrderRepository,
	carts CartPort,
	inventory InventoryPort,
	gateway paymentdomain.Gateway,
	publisher mq.EventPublisher,
	m *metrics.Metrics,
) *OrderCommandService {
	return &OrderCommandService{
		tx:        tx,
		repo:      repo,
		carts:     carts,
		inventory: inventory,
		gateway:   gateway,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// PlaceOrder 下单：同一事务内建单、扣库存、清空购物车并写出创建事件；
// 在线支付在事务提交后向网关下单，失败时补偿
func (s *OrderCommandService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error) {
	if err := cmd.Shipping.Validate(); err != nil {
		return nil, err
	}
	method, err := domain.ParsePaymentMethod(cmd.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if method == domain.PaymentOnline && (s.gateway == nil || !s.gateway.Enabled()) {
		return nil, domain.ErrOnlinePaymentOff
	}

	var order *domain.Order
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		lines, err := s.carts.CheckoutLines(txCtx, cmd.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrEmptyCart
		}

		items := make([]domain.OrderItem, 0, len(lines))
		for _, l := range lines {
			if l.Quantity > l.AvailableStock {
				return domain.ErrInsufficientStock.Withf("Insufficient stock for %s", domain.DescribeLine(l.ProductName, l.Size))
			}
			items = append(items, domain.OrderItem{
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Size:        l.Size,
				Quantity:    l.Quantity,
				Price:       l.UnitPrice,
			})
		}

		order = domain.NewOrder(cmd.UserID, method, trimShipping(cmd.Shipping), items, s.now())
		if err := s.repo.Save(txCtx, order); err != nil {
			return err
		}
		for _, it := range order.Items {
			if err := s.inventory.Reserve(txCtx, it.ProductID, it.Size, it.Quantity); err != nil {
				return err
			}
		}
		if err := s.carts.Clear(txCtx, cmd.UserID); err != nil {
			return err
		}
		return s.publisher.Publish(txCtx, domain.TopicOrderCreated, order.OrderNumber, domain.NewOrderCreatedEvent(order, s.now()))
	})
	if err != nil {
		s.metrics.OrderPlaced(string(method), "rejected")
		return nil, err
	}
	logger.Info(ctx, "order placed", "order_id", order.ID, "order_number", order.OrderNumber, "method", method, "total", order.TotalAmount.String())

	if method == domain.PaymentCOD {
		s.metrics.OrderPlaced(string(method), "ok")
		return &PlaceOrderResult{Order: order}, nil
	}
	return s.openPayment(ctx, order)
}

// openPayment 向网关创建支付单；失败时归还库存并取消订单
func (s *OrderCommandService) openPayment(ctx context.Context, order *domain.Order) (*PlaceOrderResult, error) {
	gwOrder, err := s.gateway.CreateOrder(ctx, paymentdomain.CreateOrderRequest{
		AmountMinor: order.AmountMinor(),
		Currency:    s.gateway.Currency(),
		Receipt:     order.OrderNumber,
		Notes: map[string]string{
			"order_id":     strconv.FormatUint(uint64(order.ID), 10),
			"user_id":      strconv.FormatUint(uint64(order.UserID), 10),
			"order_number": order.OrderNumber,
		},
	})
	if err != nil {
		s.metrics.OrderPlaced(string(order.PaymentMethod), "gateway_error")
		if cerr := s.compensate(ctx, order.ID); cerr != nil {
			logger.Error(ctx, "order compensation failed", "order_id", order.ID, "error", cerr)
		}
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.Get(txCtx, order.ID)
		if err != nil {
			return err
		}
		current.GatewayOrderID = gwOrder.ID
		current.UpdatedAt = s.now()
		if err := s.repo.Save(txCtx, current); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		// 网关订单未落库，支付无法确认：与网关失败一样取消订单并归还库存
		s.metrics.OrderPlaced(string(order.PaymentMethod), "save_error")
		if cerr := s.compensate(ctx, order.ID); cerr != nil {
			logger.Error(ctx, "order compensation failed", "order_id", order.ID, "error", cerr)
		}
		return nil, err
	}
	s.metrics.OrderPlaced(string(order.PaymentMethod), "ok")
	return &PlaceOrderResult{
		Order:          order,
		GatewayOrderID: gwOrder.ID,
		AmountMinor:    order.AmountMinor(),
		Currency:       s.gateway.Currency(),
		KeyID:          s.gateway.KeyID(),
	}, nil
}

// compensate 补偿事务：归还库存，订单取消且支付失败
func (s *OrderCommandService) compensate(ctx context.Context, orderID uint) error {
	return s.tx.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.Get(txCtx, orderID)
		if err != nil {
			return err
		}
		return s.failPayment(txCtx, order)
	})
}

// ConfirmPayment 校验支付签名；通过则进入处理中，失败则取消订单并归还库存
func (s *OrderCommandService) ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (*domain.Order, error) {
	if cmd.OrderID == 0 || cmd.GatewayOrderID == "" || cmd.PaymentID == "" || cmd.Signature == "" {
		return nil, domain.ErrMissingPayment
	}
	if s.gateway == nil {
		return nil, paymentdomain.ErrMissingCredentials
	}

	var (
		order     *domain.Order
		verifyErr error
	)
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.paymentOrder(txCtx, cmd.UserID, cmd.OrderID, cmd.GatewayOrderID)
		if err != nil {
			return err
		}

		verifyErr = s.gateway.VerifySignature(cmd.GatewayOrderID, cmd.PaymentID, cmd.Signature)
		if verifyErr != nil {
			if !isSignatureMismatch(verifyErr) {
				return verifyErr
			}
			return s.failPayment(txCtx, order)
		}

		before := order.Snapshot()
		if err := order.MarkPaid(cmd.PaymentID, cmd.Signature); err != nil {
			return err
		}
		return s.saveTransition(txCtx, order, before)
	})
	if err != nil {
		return nil, err
	}
	if verifyErr != nil {
		s.metrics.PaymentVerified("invalid")
		logger.Warn(ctx, "payment signature mismatch", "order_id", order.ID, "gateway_order_id", cmd.GatewayOrderID)
		return nil, verifyErr
	}
	s.metrics.PaymentVerified("ok")
	logger.Info(ctx, "payment confirmed", "order_id", order.ID, "payment_id", cmd.PaymentID)
	return order, nil
}

// FailPayment 用户放弃或支付失败
func (s *OrderCommandService) FailPayment(ctx context.Context, cmd FailPaymentCommand) (*domain.Order, error) {
	if cmd.OrderID == 0 || cmd.GatewayOrderID == "" {
		return nil, domain.ErrMissingOrderDetails
	}
	var order *domain.Order
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.paymentOrder(txCtx, cmd.UserID, cmd.OrderID, cmd.GatewayOrderID)
		if err != nil {
			return err
		}
		return s.failPayment(txCtx, order)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PaymentVerified("failed")
	logger.Info(ctx, "payment failed", "order_id", order.ID)
	return order, nil
}

// UpdateStatus 后台按状态表修改订单状态；同状态时只更新物流单号
func (s *OrderCommandService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*domain.Order, error) {
	next, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		order, err = s.repo.Get(txCtx, cmd.OrderID)
		if err != nil {
			return err
		}
		before := order.Snapshot()
		if cmd.TrackingNumber != nil {
			order.TrackingNumber = strings.TrimSpace(*cmd.TrackingNumber)
		}

		if next == order.Status {
			order.UpdatedAt = s.now()
			return s.repo.Save(txCtx, order)
		}

		if order.ReleasesStockOn(next) {
			if err := s.releaseStock(txCtx, order); err != nil {
				return err
			}
		}
		if err := order.TransitionTo(next); err != nil {
			return err
		}
		return s.saveTransition(txCtx, order, before)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "order status updated", "order_id", order.ID, "status", order.Status)
	return order, nil
}

// paymentOrder 加载属于该用户且网关订单号匹配的订单
func (s *OrderCommandService) paymentOrder(ctx context.Context, userID, orderID uint, gatewayOrderID string) (*domain.Order, error) {
	order, err := s.repo.GetForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.GatewayOrderID != gatewayOrderID {
		return nil, domain.ErrOrderNotFound
	}
	if order.PaymentStatus != domain.PaymentPending {
		return nil, domain.ErrPaymentNotPending
	}
	return order, nil
}

// failPayment 在调用方事务内归还库存并取消订单
func (s *OrderCommandService) failPayment(ctx context.Context, order *domain.Order) error {
	before := order.Snapshot()
	if order.ReleasesStockOn(domain.StatusCancelled) {
		if err := s.releaseStock(ctx, order); err != nil {
			return err
		}
	}
	if err := order.MarkPaymentFailed(); err != nil {
		return err
	}
	return s.saveTransition(ctx, order, before)
}

func (s *OrderCommandService) releaseStock(ctx context.Context, order *domain.Order) error {
	for _, it := range order.Items {
		if err := s.inventory.Release(ctx, it.ProductID, it.Size, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// saveTransition 保存订单并写出携带前后快照的状态变更事件
func (s *OrderCommandService) saveTransition(ctx context.Context, order *domain.Order, before domain.OrderSnapshot) error {
	order.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, order); err != nil {
		return err
	}
	after := order.Snapshot()
	if before.Status != after.Status {
		s.metrics.OrderTransition(string(before.Status), string(after.Status))
	}
	return s.publisher.Publish(ctx, domain.TopicOrderStatusChanged, order.OrderNumber, domain.OrderStatusChangedEvent{
		Previous:   before,
		Current:    after,
		OccurredAt: s.now(),
	})
}

func isSignatureMismatch(err error) bool {
	return errors.Is(err, paymentdomain.ErrSignatureMismatch)
}

func trimShipping(s domain.Shipping) domain.Shipping {
	return domain.Shipping{
		Name:    strings.TrimSpace(s.Name),
		Phone:   strings.TrimSpace(s.Phone),
		Address: strings.TrimSpace(s.Address),
		City:    strings.TrimSpace(s.City),
		State:   strings.TrimSpace(s.State),
		Pincode: strings.TrimSpace(s.Pincode),
	}
}
