package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	cartapp "github.com/wyfcoding/storefront/internal/cart/application"
	cartclient "github.com/wyfcoding/storefront/internal/cart/infrastructure/client"
	cartpersistence "github.com/wyfcoding/storefront/internal/cart/infrastructure/persistence"
	catalogapp "github.com/wyfcoding/storefront/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/storefront/internal/catalog/domain"
	catalogpersistence "github.com/wyfcoding/storefront/internal/catalog/infrastructure/persistence"
	"github.com/wyfcoding/storefront/internal/order/application"
	"github.com/wyfcoding/storefront/internal/order/domain"
	orderclient "github.com/wyfcoding/storefront/internal/order/infrastructure/client"
	"github.com/wyfcoding/storefront/internal/order/infrastructure/persistence"
	paymentdomain "github.com/wyfcoding/storefront/internal/payment/domain"
	"github.com/wyfcoding/storefront/pkg/cache"
	"github.com/wyfcoding/storefront/pkg/db"
	"github.com/wyfcoding/storefront/pkg/db/dbtest"
	"github.com/wyfcoding/storefront/pkg/mq"
)

type fakeGateway struct {
	createErr error
	requests  []paymentdomain.CreateOrderRequest
}

func (g *fakeGateway) Enabled() bool    { return true }
func (g *fakeGateway) KeyID() string    { return "rzp_test_key" }
func (g *fakeGateway) Currency() string { return "INR" }

func (g *fakeGateway) CreateOrder(_ context.Context, req paymentdomain.CreateOrderRequest) (*paymentdomain.GatewayOrder, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.requests = append(g.requests, req)
	return &paymentdomain.GatewayOrder{
		ID:          fmt.Sprintf("order_gw_%d", len(g.requests)),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		Status:      "created",
	}, nil
}

func (g *fakeGateway) VerifySignature(gatewayOrderID, paymentID, signature string) error {
	if signature != validSignature(gatewayOrderID, paymentID) {
		return paymentdomain.ErrSignatureMismatch
	}
	return nil
}

func validSignature(gatewayOrderID, paymentID string) string {
	return "sig-" + gatewayOrderID + "-" + paymentID
}

var shipping = domain.Shipping{
	Name:    "Asha Rao",
	Phone:   "9876543210",
	Address: "12 MG Road",
	City:    "Bengaluru",
	State:   "Karnataka",
	Pincode: "560001",
}

type OrderSuite struct {
	suite.Suite
	ctx      context.Context
	db       *db.DB
	gateway  *fakeGateway
	catalog  *catalogapp.CatalogCommandService
	products catalogdomain.ProductRepository
	stock    *catalogapp.InventoryService
	carts    *cartapp.CartApplicationService
	cmd      *application.OrderCommandService
	query    *application.OrderQueryService
	category *catalogdomain.Category
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderSuite))
}

func (s *OrderSuite) SetupTest() {
	s.ctx = context.Background()
	models := append(catalogpersistence.Models(), cartpersistence.Models()...)
	models = append(models, persistence.Models()...)
	s.db = dbtest.Open(s.T(), append(models, &mq.OutboxMessage{})...)

	local, err := cache.NewLocal(s.ctx, time.Minute)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = local.Close() })

	publisher := mq.NewOutboxPublisher(s.db.DB)
	s.products = catalogpersistence.NewProductRepository(s.db.DB)
	categories := catalogpersistence.NewCategoryRepository(s.db.DB)
	hero := catalogpersistence.NewHeroRepository(s.db.DB)
	restock := catalogapp.NewRestockHandler(publisher)
	s.catalog = catalogapp.NewCatalogCommandService(s.db, s.products, categories, hero, restock, local)
	catalogQuery := catalogapp.NewCatalogQueryService(s.products, categories, hero, local, time.Minute)
	s.stock = catalogapp.NewInventoryService(s.products, restock, local, nil)

	s.carts = cartapp.NewCartApplicationService(
		cartpersistence.NewCartRepository(s.db.DB),
		cartclient.NewCatalogClient(catalogQuery),
	)

	s.gateway = &fakeGateway{}
	repo := persistence.NewOrderRepository(s.db.DB)
	s.cmd = application.NewOrderCommandService(
		s.db, repo,
		orderclient.NewCartClient(s.carts),
		orderclient.NewInventoryClient(s.stock),
		s.gateway, publisher, nil,
	)
	s.query = application.NewOrderQueryService(repo, nil)

	s.category, err = s.catalog.CreateCategory(s.ctx, catalogapp.CategoryCommand{Name: "Accessories"})
	s.Require().NoError(err)
}

func (s *OrderSuite) product(name string, price int64, stock int) *catalogdomain.Product {
	p, err := s.catalog.CreateProduct(s.ctx, catalogapp.ProductCommand{
		CategoryID: s.category.ID,
		Name:       name,
		Price:      decimal.NewFromInt(price),
		Stock:      stock,
	})
	s.Require().NoError(err)
	return p
}

func (s *OrderSuite) addToCart(userID, productID uint, qty int, size string) {
	_, err := s.carts.AddItem(s.ctx, userID, productID, qty, size)
	s.Require().NoError(err)
}

func (s *OrderSuite) stockOf(productID uint) int {
	p, err := s.products.Get(s.ctx, productID)
	s.Require().NoError(err)
	return p.Stock
}

func (s *OrderSuite) events(topic string) []mq.OutboxMessage {
	var msgs []mq.OutboxMessage
	s.Require().NoError(s.db.DB.Where("topic = ?", topic).Order("id asc").Find(&msgs).Error)
	return msgs
}

func (s *OrderSuite) lastStatusChange() domain.OrderStatusChangedEvent {
	msgs := s.events(domain.TopicOrderStatusChanged)
	s.Require().NotEmpty(msgs)
	var evt domain.OrderStatusChangedEvent
	s.Require().NoError(json.Unmarshal([]byte(msgs[len(msgs)-1].Payload), &evt))
	return evt
}

func (s *OrderSuite) placeOnline(userID uint) *application.PlaceOrderResult {
	res, err := s.cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{
		UserID: userID, Shipping: shipping, PaymentMethod: "online",
	})
	s.Require().NoError(err)
	return res
}

func (s *OrderSuite) TestPlaceCODOrder() {
	belt := s.product("Leather Belt", 500, 5)
	s.addToCart(1, belt.ID, 2, "")

	res, err := s.cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{
		UserID: 1, Shipping: shipping, PaymentMethod: "cod",
	})
	s.Require().NoError(err)
	s.False(res.RedirectToPayment())

	o := res.Order
	s.True(o.TotalAmount.Equal(decimal.NewFromInt(1000)))
	s.Equal(domain.StatusPending, o.Status)
	s.Equal(domain.PaymentCompleted, o.PaymentStatus)
	s.Require().Len(o.Items, 1)
	s.Equal("Leather Belt", o.Items[0].ProductName)
	s.Equal(3, s.stockOf(belt.ID))

	view, err := s.carts.View(s.ctx, 1)
	s.Require().NoError(err)
	s.True(view.IsEmpty())
	s.Len(s.events(domain.TopicOrderCreated), 1)

	stored, err := s.query.GetForUser(s.ctx, 1, o.ID)
	s.Require().NoError(err)
	s.Equal(o.OrderNumber, stored.OrderNumber)
	s.Equal(shipping, stored.Shipping)

	_, err = s.query.GetForUser(s.ctx, 2, o.ID)
	s.True(errors.Is(err, domain.ErrOrderNotFound))
}

func (s *OrderSuite) TestPlaceOrderRejectsEmptyCartAndBadInput() {
	_, err := s.cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{UserID: 1, Shipping: shipping, PaymentMethod: "cod"})
	s.True(errors.Is(err, domain.ErrEmptyCart))

	_, err = s.cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{UserID: 1, Shipping: domain.Shipping{Name: "x"}, PaymentMethod: "cod"})
	s.True(errors.Is(err, domain.ErrIncompleteShipping))

	_, err = s.cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{UserID: 1, Shipping: shipping, PaymentMethod: "card"})
	s.True(errors.Is(err, domain.ErrInvalidPaymentMethod))
}

func (s *OrderSuite) TestPlaceOrderInsufficientStockLeavesCart() {
	belt := s.product("Leather Belt", 500, 3)
	s.addToCart(1, belt.ID, 3, "")

	// 另一位买家先买走 2 件
	s.Require().NoError(s.db.WithTx(s.ctx, func(txCtx context.Context) error {
		return s.stock.Reserve(txCtx, belt.ID, "", 2)
	}))

	_, err := s.cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{UserID: 1, Shipping: shipping, PaymentMethod: "cod"})
	s.True(errors.Is(err, domain.ErrInsufficientStock))
	s.Contains(err.Error(), "Leather Belt")

	s.Equal(1, s.stockOf(belt.ID))
	view, err := s.carts.View(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(3, view.ItemCount)
	s.Empty(s.events(domain.TopicOrderCreated))
}

func (s *OrderSuite) TestPlaceOnlineOrderOpensGatewayPayment() {
	belt := s.product("Leather Belt", 500, 5)
	s.addToCart(1, belt.ID, 2, "")

	res := s.placeOnline(1)
	s.True(res.RedirectToPayment())
	s.Equal("order_gw_1", res.GatewayOrderID)
	s.Equal(int64(100000), res.AmountMinor)
	s.Equal("rzp_test_key", res.KeyID)
	s.Equal(domain.PaymentPending, res.Order.PaymentStatus)

	s.Require().Len(s.gateway.requests, 1)
	s.Equal(res.Order.OrderNumber, s.gateway.requests[0].Receipt)
	s.Equal("INR", s.gateway.requests[0].Currency)

	stored, err := s.query.Get(s.ctx, res.Order.ID)
	s.Require().NoError(err)
	s.Equal("order_gw_1", stored.GatewayOrderID)
	s.Equal(3, s.stockOf(belt.ID))
}

func (s *OrderSuite) TestGatewayFailureCompensates() {
	belt := s.product("Leather Belt", 500, 5)
	s.addToCart(1, belt.ID, 2, "")
	s.gateway.createErr = paymentdomain.ErrGatewayFailure.Wrap(errors.New("connection refused"))

	_, err := s.cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{UserID: 1, Shipping: shipping, PaymentMethod: "online"})
	s.True(errors.Is(err, paymentdomain.ErrGatewayFailure))

	s.Equal(5, s.stockOf(belt.ID))
	orders, err := s.query.ListForUser(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal(domain.StatusCancelled, orders[0].Status)
	s.Equal(domain.PaymentFailed, orders[0].PaymentStatus)
}

// gatewayIDSaveFailure 写入网关订单号时失败，其余写入照常
type gatewayIDSaveFailure struct {
	domain.OrderRepository
}

func (r gatewayIDSaveFailure) Save(ctx context.Context, order *domain.Order) error {
	if order.GatewayOrderID != "" {
		return errors.New("database is locked")
	}
	return r.OrderRepository.Save(ctx, order)
}

func (s *OrderSuite) TestGatewayOrderSaveFailureCompensates() {
	belt := s.product("Leather Belt", 500, 5)
	s.addToCart(1, belt.ID, 2, "")
	cmd := application.NewOrderCommandService(
		s.db, gatewayIDSaveFailure{persistence.NewOrderRepository(s.db.DB)},
		orderclient.NewCartClient(s.carts),
		orderclient.NewInventoryClient(s.stock),
		s.gateway, mq.NewOutboxPublisher(s.db.DB), nil,
	)

	_, err := cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{UserID: 1, Shipping: shipping, PaymentMethod: "online"})
	s.Require().Error(err)
	s.Len(s.gateway.requests, 1)

	s.Equal(5, s.stockOf(belt.ID))
	orders, err := s.query.ListForUser(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal(domain.StatusCancelled, orders[0].Status)
	s.Equal(domain.PaymentFailed, orders[0].PaymentStatus)
	s.Empty(orders[0].GatewayOrderID)
}

func (s *OrderSuite) TestConfirmPayment() {
	belt := s.product("Leather Belt", 500, 5)
	s.addToCart(1, belt.ID, 1, "")
	res := s.placeOnline(1)

	_, err := s.cmd.ConfirmPayment(s.ctx, application.ConfirmPaymentCommand{
		UserID: 1, OrderID: res.Order.ID, GatewayOrderID: "order_gw_other", PaymentID: "pay_1",
		Signature: validSignature("order_gw_other", "pay_1"),
	})
	s.True(errors.Is(err, domain.ErrOrderNotFound))

	o, err := s.cmd.ConfirmPayment(s.ctx, application.ConfirmPaymentCommand{
		UserID: 1, OrderID: res.Order.ID, GatewayOrderID: res.GatewayOrderID, PaymentID: "pay_1",
		Signature: validSignature(res.GatewayOrderID, "pay_1"),
	})
	s.Require().NoError(err)
	s.Equal(domain.StatusProcessing, o.Status)
	s.Equal(domain.PaymentCompleted, o.PaymentStatus)
	s.Equal("pay_1", o.GatewayPaymentID)

	evt := s.lastStatusChange()
	s.Equal(domain.StatusPending, evt.Previous.Status)
	s.Equal(domain.StatusProcessing, evt.Current.Status)
	s.Equal(domain.PaymentCompleted, evt.Current.PaymentStatus)

	_, err = s.cmd.ConfirmPayment(s.ctx, application.ConfirmPaymentCommand{
		UserID: 1, OrderID: res.Order.ID, GatewayOrderID: res.GatewayOrderID, PaymentID: "pay_1",
		Signature: validSignature(res.GatewayOrderID, "pay_1"),
	})
	s.True(errors.Is(err, domain.ErrPaymentNotPending))
}

func (s *OrderSuite) TestSignatureMismatchCancelsOrder() {
	belt := s.product("Leather Belt", 500, 5)
	s.addToCart(1, belt.ID, 2, "")
	res := s.placeOnline(1)
	s.Equal(3, s.stockOf(belt.ID))

	_, err := s.cmd.ConfirmPayment(s.ctx, application.ConfirmPaymentCommand{
		UserID: 1, OrderID: res.Order.ID, GatewayOrderID: res.GatewayOrderID, PaymentID: "pay_1", Signature: "forged",
	})
	s.True(errors.Is(err, paymentdomain.ErrSignatureMismatch))

	stored, err := s.query.Get(s.ctx, res.Order.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, stored.Status)
	s.Equal(domain.PaymentFailed, stored.PaymentStatus)
	s.Equal(5, s.stockOf(belt.ID))
}

func (s *OrderSuite) TestConfirmPaymentRequiresDetails() {
	_, err := s.cmd.ConfirmPayment(s.ctx, application.ConfirmPaymentCommand{UserID: 1, OrderID: 1})
	s.True(errors.Is(err, domain.ErrMissingPayment))

	_, err = s.cmd.FailPayment(s.ctx, application.FailPaymentCommand{UserID: 1})
	s.True(errors.Is(err, domain.ErrMissingOrderDetails))
}

func (s *OrderSuite) TestFailPaymentReleasesStock() {
	belt := s.product("Leather Belt", 500, 2)
	s.addToCart(1, belt.ID, 2, "")
	res := s.placeOnline(1)
	s.Equal(0, s.stockOf(belt.ID))

	o, err := s.cmd.FailPayment(s.ctx, application.FailPaymentCommand{
		UserID: 1, OrderID: res.Order.ID, GatewayOrderID: res.GatewayOrderID,
	})
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, o.Status)
	s.Equal(2, s.stockOf(belt.ID))

	// 售罄后回补触发到货事件
	s.Len(s.events(catalogdomain.TopicProductRestocked), 1)

	_, err = s.cmd.FailPayment(s.ctx, application.FailPaymentCommand{
		UserID: 1, OrderID: res.Order.ID, GatewayOrderID: res.GatewayOrderID,
	})
	s.True(errors.Is(err, domain.ErrPaymentNotPending))
}

func (s *OrderSuite) TestUpdateStatusFollowsTransitionTable() {
	belt := s.product("Leather Belt", 500, 5)
	s.addToCart(1, belt.ID, 1, "")
	res, err := s.cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{UserID: 1, Shipping: shipping, PaymentMethod: "cod"})
	s.Require().NoError(err)
	id := res.Order.ID

	_, err = s.cmd.UpdateStatus(s.ctx, application.UpdateStatusCommand{OrderID: id, Status: "delivered"})
	s.True(errors.Is(err, domain.ErrInvalidTransition))

	_, err = s.cmd.UpdateStatus(s.ctx, application.UpdateStatusCommand{OrderID: id, Status: "lost"})
	s.True(errors.Is(err, domain.ErrInvalidStatus))

	o, err := s.cmd.UpdateStatus(s.ctx, application.UpdateStatusCommand{OrderID: id, Status: "processing"})
	s.Require().NoError(err)
	s.Equal(domain.StatusProcessing, o.Status)

	tracking := "AWB123"
	o, err = s.cmd.UpdateStatus(s.ctx, application.UpdateStatusCommand{OrderID: id, Status: "shipped", TrackingNumber: &tracking})
	s.Require().NoError(err)
	s.Equal("AWB123", o.TrackingNumber)
	evt := s.lastStatusChange()
	s.Equal(domain.StatusProcessing, evt.Previous.Status)
	s.Equal(domain.StatusShipped, evt.Current.Status)
	s.Equal("AWB123", evt.Current.TrackingNumber)

	_, err = s.cmd.UpdateStatus(s.ctx, application.UpdateStatusCommand{OrderID: id, Status: "cancelled"})
	s.True(errors.Is(err, domain.ErrInvalidTransition))
	s.Equal(4, s.stockOf(belt.ID))

	changes := len(s.events(domain.TopicOrderStatusChanged))
	updated := "AWB999"
	o, err = s.cmd.UpdateStatus(s.ctx, application.UpdateStatusCommand{OrderID: id, Status: "shipped", TrackingNumber: &updated})
	s.Require().NoError(err)
	s.Equal("AWB999", o.TrackingNumber)
	s.Len(s.events(domain.TopicOrderStatusChanged), changes)
}

func (s *OrderSuite) TestCancelReleasesStock() {
	belt := s.product("Leather Belt", 500, 5)
	s.addToCart(1, belt.ID, 3, "")
	res, err := s.cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{UserID: 1, Shipping: shipping, PaymentMethod: "cod"})
	s.Require().NoError(err)
	s.Equal(2, s.stockOf(belt.ID))

	o, err := s.cmd.UpdateStatus(s.ctx, application.UpdateStatusCommand{OrderID: res.Order.ID, Status: "cancelled"})
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, o.Status)
	s.Equal(5, s.stockOf(belt.ID))
}

func (s *OrderSuite) TestAdminListFilters() {
	belt := s.product("Leather Belt", 500, 10)
	var numbers []string
	for _, user := range []uint{1, 2} {
		s.addToCart(user, belt.ID, 1, "")
		res, err := s.cmd.PlaceOrder(s.ctx, application.PlaceOrderCommand{UserID: user, Shipping: shipping, PaymentMethod: "cod"})
		s.Require().NoError(err)
		numbers = append(numbers, res.Order.OrderNumber)
	}
	s.addToCart(1, belt.ID, 1, "")
	s.placeOnline(1)

	all, total, err := s.query.AdminList(s.ctx, application.AdminOrderFilter{Limit: 20})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(all, 3)

	_, total, err = s.query.AdminList(s.ctx, application.AdminOrderFilter{PaymentMethod: "cod"})
	s.Require().NoError(err)
	s.Equal(int64(2), total)

	found, total, err := s.query.AdminList(s.ctx, application.AdminOrderFilter{Search: numbers[1]})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(uint(2), found[0].UserID)

	_, _, err = s.query.AdminList(s.ctx, application.AdminOrderFilter{Status: "lost"})
	s.True(errors.Is(err, domain.ErrInvalidStatus))

	recent, err := s.query.RecentForUser(s.ctx, 1, 1)
	s.Require().NoError(err)
	s.Len(recent, 1)
}
