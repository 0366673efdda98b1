package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cartapp "github.com/wyfcoding/storefront/internal/cart/application"
	cartclient "github.com/wyfcoding/storefront/internal/cart/infrastructure/client"
	cartpersistence "github.com/wyfcoding/storefront/internal/cart/infrastructure/persistence"
	catalogapp "github.com/wyfcoding/storefront/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/storefront/internal/catalog/domain"
	catalogpersistence "github.com/wyfcoding/storefront/internal/catalog/infrastructure/persistence"
	"github.com/wyfcoding/storefront/internal/order/application"
	orderclient "github.com/wyfcoding/storefront/internal/order/infrastructure/client"
	"github.com/wyfcoding/storefront/internal/order/infrastructure/persistence"
	"github.com/wyfcoding/storefront/internal/payment/infrastructure/razorpay"
	"github.com/wyfcoding/storefront/pkg/cache"
	"github.com/wyfcoding/storefront/pkg/db/dbtest"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"github.com/wyfcoding/storefront/pkg/mq"
)

type staticVerifier map[string]*middleware.Principal

func (v staticVerifier) VerifyAccess(_ context.Context, token string) (*middleware.Principal, error) {
	if p, ok := v[token]; ok {
		return p, nil
	}
	return nil, errors.New("invalid token")
}

type phoneBook map[uint]string

func (p phoneBook) Phone(_ context.Context, userID uint) (string, error) {
	return p[userID], nil
}

type fixture struct {
	router   *gin.Engine
	carts    *cartapp.CartApplicationService
	products catalogdomain.ProductRepository
	product  *catalogdomain.Product
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	models := append(catalogpersistence.Models(), cartpersistence.Models()...)
	models = append(models, persistence.Models()...)
	database := dbtest.Open(t, append(models, &mq.OutboxMessage{})...)
	local, err := cache.NewLocal(ctx, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	publisher := mq.NewOutboxPublisher(database.DB)
	products := catalogpersistence.NewProductRepository(database.DB)
	categories := catalogpersistence.NewCategoryRepository(database.DB)
	hero := catalogpersistence.NewHeroRepository(database.DB)
	restock := catalogapp.NewRestockHandler(publisher)
	catalogCmd := catalogapp.NewCatalogCommandService(database, products, categories, hero, restock, local)
	catalogQuery := catalogapp.NewCatalogQueryService(products, categories, hero, local, time.Minute)
	inventory := catalogapp.NewInventoryService(products, restock, local, nil)

	carts := cartapp.NewCartApplicationService(
		cartpersistence.NewCartRepository(database.DB),
		cartclient.NewCatalogClient(catalogQuery),
	)
	repo := persistence.NewOrderRepository(database.DB)
	cmd := application.NewOrderCommandService(
		database, repo,
		orderclient.NewCartClient(carts),
		orderclient.NewInventoryClient(inventory),
		razorpay.New(razorpay.Config{}),
		publisher, nil,
	)
	h := NewOrderHandler(cmd, application.NewOrderQueryService(repo, nil), carts, phoneBook{2: "9876543210"})

	category, err := catalogCmd.CreateCategory(ctx, catalogapp.CategoryCommand{Name: "Belts"})
	require.NoError(t, err)
	product, err := catalogCmd.CreateProduct(ctx, catalogapp.ProductCommand{
		CategoryID: category.ID,
		Name:       "Leather Belt",
		Price:      decimal.NewFromInt(1499),
		Stock:      5,
	})
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Authenticate(staticVerifier{
		"staff":    {UserID: 1, IsStaff: true},
		"customer": {UserID: 2},
		"other":    {UserID: 3},
	}, "access_token"))
	h.RegisterRoutes(r.Group("", middleware.RequireAuth()))
	h.RegisterAdminRoutes(r.Group("/admin", middleware.RequireAuth(), middleware.RequireStaff()))
	return &fixture{router: r, carts: carts, products: products, product: product}
}

func (f *fixture) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func shippingForm(method string) gin.H {
	return gin.H{
		"shipping_name":    "Asha Rao",
		"shipping_phone":   "9876543210",
		"shipping_address": "12 MG Road",
		"shipping_city":    "Bengaluru",
		"shipping_state":   "Karnataka",
		"shipping_pincode": "560001",
		"payment_method":   method,
	}
}

func TestCheckoutRequiresCart(t *testing.T) {
	f := setup(t)

	w, _ := f.do(http.MethodGet, "/checkout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := f.do(http.MethodGet, "/checkout", "customer", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "/cart", body["redirect_url"])

	_, err := f.carts.AddItem(context.Background(), 2, f.product.ID, 2, "")
	require.NoError(t, err)

	w, body = f.do(http.MethodGet, "/checkout", "customer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["cart_count"])
	assert.Equal(t, 2998.0, body["cart_total"])
	assert.Equal(t, "9876543210", body["profile"].(map[string]any)["phone"])
}

func TestPlaceCashOnDeliveryOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, 2, f.product.ID, 2, "")
	require.NoError(t, err)

	form := shippingForm("cod")
	form["shipping_city"] = " "
	w, body := f.do(http.MethodPost, "/api/place-order", "customer", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please fill all shipping details", body["message"])

	w, _ = f.do(http.MethodPost, "/api/place-order", "customer", shippingForm("bitcoin"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = f.do(http.MethodPost, "/api/place-order", "customer", shippingForm("online"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Online payment is not configured. Please contact support.", body["message"])

	w, body = f.do(http.MethodPost, "/api/place-order", "customer", shippingForm("cod"))
	require.Equal(t, http.StatusOK, w.Code, body)
	orderID := uint(body["order_id"].(float64))
	assert.Equal(t, fmt.Sprintf("/order-success/%d/", orderID), body["redirect_url"])

	p, err := f.products.Get(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	view, err := f.carts.View(ctx, 2)
	require.NoError(t, err)
	assert.True(t, view.IsEmpty())

	w, body = f.do(http.MethodGet, "/orders", "customer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["orders"], 1)

	w, body = f.do(http.MethodGet, fmt.Sprintf("/order-success/%d", orderID), "customer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	order := body["order"].(map[string]any)
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, "completed", order["payment_status"])

	w, _ = f.do(http.MethodGet, fmt.Sprintf("/order/%d", orderID), "other", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminStatusTransitions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, 2, f.product.ID, 1, "")
	require.NoError(t, err)
	_, body := f.do(http.MethodPost, "/api/place-order", "customer", shippingForm("cod"))
	orderID := uint(body["order_id"].(float64))
	path := fmt.Sprintf("/admin/orders/%d/status", orderID)

	w, _ := f.do(http.MethodPatch, path, "customer", gin.H{"status": "processing"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(http.MethodPatch, path, "staff", gin.H{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = f.do(http.MethodPatch, path, "staff", gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Cannot change order status from pending to shipped", body["message"])

	w, body = f.do(http.MethodPatch, path, "staff", gin.H{"status": "processing"})
	require.Equal(t, http.StatusOK, w.Code, body)

	tracking := "AWB123456"
	w, body = f.do(http.MethodPatch, path, "staff", gin.H{"status": "shipped", "tracking_number": tracking})
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, tracking, body["order"].(map[string]any)["tracking_number"])

	w, body = f.do(http.MethodGet, "/admin/orders?status=shipped", "staff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["orders"], 1)

	w, _ = f.do(http.MethodPatch, path, "staff", gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, w.Code)

	p, err := f.products.Get(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock, "stock is not returned once shipped")
}
