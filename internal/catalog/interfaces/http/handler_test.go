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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/storefront/internal/catalog/application"
	"github.com/wyfcoding/storefront/internal/catalog/infrastructure/persistence"
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

type cartCounter map[uint]int

func (c cartCounter) ItemCount(_ context.Context, userID uint) (int, error) {
	return c[userID], nil
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	database := dbtest.Open(t, append(persistence.Models(), &mq.OutboxMessage{})...)
	local, err := cache.NewLocal(context.Background(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	products := persistence.NewProductRepository(database.DB)
	categories := persistence.NewCategoryRepository(database.DB)
	hero := persistence.NewHeroRepository(database.DB)
	restock := application.NewRestockHandler(mq.NewOutboxPublisher(database.DB))
	h := NewCatalogHandler(
		application.NewCatalogCommandService(database, products, categories, hero, restock, local),
		application.NewCatalogQueryService(products, categories, hero, local, time.Minute),
		cartCounter{2: 3},
	)

	r := gin.New()
	r.Use(middleware.Authenticate(staticVerifier{
		"staff":    {UserID: 1, Username: "admin@example.com", IsStaff: true},
		"customer": {UserID: 2, Username: "ravi@example.com"},
	}, "access_token"))
	h.RegisterRoutes(r.Group(""))
	h.RegisterAdminRoutes(r.Group("/admin", middleware.RequireAuth(), middleware.RequireStaff()))
	return r
}

func do(r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
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
	r.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func createCategory(t *testing.T, r *gin.Engine, name string) uint {
	t.Helper()
	w, body := do(r, http.MethodPost, "/admin/categories", "staff", gin.H{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, body)
	return uint(body["category"].(map[string]any)["id"].(float64))
}

func createProduct(t *testing.T, r *gin.Engine, categoryID uint, name string, stock int) map[string]any {
	t.Helper()
	w, body := do(r, http.MethodPost, "/admin/products", "staff", gin.H{
		"category_id": categoryID,
		"name":        name,
		"description": "Breathable summer fabric",
		"price":       "1299.00",
		"stock":       stock,
	})
	require.Equal(t, http.StatusCreated, w.Code, body)
	return body["product"].(map[string]any)
}

func TestAdminRoutesRequireStaff(t *testing.T) {
	r := setupRouter(t)

	w, _ := do(r, http.MethodPost, "/admin/categories", "", gin.H{"name": "Shirts"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := do(r, http.MethodPost, "/admin/categories", "customer", gin.H{"name": "Shirts"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, body["success"])

	w, _ = do(r, http.MethodPost, "/admin/categories", "staff", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBrowseCatalog(t *testing.T) {
	r := setupRouter(t)
	shirts := createCategory(t, r, "Casual Shirts")
	createProduct(t, r, shirts, "Linen Shirt", 5)
	createProduct(t, r, shirts, "Denim Shirt", 0)

	w, body := do(r, http.MethodGet, "/", "customer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["products"], 1, "sold-out products are hidden")
	assert.Equal(t, float64(3), body["cart_count"])
	assert.Equal(t, "Elevate Your Everyday Style", body["hero"].(map[string]any)["title"])

	_, body = do(r, http.MethodGet, "/home", "", nil)
	assert.Equal(t, float64(0), body["cart_count"])

	w, body = do(r, http.MethodGet, "/products?category=casual-shirts&search=LINEN", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body["products"], 1)
	assert.Equal(t, "Linen Shirt", body["products"].([]any)[0].(map[string]any)["name"])
	assert.Equal(t, "LINEN", body["search_query"])

	_, body = do(r, http.MethodGet, "/products?search=fabric", "", nil)
	assert.Len(t, body["products"], 1, "search also matches the description")

	w, body = do(r, http.MethodGet, "/product/linen-shirt", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "linen-shirt", body["product"].(map[string]any)["slug"])

	w, body = do(r, http.MethodGet, "/product/denim-shirt", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", body["message"])
}

func TestManageVariantsAndImages(t *testing.T) {
	r := setupRouter(t)
	shirts := createCategory(t, r, "Formal Shirts")
	product := createProduct(t, r, shirts, "Oxford Shirt", 0)
	id := uint(product["id"].(float64))
	assert.Equal(t, false, product["is_available"])

	w, body := do(r, http.MethodPut, fmt.Sprintf("/admin/products/%d/variants", id), "staff", gin.H{"size": "m", "stock": 3})
	require.Equal(t, http.StatusOK, w.Code, body)
	updated := body["product"].(map[string]any)
	assert.Equal(t, float64(3), updated["stock"])
	assert.Equal(t, true, updated["is_available"])

	w, _ = do(r, http.MethodPut, fmt.Sprintf("/admin/products/%d/variants", id), "staff", gin.H{"size": "XXXL", "stock": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = do(r, http.MethodPost, fmt.Sprintf("/admin/products/%d/images", id), "staff", gin.H{"url": "/media/oxford-back.jpg"})
	require.Equal(t, http.StatusCreated, w.Code, body)

	w, body = do(r, http.MethodGet, "/product/oxford-shirt", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["variants"], 1)
	assert.Len(t, body["gallery_images"], 1)

	w, body = do(r, http.MethodDelete, fmt.Sprintf("/admin/categories/%d", shirts), "staff", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Category still has products", body["message"])

	w, _ = do(r, http.MethodGet, "/admin/products?is_available=true", "staff", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(r, http.MethodGet, "/admin/products?is_available=maybe", "staff", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateHero(t *testing.T) {
	r := setupRouter(t)

	w, body := do(r, http.MethodPut, "/admin/hero", "staff", gin.H{"title": "Monsoon Sale", "primary_button_url": "/products"})
	require.Equal(t, http.StatusOK, w.Code, body)

	_, body = do(r, http.MethodGet, "/", "", nil)
	assert.Equal(t, "Monsoon Sale", body["hero"].(map[string]any)["title"])
}
