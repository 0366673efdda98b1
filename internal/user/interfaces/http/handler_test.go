package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/storefront/internal/user/application"
	"github.com/wyfcoding/storefront/internal/user/infrastructure/persistence"
	"github.com/wyfcoding/storefront/pkg/db/dbtest"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"golang.org/x/crypto/bcrypt"
)

type staticVerifier map[string]*middleware.Principal

func (v staticVerifier) VerifyAccess(_ context.Context, token string) (*middleware.Principal, error) {
	if p, ok := v[token]; ok {
		return p, nil
	}
	return nil, errors.New("invalid token")
}

type linkMailer struct {
	links []string
}

func (m *linkMailer) SendOTP(context.Context, string, string, string, time.Duration) {}

func (m *linkMailer) SendActivation(_ context.Context, _ string, _ string, link string) {
	m.links = append(m.links, link)
}

type staticOrders []application.OrderSummary

func (o staticOrders) Recent(_ context.Context, _ uint, n int) ([]application.OrderSummary, error) {
	if len(o) > n {
		return o[:n], nil
	}
	return o, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *linkMailer) {
	t.Helper()
	r, mailer, _ := newRouter(t)
	return r, mailer
}

func newRouter(t *testing.T) (*gin.Engine, *linkMailer, *application.AccountService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	database := dbtest.Open(t, persistence.Models()...)
	users := persistence.NewUserRepository(database.DB)
	mailer := &linkMailer{}
	registration := application.NewRegistrationService(database, persistence.NewPendingUserRepository(database.DB), users, mailer,
		application.RegistrationConfig{Secret: "secret", BcryptCost: bcrypt.MinCost, BaseURL: "http://shop.test"}).
		WithClock(nil, func() (string, error) { return "424242", nil })
	accounts := application.NewAccountService(database, users, bcrypt.MinCost)
	orders := staticOrders{{ID: 3, OrderNumber: "20260301ABCD1234", Status: "pending", TotalAmount: decimal.NewFromInt(899)}}

	r := gin.New()
	r.Use(middleware.Authenticate(staticVerifier{
		"first": {UserID: 1},
		"staff": {UserID: 99, IsStaff: true},
	}, "access_token"))
	h := NewUserHandler(registration, accounts, orders)
	h.RegisterRoutes(r.Group(""))
	h.RegisterAdminRoutes(r.Group("/admin", middleware.RequireAuth(), middleware.RequireStaff()))
	return r, mailer, accounts
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

func TestRegistrationFlow(t *testing.T) {
	r, mailer := setupRouter(t)
	form := gin.H{
		"first_name": "Asha",
		"last_name":  "Rao",
		"phone":      "9876543210",
		"email":      "asha@example.com",
		"password1":  "pw-123456",
		"password2":  "pw-123456",
	}

	w, body := do(r, http.MethodPost, "/register", "", form)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(300), body["expires_in"])

	w, body = do(r, http.MethodPost, "/register", "", form)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email is already registered or pending verification", body["message"])

	w, body = do(r, http.MethodPost, "/verify-otp", "", gin.H{"email": "asha@example.com", "otp": "000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid OTP", body["message"])

	w, _ = do(r, http.MethodPost, "/verify-otp", "", gin.H{"email": "asha@example.com", "otp": "424242"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mailer.links, 1)

	path := strings.TrimPrefix(mailer.links[0], "http://shop.test")
	w, body = do(r, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["user_id"])

	w, _ = do(r, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = do(r, http.MethodGet, "/profile", "first", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9876543210", body["phone"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "asha@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")
	assert.Len(t, body["recent_orders"], 1)
}

func TestRegisterValidation(t *testing.T) {
	r, _ := setupRouter(t)

	w, body := do(r, http.MethodPost, "/register", "", gin.H{"email": "a@b.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please fill all required fields", body["message"])

	w, body = do(r, http.MethodPost, "/register", "", gin.H{"email": "a@b.com", "password1": "x", "password2": "y"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Passwords do not match", body["message"])

	w, _ = do(r, http.MethodPost, "/resend-otp", "", gin.H{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileRequiresLogin(t *testing.T) {
	r, _ := setupRouter(t)

	w, _ := do(r, http.MethodGet, "/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminUpdatesUserAccess(t *testing.T) {
	r, _, accounts := newRouter(t)
	ctx := context.Background()
	u, err := accounts.EnsureStaff(ctx, "admin@example.com", "pw-123456", "Admin")
	require.NoError(t, err)
	path := fmt.Sprintf("/admin/users/%d", u.ID)

	w, _ := do(r, http.MethodPatch, path, "first", gin.H{"is_staff": false})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := do(r, http.MethodPatch, path, "staff", gin.H{"is_staff": false})
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, false, body["user"].(map[string]any)["is_staff"])
	assert.Equal(t, true, body["user"].(map[string]any)["is_active"])

	w, body = do(r, http.MethodPatch, path, "staff", gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code, body)

	got, err := accounts.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsStaff)
	assert.False(t, got.IsActive)

	_, err = accounts.Authenticate(ctx, "admin@example.com", "pw-123456")
	assert.Error(t, err, "disabled accounts cannot log in")

	w, _ = do(r, http.MethodPatch, "/admin/users/404", "staff", gin.H{"is_active": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(r, http.MethodPatch, "/admin/users/99", "staff", gin.H{"is_staff": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
