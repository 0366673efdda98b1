// Package razorpay Razorpay 兼容的支付网关 REST 客户端，带熔断保护
package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/storefront/internal/payment/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// DefaultBaseURL 官方 API 地址
const DefaultBaseURL = "https://api.razorpay.com/v1"

// Config 客户端配置
type Config struct {
	Enabled   bool
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
	Timeout   time.Duration
	// 连续失败多少次后熔断，默认 5
	MaxFailures uint32
	// 熔断后多久进入半开，默认 30s
	OpenTimeout time.Duration
}

// Client 支付网关客户端
type Client struct {
	cfg     Config
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

var _ domain.Gateway = (*Client)(nil)

// New 创建客户端
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	maxFailures := cfg.MaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{cfg: cfg, http: httpClient, breaker: breaker}
}

// Enabled 启用且配置了密钥
func (c *Client) Enabled() bool {
	return c.cfg.Enabled && c.cfg.KeyID != "" && c.cfg.KeySecret != ""
}

// KeyID 公钥 ID
func (c *Client) KeyID() string { return c.cfg.KeyID }

// Currency 下单币种
func (c *Client) Currency() string { return c.cfg.Currency }

// CreateOrder POST /orders
func (c *Client) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.GatewayOrder, error) {
	if !c.Enabled() {
		return nil, domain.ErrGatewayDisabled
	}
	if req.Currency == "" {
		req.Currency = c.cfg.Currency
	}

	out, err := c.breaker.Execute(func() (any, error) {
		var order domain.GatewayOrder
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&order).
			Post("/orders")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
		}
		if order.ID == "" {
			return nil, errors.New("gateway response has no order id")
		}
		return &order, nil
	})
	if err != nil {
		logger.Error(ctx, "payment gateway create order failed", "receipt", req.Receipt, "error", err)
		return nil, domain.ErrGatewayFailure.Wrap(err)
	}
	order := out.(*domain.GatewayOrder)
	logger.Info(ctx, "payment gateway order created", "gateway_order_id", order.ID, "receipt", req.Receipt, "amount", req.AmountMinor)
	return order, nil
}

// VerifySignature 校验支付回调签名
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) error {
	if c.cfg.KeySecret == "" {
		return domain.ErrMissingCredentials
	}
	if !ValidSignature(c.cfg.KeySecret, gatewayOrderID, paymentID, signature) {
		return domain.ErrSignatureMismatch
	}
	return nil
}
