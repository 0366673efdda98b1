// Package domain 在线支付网关端口
package domain

import (
	"context"

	"github.com/wyfcoding/storefront/pkg/errorsx"
)

var (
	ErrGatewayDisabled    = errorsx.New(errorsx.KindUnavailable, "PAYMENT_DISABLED", "Online payment is not configured. Please contact support.")
	ErrGatewayFailure     = errorsx.New(errorsx.KindExternal, "PAYMENT_GATEWAY_ERROR", "Payment gateway error")
	ErrSignatureMismatch  = errorsx.New(errorsx.KindValidation, "PAYMENT_SIGNATURE_MISMATCH", "Payment verification failed")
	ErrMissingCredentials = errorsx.New(errorsx.KindUnavailable, "PAYMENT_NOT_CONFIGURED", "Payment gateway not configured")
)

// CreateOrderRequest 网关下单请求，金额以最小货币单位计
type CreateOrderRequest struct {
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// GatewayOrder 网关订单
type GatewayOrder struct {
	ID          string `json:"id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// Gateway 支付网关
type Gateway interface {
	// Enabled 是否已配置可用
	Enabled() bool
	// KeyID 前端拉起支付使用的公钥 ID
	KeyID() string
	// Currency 下单币种
	Currency() string
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error)
	// VerifySignature 校验支付回调签名
	VerifySignature(gatewayOrderID, paymentID, signature string) error
}
