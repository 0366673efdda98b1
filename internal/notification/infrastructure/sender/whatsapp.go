package sender

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/wyfcoding/storefront/internal/notification/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// DefaultWhatsAppBaseURL Twilio API 地址
const DefaultWhatsAppBaseURL = "https://api.twilio.com"

// WhatsAppConfig Twilio 兼容接口配置
type WhatsAppConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	// 无 + 前缀号码补全的国家码，默认 +91
	DefaultCountryCode string
	Timeout            time.Duration
}

// WhatsAppSender 通过 Twilio 兼容 REST 接口发送 WhatsApp 消息
type WhatsAppSender struct {
	cfg  WhatsAppConfig
	http *resty.Client
}

// NewWhatsAppSender 创建 WhatsApp 发送器
func NewWhatsAppSender(cfg WhatsAppConfig) *WhatsAppSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultWhatsAppBaseURL
	}
	if cfg.DefaultCountryCode == "" {
		cfg.DefaultCountryCode = "+91"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetTimeout(cfg.Timeout)
	return &WhatsAppSender{cfg: cfg, http: client}
}

// Channel 实现 domain.Sender
func (s *WhatsAppSender) Channel() domain.Channel { return domain.ChannelWhatsApp }

// Send 实现 domain.Sender；仅 201 视为成功
func (s *WhatsAppSender) Send(ctx context.Context, msg domain.Message) error {
	if s.cfg.AccountSID == "" || s.cfg.AuthToken == "" || s.cfg.From == "" {
		return domain.ErrChannelDisabled.WithMessage("WhatsApp credentials not configured")
	}
	to := NormalizePhone(msg.Target, s.cfg.DefaultCountryCode)

	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From": "whatsapp:" + s.cfg.From,
			"To":   "whatsapp:" + to,
			"Body": msg.Text,
		}).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", s.cfg.AccountSID))
	if err != nil {
		return domain.ErrSendFailed.Wrap(err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return domain.ErrSendFailed.Wrap(fmt.Errorf("status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())))
	}
	logger.Debug(ctx, "whatsapp message sent", "to", to)
	return nil
}

// NormalizePhone 补全国家码；以 0 开头的本地号码先去掉 0
func NormalizePhone(phone, countryCode string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return countryCode + strings.TrimPrefix(phone, "0")
}
