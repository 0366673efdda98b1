// Package domain 通知服务的领域模型
package domain

import (
	"time"

	"github.com/wyfcoding/storefront/pkg/errorsx"
)

// Channel 通知渠道
type Channel string

const (
	ChannelEmail    Channel = "email"    // 邮件通知
	ChannelWhatsApp Channel = "whatsapp" // WhatsApp 消息
)

// Kind 通知类型
type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindOrderStatus       Kind = "order_status"
	KindOrderShipped      Kind = "order_shipped"
	KindBackInStock       Kind = "back_in_stock"
	KindOTP               Kind = "otp"
	KindActivation        Kind = "activation"
)

// Status 发送状态
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	// 渠道未启用
	StatusSkipped Status = "skipped"
)

// Notification 通知发送记录，每次尝试一条
type Notification struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// UserID 用户 ID，注册阶段的验证码邮件为 0
	UserID  uint    `gorm:"column:user_id;index" json:"user_id"`
	Channel Channel `gorm:"column:channel;type:varchar(20);not null" json:"channel"`
	Kind    Kind    `gorm:"column:kind;type:varchar(40);index;not null" json:"kind"`
	// Target 邮箱或手机号
	Target    string     `gorm:"column:target;type:varchar(200);not null" json:"target"`
	Subject   string     `gorm:"column:subject;type:varchar(255)" json:"subject"`
	Content   string     `gorm:"column:content;type:text" json:"content"`
	Status    Status     `gorm:"column:status;type:varchar(20);index;not null;default:'pending'" json:"status"`
	Error     string     `gorm:"column:error_message;type:text" json:"error,omitempty"`
	SentAt    *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// StockAlert 到货提醒订阅，通知后删除
type StockAlert struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"column:product_id;not null;uniqueIndex:idx_alert_product_user" json:"product_id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_alert_product_user" json:"user_id"`
	Email     string    `gorm:"column:email;type:varchar(254)" json:"email"`
	Phone     string    `gorm:"column:phone;type:varchar(20)" json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (StockAlert) TableName() string { return "stock_alerts" }

// Message 待发送的消息
type Message struct {
	Channel Channel
	Kind    Kind
	UserID  uint
	Target  string
	Subject string
	// Text 纯文本正文，WhatsApp 仅使用该字段
	Text string
	// HTML 邮件 HTML 正文，可为空
	HTML string
}

// Recipient 订单通知的收件人
type Recipient struct {
	UserID    uint
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// DisplayName 称呼
func (r Recipient) DisplayName() string {
	if r.FirstName != "" {
		return r.FirstName
	}
	return r.Email
}

var (
	ErrChannelDisabled = errorsx.New(errorsx.KindUnavailable, "CHANNEL_DISABLED", "Notification channel is disabled")
	ErrSendFailed      = errorsx.New(errorsx.KindExternal, "NOTIFICATION_SEND_FAILED", "Failed to send notification")
	ErrProductNotFound = errorsx.New(errorsx.KindNotFound, "PRODUCT_NOT_FOUND", "Product not found")
	ErrAlreadyInStock  = errorsx.New(errorsx.KindConflict, "ALREADY_IN_STOCK", "Product is already in stock")
)
