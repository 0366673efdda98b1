// Package application 通知应用服务：领域事件分发、验证邮件与到货提醒
package application

import (
	"context"
	"errors"
	"time"

	catalogdomain "github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/internal/notification/domain"
	orderdomain "github.com/wyfcoding/storefront/internal/order/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
	"github.com/wyfcoding/storefront/pkg/mq"
)

// DefaultSendTimeout 单次发送超时
const DefaultSendTimeout = 10 * time.Second

// Dispatcher 将领域事件转换为邮件与 WhatsApp 通知；发送失败只记录不返回
type Dispatcher struct {
	senders    map[domain.Channel]domain.Sender
	records    domain.NotificationRepository
	alerts     domain.StockAlertRepository
	recipients domain.RecipientDirectory
	composer   *Composer
	metrics    *metrics.Metrics
	timeout    time.Duration
	now        func() time.Time
}

var _ mq.Handler = (*Dispatcher)(nil)

// NewDispatcher 创建分发器；未提供的渠道视为禁用
func NewDispatcher(
	records domain.NotificationRepository,
	alerts domain.StockAlertRepository,
	recipients domain.RecipientDirectory,
	composer *Composer,
	m *metrics.Metrics,
	senders ...domain.Sender,
) *Dispatcher {
	d := &Dispatcher{
		senders:    make(map[domain.Channel]domain.Sender, len(senders)),
		records:    records,
		alerts:     alerts,
		recipients: recipients,
		composer:   composer,
		metrics:    m,
		timeout:    DefaultSendTimeout,
		now:        time.Now,
	}
	for _, s := range senders {
		d.senders[s.Channel()] = s
	}
	return d
}

// Topics 订阅的事件主题
func (d *Dispatcher) Topics() []string {
	return []string{
		orderdomain.TopicOrderCreated,
		orderdomain.TopicOrderStatusChanged,
		catalogdomain.TopicProductRestocked,
	}
}

// Handle 实现 mq.Handler；只有无法解析的消息返回错误
func (d *Dispatcher) Handle(ctx context.Context, msg mq.Message) error {
	switch msg.Topic {
	case orderdomain.TopicOrderCreated:
		var evt orderdomain.OrderCreatedEvent
		if err := msg.UnmarshalPayload(&evt); err != nil {
			return err
		}
		d.OrderCreated(ctx, evt)
	case orderdomain.TopicOrderStatusChanged:
		var evt orderdomain.OrderStatusChangedEvent
		if err := msg.UnmarshalPayload(&evt); err != nil {
			return err
		}
		d.OrderStatusChanged(ctx, evt)
	case catalogdomain.TopicProductRestocked:
		var evt catalogdomain.ProductRestockedEvent
		if err := msg.UnmarshalPayload(&evt); err != nil {
			return err
		}
		d.ProductRestocked(ctx, evt)
	default:
		logger.Debug(ctx, "ignoring message", "topic", msg.Topic, "id", msg.ID)
	}
	return nil
}

// OrderCreated 下单确认
func (d *Dispatcher) OrderCreated(ctx context.Context, evt orderdomain.OrderCreatedEvent) {
	r, ok := d.recipient(ctx, evt.Order.UserID)
	if !ok {
		return
	}
	env, err := d.composer.OrderConfirmation(*r, evt)
	if err != nil {
		logger.Error(ctx, "failed to compose order confirmation", "order_id", evt.Order.ID, "error", err)
		return
	}
	d.notify(ctx, *r, env)
}

// OrderStatusChanged 状态变更通知；发货时另发带物流单号的发货通知
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, evt orderdomain.OrderStatusChangedEvent) {
	if evt.Previous.Status == evt.Current.Status {
		return
	}
	r, ok := d.recipient(ctx, evt.Current.UserID)
	if !ok {
		return
	}
	env, err := d.composer.OrderStatusUpdate(*r, evt.Previous, evt.Current)
	if err != nil {
		logger.Error(ctx, "failed to compose status update", "order_id", evt.Current.ID, "error", err)
		return
	}
	d.notify(ctx, *r, env)

	if evt.Current.Status != orderdomain.StatusShipped {
		return
	}
	shipped, err := d.composer.OrderShipped(*r, evt.Current)
	if err != nil {
		logger.Error(ctx, "failed to compose shipped message", "order_id", evt.Current.ID, "error", err)
		return
	}
	d.notify(ctx, *r, shipped)
}

// ProductRestocked 通知全部订阅者后删除订阅
func (d *Dispatcher) ProductRestocked(ctx context.Context, evt catalogdomain.ProductRestockedEvent) {
	alerts, err := d.alerts.ListByProduct(ctx, evt.Current.ID)
	if err != nil {
		logger.Error(ctx, "failed to load stock alerts", "product_id", evt.Current.ID, "error", err)
		return
	}
	if len(alerts) == 0 {
		return
	}
	env, err := d.composer.BackInStock(evt.Current)
	if err != nil {
		logger.Error(ctx, "failed to compose back in stock message", "product_id", evt.Current.ID, "error", err)
		return
	}

	ids := make([]uint, 0, len(alerts))
	for _, a := range alerts {
		d.notify(ctx, domain.Recipient{UserID: a.UserID, Email: a.Email, Phone: a.Phone}, env)
		ids = append(ids, a.ID)
	}
	if err := d.alerts.Delete(ctx, ids...); err != nil {
		logger.Error(ctx, "failed to delete stock alerts", "product_id", evt.Current.ID, "error", err)
	}
	logger.Info(ctx, "back in stock alerts sent", "product_id", evt.Current.ID, "subscribers", len(alerts))
}

// SendOTP 注册验证码邮件
func (d *Dispatcher) SendOTP(ctx context.Context, email, firstName, otp string, ttl time.Duration) {
	env, err := d.composer.OTP(firstName, otp, ttl)
	if err != nil {
		logger.Error(ctx, "failed to compose otp email", "error", err)
		return
	}
	d.deliver(ctx, 0, domain.ChannelEmail, email, env)
}

// SendActivation 激活链接邮件
func (d *Dispatcher) SendActivation(ctx context.Context, email, firstName, link string) {
	env, err := d.composer.Activation(firstName, link)
	if err != nil {
		logger.Error(ctx, "failed to compose activation email", "error", err)
		return
	}
	d.deliver(ctx, 0, domain.ChannelEmail, email, env)
}

func (d *Dispatcher) recipient(ctx context.Context, userID uint) (*domain.Recipient, bool) {
	r, err := d.recipients.Recipient(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "notification recipient not found", "user_id", userID, "error", err)
		return nil, false
	}
	return r, true
}

// notify 邮件必发，有手机号时发 WhatsApp
func (d *Dispatcher) notify(ctx context.Context, r domain.Recipient, env Envelope) {
	if r.Email != "" {
		d.deliver(ctx, r.UserID, domain.ChannelEmail, r.Email, env)
	}
	if r.Phone != "" && env.WhatsApp != "" {
		d.deliver(ctx, r.UserID, domain.ChannelWhatsApp, r.Phone, env)
	}
}

// deliver 发送一条消息并记录结果
func (d *Dispatcher) deliver(ctx context.Context, userID uint, channel domain.Channel, target string, env Envelope) {
	msg := domain.Message{
		Channel: channel,
		Kind:    env.Kind,
		UserID:  userID,
		Target:  target,
		Subject: env.Subject,
		Text:    env.Text,
		HTML:    env.HTML,
	}
	if channel == domain.ChannelWhatsApp {
		msg.Subject = ""
		msg.Text = env.WhatsApp
		msg.HTML = ""
	}

	record := &domain.Notification{
		UserID:  userID,
		Channel: channel,
		Kind:    env.Kind,
		Target:  target,
		Subject: msg.Subject,
		Content: msg.Text,
		Status:  domain.StatusPending,
	}
	if err := d.records.Save(ctx, record); err != nil {
		logger.Warn(ctx, "failed to record notification", "kind", env.Kind, "error", err)
	}

	err := d.send(ctx, msg)
	switch {
	case err == nil:
		now := d.now()
		record.Status = domain.StatusSent
		record.SentAt = &now
	case errors.Is(err, domain.ErrChannelDisabled):
		record.Status = domain.StatusSkipped
		record.Error = err.Error()
	default:
		record.Status = domain.StatusFailed
		record.Error = err.Error()
		logger.Error(ctx, "notification send failed", "channel", channel, "kind", env.Kind, "target", target, "error", err)
	}
	d.metrics.Notification(string(channel), string(env.Kind), string(record.Status))

	if err := d.records.Save(ctx, record); err != nil {
		logger.Warn(ctx, "failed to update notification record", "kind", env.Kind, "error", err)
	}
}

func (d *Dispatcher) send(ctx context.Context, msg domain.Message) error {
	sender, ok := d.senders[msg.Channel]
	if !ok {
		return domain.ErrChannelDisabled
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return sender.Send(sendCtx, msg)
}
