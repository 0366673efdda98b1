package application

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/internal/notification/domain"
	orderdomain "github.com/wyfcoding/storefront/internal/order/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Site 邮件中使用的站点信息
type Site struct {
	Name    string
	BaseURL string
}

// Envelope 一条通知在各渠道的内容；WhatsApp 为空时不发送 WhatsApp
type Envelope struct {
	Kind     domain.Kind
	Subject  string
	Text     string
	HTML     string
	WhatsApp string
}

var statusMessages = map[orderdomain.OrderStatus]string{
	orderdomain.StatusProcessing: "Your order is being processed",
	orderdomain.StatusShipped:    "Your order has been shipped!",
	orderdomain.StatusDelivered:  "Your order has been delivered!",
	orderdomain.StatusCancelled:  "Your order has been cancelled",
}

var statusEmoji = map[orderdomain.OrderStatus]string{
	orderdomain.StatusProcessing: "⏳",
	orderdomain.StatusShipped:    "🚚",
	orderdomain.StatusDelivered:  "✅",
	orderdomain.StatusCancelled:  "❌",
}

// Composer 渲染各类通知内容
type Composer struct {
	site Site
	tmpl *template.Template
}

// NewComposer 解析内嵌模板
func NewComposer(site Site) (*Composer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	site.BaseURL = strings.TrimRight(site.BaseURL, "/")
	return &Composer{site: site, tmpl: tmpl}, nil
}

type orderData struct {
	Site           Site
	Name           string
	Order          orderdomain.OrderSnapshot
	Items          []orderdomain.OrderItemSnapshot
	PaymentLabel   string
	StatusLabel    string
	OldStatusLabel string
	StatusMessage  string
	TrackingNumber string
	OrderURL       string
}

func (c *Composer) orderData(r domain.Recipient, o orderdomain.OrderSnapshot) orderData {
	return orderData{
		Site:           c.site,
		Name:           r.DisplayName(),
		Order:          o,
		PaymentLabel:   o.PaymentMethod.Label(),
		StatusLabel:    o.Status.Label(),
		TrackingNumber: o.TrackingNumber,
		OrderURL:       c.OrderURL(o.ID),
	}
}

// OrderURL 订单详情链接
func (c *Composer) OrderURL(orderID uint) string {
	return fmt.Sprintf("%s/order/%d/", c.site.BaseURL, orderID)
}

// OrderConfirmation 下单确认
func (c *Composer) OrderConfirmation(r domain.Recipient, evt orderdomain.OrderCreatedEvent) (Envelope, error) {
	o := evt.Order
	data := c.orderData(r, o)
	data.Items = evt.Items
	html, err := c.render("order_confirmation.html", data)
	if err != nil {
		return Envelope{}, err
	}
	text := fmt.Sprintf("Order Confirmed!\n\nOrder #: %s\nTotal: Rs.%s\nPayment: %s\nStatus: %s\n\nThank you for shopping with %s!",
		o.OrderNumber, money(o.TotalAmount), data.PaymentLabel, data.StatusLabel, c.site.Name)
	whatsapp := fmt.Sprintf("🎉 *Order Confirmed!*\n\nOrder #: %s\nTotal: Rs.%s\nPayment: %s\nStatus: %s\n\nThank you for shopping with %s! 🙏",
		o.OrderNumber, money(o.TotalAmount), data.PaymentLabel, data.StatusLabel, c.site.Name)
	return Envelope{
		Kind:     domain.KindOrderConfirmation,
		Subject:  fmt.Sprintf("Order Confirmation - #%s | %s", o.OrderNumber, c.site.Name),
		Text:     text,
		HTML:     html,
		WhatsApp: whatsapp,
	}, nil
}

// OrderStatusUpdate 状态变更
func (c *Composer) OrderStatusUpdate(r domain.Recipient, previous, current orderdomain.OrderSnapshot) (Envelope, error) {
	data := c.orderData(r, current)
	data.OldStatusLabel = previous.Status.Label()
	data.StatusMessage = statusMessage(current.Status)
	html, err := c.render("order_status_update.html", data)
	if err != nil {
		return Envelope{}, err
	}
	emoji, ok := statusEmoji[current.Status]
	if !ok {
		emoji = "📦"
	}
	body := fmt.Sprintf("Order #: %s\nStatus: %s\nTotal: Rs.%s\n\n%s\n\nTrack your order: %s",
		current.OrderNumber, data.StatusLabel, money(current.TotalAmount), data.StatusMessage, data.OrderURL)
	return Envelope{
		Kind:     domain.KindOrderStatus,
		Subject:  fmt.Sprintf("Order #%s Status Update - %s | %s", current.OrderNumber, data.StatusLabel, c.site.Name),
		Text:     "Order Status Update\n\n" + body,
		HTML:     html,
		WhatsApp: emoji + " *Order Status Update*\n\n" + body,
	}, nil
}

// OrderShipped 发货通知，带物流单号
func (c *Composer) OrderShipped(r domain.Recipient, o orderdomain.OrderSnapshot) (Envelope, error) {
	data := c.orderData(r, o)
	html, err := c.render("order_shipped.html", data)
	if err != nil {
		return Envelope{}, err
	}
	tracking := ""
	if o.TrackingNumber != "" {
		tracking = "\nTracking: " + o.TrackingNumber
	}
	body := fmt.Sprintf("Order #: %s\nYour order is on the way!%s\n\nExpected delivery: 3-5 business days\n\nThank you for shopping with %s!",
		o.OrderNumber, tracking, c.site.Name)
	return Envelope{
		Kind:     domain.KindOrderShipped,
		Subject:  fmt.Sprintf("Your Order #%s Has Been Shipped! | %s", o.OrderNumber, c.site.Name),
		Text:     "Order Shipped!\n\n" + body,
		HTML:     html,
		WhatsApp: "🚚 *Order Shipped!*\n\n" + body + " 🙏",
	}, nil
}

// BackInStock 到货提醒
func (c *Composer) BackInStock(p catalogdomain.ProductSnapshot) (Envelope, error) {
	url := fmt.Sprintf("%s/product/%s/", c.site.BaseURL, p.Slug)
	html, err := c.render("product_back_in_stock.html", struct {
		Site        Site
		ProductName string
		Price       decimal.Decimal
		Stock       int
		ProductURL  string
	}{c.site, p.Name, p.Price, p.Stock, url})
	if err != nil {
		return Envelope{}, err
	}
	body := fmt.Sprintf("%s is back in stock!\nPrice: Rs.%s\nStock: %d available\n\nShop now: %s",
		p.Name, money(p.Price), p.Stock, url)
	return Envelope{
		Kind:     domain.KindBackInStock,
		Subject:  fmt.Sprintf("%s is Back in Stock! | %s", p.Name, c.site.Name),
		Text:     "Great News!\n\n" + body,
		HTML:     html,
		WhatsApp: "🎉 *Great News!*\n\n" + body,
	}, nil
}

// OTP 注册验证码邮件
func (c *Composer) OTP(firstName, otp string, ttl time.Duration) (Envelope, error) {
	name := firstName
	if name == "" {
		name = "there"
	}
	expires := ttl.String()
	if ttl >= time.Minute {
		expires = fmt.Sprintf("%d minutes", int(ttl.Minutes()))
	}
	html, err := c.render("otp.html", struct {
		Site      Site
		Name      string
		OTP       string
		ExpiresIn string
	}{c.site, name, otp, expires})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Kind:    domain.KindOTP,
		Subject: fmt.Sprintf("Verify your %s account with OTP", c.site.Name),
		Text:    fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires in %s.", name, otp, expires),
		HTML:    html,
	}, nil
}

// Activation 激活链接邮件
func (c *Composer) Activation(firstName, link string) (Envelope, error) {
	name := firstName
	if name == "" {
		name = "there"
	}
	html, err := c.render("activation.html", struct {
		Site Site
		Name string
		Link string
	}{c.site, name, link})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Kind:    domain.KindActivation,
		Subject: fmt.Sprintf("Activate your %s account", c.site.Name),
		Text:    fmt.Sprintf("Hi %s,\n\nActivate your account: %s", name, link),
		HTML:    html,
	}, nil
}

func (c *Composer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func statusMessage(s orderdomain.OrderStatus) string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return "Your order status has been updated"
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
