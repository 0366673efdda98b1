// Package http 订单 HTTP 接口：结账、支付回调、订单查询与后台管理
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	cartapp "github.com/wyfcoding/storefront/internal/cart/application"
	"github.com/wyfcoding/storefront/internal/order/application"
	"github.com/wyfcoding/storefront/internal/order/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"github.com/wyfcoding/storefront/pkg/response"
	"github.com/wyfcoding/storefront/pkg/utils"
)

// CartViewer 结账页读取购物车
type CartViewer interface {
	View(ctx context.Context, userID uint) (*cartapp.CartView, error)
}

// PhoneLookup 结账页预填手机号
type PhoneLookup interface {
	Phone(ctx context.Context, userID uint) (string, error)
}

// OrderHandler HTTP 处理器
type OrderHandler struct {
	cmd    *application.OrderCommandService
	query  *application.OrderQueryService
	carts  CartViewer
	phones PhoneLookup
}

// NewOrderHandler 创建 HTTP 处理器实例；phones 可为 nil
func NewOrderHandler(cmd *application.OrderCommandService, query *application.OrderQueryService, carts CartViewer, phones PhoneLookup) *OrderHandler {
	return &OrderHandler{cmd: cmd, query: query, carts: carts, phones: phones}
}

// RegisterRoutes 注册需登录的路由，调用方负责挂载鉴权
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/checkout", h.Checkout)
	router.POST("/api/place-order", h.PlaceOrder)
	router.GET("/orders", h.ListOrders)
	router.GET("/order/:id", h.OrderDetail)
	router.GET("/order-success/:id", h.OrderSuccess)
	router.POST("/payment/success", h.PaymentSuccess)
	router.POST("/payment/failure", h.PaymentFailure)
}

// RegisterAdminRoutes 注册后台路由
func (h *OrderHandler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	orders := admin.Group("/orders")
	{
		orders.GET("", h.AdminListOrders)
		orders.GET("/:id", h.AdminGetOrder)
		orders.PATCH("/:id/status", h.UpdateStatus)
	}
}

// Checkout 结账页数据
func (h *OrderHandler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)
	view, err := h.carts.View(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if view.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":      false,
			"message":      domain.ErrEmptyCart.Message,
			"redirect_url": "/cart",
		})
		return
	}

	phone := ""
	if h.phones != nil {
		if phone, err = h.phones.Phone(ctx, userID); err != nil {
			logger.Warn(ctx, "failed to load profile phone", "user_id", userID, "error", err)
		}
	}
	response.Success(c, gin.H{
		"cart_items": view.Lines,
		"cart_count": view.ItemCount,
		"cart_total": view.Total.InexactFloat64(),
		"profile":    gin.H{"phone": phone},
	})
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	ShippingName    string `json:"shipping_name"`
	ShippingPhone   string `json:"shipping_phone"`
	ShippingAddress string `json:"shipping_address"`
	ShippingCity    string `json:"shipping_city"`
	ShippingState   string `json:"shipping_state"`
	ShippingPincode string `json:"shipping_pincode"`
	PaymentMethod   string `json:"payment_method"`
}

// PlaceOrder 下单
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.cmd.PlaceOrder(c.Request.Context(), application.PlaceOrderCommand{
		UserID: middleware.CurrentUserID(c),
		Shipping: domain.Shipping{
			Name:    req.ShippingName,
			Phone:   req.ShippingPhone,
			Address: req.ShippingAddress,
			City:    req.ShippingCity,
			State:   req.ShippingState,
			Pincode: req.ShippingPincode,
		},
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if res.RedirectToPayment() {
		response.Success(c, gin.H{
			"message":             "Order created. Please complete the payment.",
			"order_id":            res.Order.ID,
			"razorpay_order_id":   res.GatewayOrderID,
			"amount":              res.AmountMinor,
			"currency":            res.Currency,
			"key_id":              res.KeyID,
			"redirect_to_payment": true,
		})
		return
	}
	response.Success(c, gin.H{
		"message":      "Order placed successfully. You will pay on delivery.",
		"order_id":     res.Order.ID,
		"redirect_url": successURL(res.Order.ID),
	})
}

// ListOrders 我的订单
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.query.ListForUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"orders": orders})
}

// OrderDetail 订单详情
func (h *OrderHandler) OrderDetail(c *gin.Context) {
	h.renderOrder(c)
}

// OrderSuccess 下单成功页
func (h *OrderHandler) OrderSuccess(c *gin.Context) {
	h.renderOrder(c)
}

func (h *OrderHandler) renderOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.query.GetForUser(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"order": order})
}

// PaymentSuccessRequest 支付成功回调请求
type PaymentSuccessRequest struct {
	OrderID           uint   `json:"order_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// PaymentSuccess 支付成功回调，校验签名
func (h *OrderHandler) PaymentSuccess(c *gin.Context) {
	var req PaymentSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.cmd.ConfirmPayment(c.Request.Context(), application.ConfirmPaymentCommand{
		UserID:         middleware.CurrentUserID(c),
		OrderID:        req.OrderID,
		GatewayOrderID: req.RazorpayOrderID,
		PaymentID:      req.RazorpayPaymentID,
		Signature:      req.RazorpaySignature,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"message":      "Payment successful!",
		"redirect_url": successURL(order.ID),
	})
}

// PaymentFailureRequest 支付失败回调请求
type PaymentFailureRequest struct {
	OrderID         uint   `json:"order_id"`
	RazorpayOrderID string `json:"razorpay_order_id"`
}

// PaymentFailure 支付失败回调，取消订单
func (h *OrderHandler) PaymentFailure(c *gin.Context) {
	var req PaymentFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	_, err := h.cmd.FailPayment(c.Request.Context(), application.FailPaymentCommand{
		UserID:         middleware.CurrentUserID(c),
		OrderID:        req.OrderID,
		GatewayOrderID: req.RazorpayOrderID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      false,
		"message":      "Payment failed. Please try again.",
		"redirect_url": "/checkout/",
	})
}

// AdminListOrders 后台订单列表
func (h *OrderHandler) AdminListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	p := utils.NewPagination(page, size)

	orders, total, err := h.query.AdminList(c.Request.Context(), application.AdminOrderFilter{
		Status:        c.Query("status"),
		PaymentMethod: c.Query("payment_method"),
		Search:        c.Query("search"),
		Limit:         p.Limit(),
		Offset:        p.Offset(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	p.SetTotal(total)
	response.Success(c, gin.H{"orders": orders, "pagination": p})
}

// AdminGetOrder 后台订单详情
func (h *OrderHandler) AdminGetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.query.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"order": order})
}

// UpdateStatusRequest 修改订单状态请求
type UpdateStatusRequest struct {
	Status         string  `json:"status" binding:"required"`
	TrackingNumber *string `json:"tracking_number"`
}

// UpdateStatus 修改订单状态
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.cmd.UpdateStatus(c.Request.Context(), application.UpdateStatusCommand{
		OrderID:        id,
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"order": order})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func successURL(orderID uint) string {
	return fmt.Sprintf("/order-success/%d/", orderID)
}
