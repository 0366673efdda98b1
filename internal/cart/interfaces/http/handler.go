// Package http 购物车 HTTP 接口
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/internal/cart/application"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"github.com/wyfcoding/storefront/pkg/response"
)

// CartHandler HTTP 处理器
type CartHandler struct {
	app *application.CartApplicationService
}

// NewCartHandler 创建 HTTP 处理器实例
func NewCartHandler(app *application.CartApplicationService) *CartHandler {
	return &CartHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/cart", middleware.RequireAuth(), h.ViewCart)
	router.POST("/api/add-to-cart", h.AddToCart)
	router.POST("/api/update-cart", middleware.RequireAuth(), h.UpdateCart)
	router.POST("/api/remove-from-cart", middleware.RequireAuth(), h.RemoveFromCart)
}

// ViewCart 查看购物车
func (h *CartHandler) ViewCart(c *gin.Context) {
	view, err := h.app.View(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"cart_items": view.Lines,
		"cart_count": view.ItemCount,
		"cart_total": view.Total.InexactFloat64(),
	})
}

// AddToCartRequest 加入购物车请求
type AddToCartRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

// AddToCart 加入购物车；未登录时提示登录
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == 0 {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "Please login to add items to cart")
		return
	}
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sum, err := h.app.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity, req.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"message":    "Product added to cart",
		"cart_count": sum.CartCount,
		"cart_total": sum.CartTotal.InexactFloat64(),
	})
}

// UpdateCartRequest 修改数量请求
type UpdateCartRequest struct {
	CartItemID uint `json:"cart_item_id" binding:"required"`
	// 缺省为 1
	Quantity *int `json:"quantity"`
}

// UpdateCart 修改数量，数量<=0 删除该行
func (h *CartHandler) UpdateCart(c *gin.Context) {
	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	res, err := h.app.UpdateQuantity(c.Request.Context(), middleware.CurrentUserID(c), req.CartItemID, qty)
	if err != nil {
		response.Error(c, err)
		return
	}
	body := gin.H{
		"cart_count":   res.CartCount,
		"cart_total":   res.CartTotal.InexactFloat64(),
		"item_removed": res.ItemRemoved,
	}
	if !res.ItemRemoved {
		body["item_total"] = res.ItemTotal.InexactFloat64()
		body["available_stock"] = res.AvailableStock
	}
	response.Success(c, body)
}

// RemoveFromCartRequest 删除购物车行请求
type RemoveFromCartRequest struct {
	CartItemID uint `json:"cart_item_id" binding:"required"`
}

// RemoveFromCart 删除购物车行
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	var req RemoveFromCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sum, err := h.app.RemoveItem(c.Request.Context(), middleware.CurrentUserID(c), req.CartItemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"cart_count": sum.CartCount,
		"cart_total": sum.CartTotal.InexactFloat64(),
	})
}
