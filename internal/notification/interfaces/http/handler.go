// Package http 通知 HTTP 接口：到货提醒订阅与通知记录
package http

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/internal/notification/application"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"github.com/wyfcoding/storefront/pkg/response"
)

// NotificationHandler HTTP 处理器
type NotificationHandler struct {
	alerts *application.StockAlertService
	query  *application.NotificationQueryService
}

// NewNotificationHandler 创建 HTTP 处理器实例
func NewNotificationHandler(alerts *application.StockAlertService, query *application.NotificationQueryService) *NotificationHandler {
	return &NotificationHandler{alerts: alerts, query: query}
}

// RegisterRoutes 注册需登录的路由
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/products/:id/notify-me", h.NotifyMe)
	router.GET("/api/notifications", h.History)
}

// NotifyMe 订阅到货提醒
func (h *NotificationHandler) NotifyMe(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid id")
		return
	}
	product, err := h.alerts.Subscribe(c.Request.Context(), middleware.CurrentUserID(c), uint(id))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"message": fmt.Sprintf("We will notify you when %s is back in stock.", product.Name),
	})
}

// History 当前用户的通知记录
func (h *NotificationHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	items, err := h.query.History(c.Request.Context(), middleware.CurrentUserID(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"notifications": items})
}
