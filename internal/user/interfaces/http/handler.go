// Package http 用户 HTTP 接口：注册、验证码、激活与个人资料
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/internal/user/application"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"github.com/wyfcoding/storefront/pkg/response"
)

// RecentOrders 个人资料页的最近订单数
const RecentOrders = 5

// UserHandler HTTP 处理器
type UserHandler struct {
	registration *application.RegistrationService
	accounts     *application.AccountService
	orders       application.OrderHistory
}

// NewUserHandler 创建 HTTP 处理器实例；orders 可为 nil
func NewUserHandler(registration *application.RegistrationService, accounts *application.AccountService, orders application.OrderHistory) *UserHandler {
	return &UserHandler{registration: registration, accounts: accounts, orders: orders}
}

// RegisterRoutes 注册路由
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/register", h.Register)
	router.POST("/verify-otp", h.VerifyOTP)
	router.POST("/resend-otp", h.ResendOTP)
	router.GET("/activate/:uid/:token", h.Activate)
	router.GET("/profile", middleware.RequireAuth(), h.Profile)
	router.PATCH("/profile", middleware.RequireAuth(), h.UpdateProfile)
}

// RegisterAdminRoutes 注册管理员路由，调用方负责挂载 RequireStaff
func (h *UserHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.PATCH("/users/:id", h.UpdateAccess)
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email" binding:"required"`
	Password1 string `json:"password1" binding:"required"`
	Password2 string `json:"password2" binding:"required"`
}

// Register 创建待验证注册并发送验证码
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Please fill all required fields")
		return
	}
	p, err := h.registration.Register(c.Request.Context(), application.RegisterCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		Password1: req.Password1,
		Password2: req.Password2,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"message":      "OTP sent to your email. Please verify to continue.",
		"email":        p.Email,
		"expires_in":   int(h.registration.OTPTTL().Seconds()),
		"redirect_url": "/verify-otp",
	})
}

// VerifyOTPRequest 验证码校验请求
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyOTP 校验验证码并发送激活链接
func (h *UserHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Email and OTP are required")
		return
	}
	if _, err := h.registration.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"message": "Email verified. Please check your inbox for the activation link.",
	})
}

// ResendOTPRequest 重发验证码请求
type ResendOTPRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResendOTP 重新发送验证码
func (h *UserHandler) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Email is required")
		return
	}
	if err := h.registration.ResendOTP(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "A new OTP has been sent to your email."})
}

// Activate 激活账户
func (h *UserHandler) Activate(c *gin.Context) {
	u, err := h.registration.Activate(c.Request.Context(), c.Param("uid"), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"message":      "Your account has been activated. You can now log in.",
		"user_id":      u.ID,
		"redirect_url": "/login",
	})
}

// Profile 个人资料与最近订单
func (h *UserHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)
	view, err := h.accounts.Profile(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	body := gin.H{"user": view.User, "phone": view.Phone, "recent_orders": []application.OrderSummary{}}
	if h.orders != nil {
		orders, err := h.orders.Recent(ctx, userID, RecentOrders)
		if err != nil {
			logger.Warn(ctx, "failed to load recent orders", "user_id", userID, "error", err)
		} else {
			body["recent_orders"] = orders
		}
	}
	response.Success(c, body)
}

// UpdateProfileRequest 资料修改请求
type UpdateProfileRequest struct {
	Phone string `json:"phone"`
}

// UpdateProfile 修改手机号
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.accounts.UpdatePhone(c.Request.Context(), middleware.CurrentUserID(c), req.Phone); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "Profile updated", "phone": req.Phone})
}

// UpdateAccessRequest 账户权限修改请求，nil 字段保持不变
type UpdateAccessRequest struct {
	IsStaff  *bool `json:"is_staff"`
	IsActive *bool `json:"is_active"`
}

// UpdateAccess 授予或撤销管理员、启用或停用账户；已签发的访问令牌在刷新时按新状态重签
func (h *UserHandler) UpdateAccess(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid id")
		return
	}
	var req UpdateAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := uint(id)
	if userID == middleware.CurrentUserID(c) {
		response.BadRequest(c, "You cannot change your own access")
		return
	}

	ctx := c.Request.Context()
	if req.IsStaff != nil {
		if err := h.accounts.SetStaff(ctx, userID, *req.IsStaff); err != nil {
			response.Error(c, err)
			return
		}
	}
	if req.IsActive != nil {
		if err := h.accounts.SetActive(ctx, userID, *req.IsActive); err != nil {
			response.Error(c, err)
			return
		}
	}
	u, err := h.accounts.Get(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	logger.Info(ctx, "user access updated", "user_id", u.ID, "is_staff", u.IsStaff, "is_active", u.IsActive,
		"by", middleware.CurrentUserID(c))
	response.Success(c, gin.H{"user": u})
}
