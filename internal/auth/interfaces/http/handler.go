// Package http 认证 HTTP 接口：令牌签发、刷新、校验、网页登录与注销
package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/internal/auth/application"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"github.com/wyfcoding/storefront/pkg/response"
)

// CookieConfig 网页登录的访问令牌 cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler HTTP 处理器
type AuthHandler struct {
	app    *application.AuthService
	tokens *application.TokenService
	cookie CookieConfig
}

// NewAuthHandler 创建 HTTP 处理器实例
func NewAuthHandler(app *application.AuthService, tokens *application.TokenService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "access_token"
	}
	return &AuthHandler{app: app, tokens: tokens, cookie: cookie}
}

// RegisterRoutes 注册路由
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/token", h.ObtainToken)
	router.POST("/api/login", h.ObtainToken)
	router.POST("/api/token/refresh", h.RefreshToken)
	router.POST("/api/token/verify", h.VerifyToken)
	router.GET("/api/user", middleware.RequireAuth(), h.CurrentUser)
	router.POST("/login", h.WebLogin)
	router.POST("/logout", middleware.RequireAuth(), h.Logout)
}

// LoginRequest 登录请求，邮箱或用户名
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

func (r LoginRequest) login() string {
	if strings.TrimSpace(r.Email) != "" {
		return r.Email
	}
	return r.Username
}

// ObtainToken 签发令牌对
func (h *AuthHandler) ObtainToken(c *gin.Context) {
	res, ok := h.login(c)
	if !ok {
		return
	}
	response.Success(c, gin.H{
		"access":  res.Tokens.Access,
		"refresh": res.Tokens.Refresh,
		"user":    res.User,
	})
}

// WebLogin 登录并写入 HttpOnly cookie
func (h *AuthHandler) WebLogin(c *gin.Context) {
	res, ok := h.login(c)
	if !ok {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, res.Tokens.Access, int(h.tokens.AccessTTL().Seconds()), "/", "", h.cookie.Secure, true)
	response.Success(c, gin.H{
		"message":      "Login successful",
		"access":       res.Tokens.Access,
		"refresh":      res.Tokens.Refresh,
		"user":         res.User,
		"redirect_url": "/",
	})
}

func (h *AuthHandler) login(c *gin.Context) (*application.LoginResult, bool) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.login()) == "" {
		response.BadRequest(c, "Email or username and password are required")
		return nil, false
	}
	res, err := h.app.Login(c.Request.Context(), req.login(), req.Password)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return res, true
}

// RefreshRequest 刷新请求
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// RefreshToken 换取新的访问令牌
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh is required")
		return
	}
	access, err := h.app.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"access": access})
}

// VerifyRequest 校验请求
type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyToken 有效返回 200 {}
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token is required")
		return
	}
	if err := h.app.Verify(c.Request.Context(), req.Token); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// CurrentUser 当前登录用户
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	u, err := h.app.CurrentUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"user": u})
}

// LogoutRequest 注销请求，可同时注销刷新令牌
type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

// Logout 注销当前访问令牌并清除 cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)

	access := middleware.BearerToken(c.GetHeader("Authorization"))
	if access == "" {
		access, _ = c.Cookie(h.cookie.Name)
	}
	if err := h.app.Logout(c.Request.Context(), access, req.Refresh); err != nil {
		response.Error(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	response.Success(c, gin.H{"message": "Logged out", "redirect_url": "/"})
}
