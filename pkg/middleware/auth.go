package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/pkg/logger"
)

const principalKey = "principal"

// Principal 已认证的调用方
type Principal struct {
	UserID    uint
	Username  string
	Email     string
	FirstName string
	LastName  string
	IsStaff   bool
	TokenID   string
}

// TokenVerifier 校验访问令牌
type TokenVerifier interface {
	VerifyAccess(ctx context.Context, token string) (*Principal, error)
}

// Authenticate 从 Bearer 头或 cookie 解析令牌；无效令牌按匿名处理
func Authenticate(verifier TokenVerifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" && cookieName != "" {
			if v, err := c.Cookie(cookieName); err == nil {
				token = v
			}
		}
		if token != "" {
			p, err := verifier.VerifyAccess(c.Request.Context(), token)
			if err == nil {
				c.Set(principalKey, p)
			} else {
				logger.Debug(c.Request.Context(), "ignoring invalid access token", "error", err)
			}
		}
		c.Next()
	}
}

// RequireAuth 未认证返回 401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPrincipal(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication credentials were not provided",
			})
			return
		}
		c.Next()
	}
}

// RequireStaff 非管理员返回 403
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication credentials were not provided",
			})
			return
		}
		if !p.IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "You do not have permission to perform this action",
			})
			return
		}
		c.Next()
	}
}

// CurrentPrincipal 获取当前调用方
func CurrentPrincipal(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}

// CurrentUserID 获取当前用户 ID，未认证返回 0
func CurrentUserID(c *gin.Context) uint {
	if p, ok := CurrentPrincipal(c); ok {
		return p.UserID
	}
	return 0
}

// BearerToken 解析 "Bearer <token>"
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
