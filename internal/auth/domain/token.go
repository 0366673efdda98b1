// Package domain 令牌认证领域模型
package domain

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wyfcoding/storefront/pkg/errorsx"
)

// TokenType 令牌类型
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Identity 令牌中携带的用户信息
type Identity struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   bool   `json:"is_staff"`
}

// Claims JWT 声明
type Claims struct {
	Type      TokenType `json:"typ"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsStaff   bool      `json:"is_staff"`
	jwt.RegisteredClaims
}

// ExpiresIn 剩余有效期
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// Identity 声明中的用户信息
func (c *Claims) Identity() Identity {
	id, _ := strconv.ParseUint(c.Subject, 10, 64)
	return Identity{
		ID:        uint(id),
		Username:  c.Username,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		IsStaff:   c.IsStaff,
	}
}

// TokenPair 访问令牌与刷新令牌
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RevocationStore 已注销令牌的存储，按 jti 记录直至过期
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

var (
	ErrInvalidToken   = errorsx.New(errorsx.KindUnauthorized, "TOKEN_NOT_VALID", "Token is invalid or expired")
	ErrTokenRevoked   = errorsx.New(errorsx.KindUnauthorized, "TOKEN_REVOKED", "Token has been revoked")
	ErrWrongTokenType = errorsx.New(errorsx.KindUnauthorized, "WRONG_TOKEN_TYPE", "Token has wrong type")
)
