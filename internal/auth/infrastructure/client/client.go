// Package client 认证访问用户账户的适配器
package client

import (
	"context"

	"github.com/wyfcoding/storefront/internal/auth/domain"
	userdomain "github.com/wyfcoding/storefront/internal/user/domain"
)

// AccountService 用户账户服务
type AccountService interface {
	Authenticate(ctx context.Context, login, password string) (*userdomain.User, error)
	Get(ctx context.Context, userID uint) (*userdomain.User, error)
}

// UserClient 将用户账户适配为 application.Credentials
type UserClient struct {
	accounts AccountService
}

// NewUserClient 创建适配器
func NewUserClient(accounts AccountService) *UserClient {
	return &UserClient{accounts: accounts}
}

// Authenticate 实现 application.Credentials
func (c *UserClient) Authenticate(ctx context.Context, login, password string) (*domain.Identity, error) {
	u, err := c.accounts.Authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}
	return identity(u), nil
}

// Identity 实现 application.Credentials；停用账户返回 ErrUserDisabled
func (c *UserClient) Identity(ctx context.Context, userID uint) (*domain.Identity, error) {
	u, err := c.accounts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, userdomain.ErrUserDisabled
	}
	return identity(u), nil
}

func identity(u *userdomain.User) *domain.Identity {
	return &domain.Identity{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsStaff:   u.IsStaff,
	}
}
