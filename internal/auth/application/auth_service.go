package application

import (
	"context"

	"github.com/wyfcoding/storefront/internal/auth/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// Credentials 账户凭据校验端口
type Credentials interface {
	Authenticate(ctx context.Context, login, password string) (*domain.Identity, error)
	Identity(ctx context.Context, userID uint) (*domain.Identity, error)
}

// LoginResult 登录结果
type LoginResult struct {
	Tokens *domain.TokenPair
	User   *domain.Identity
}

// AuthService 登录、当前用户与注销
type AuthService struct {
	credentials Credentials
	tokens      *TokenService
}

// NewAuthService 创建认证服务
func NewAuthService(credentials Credentials, tokens *TokenService) *AuthService {
	return &AuthService{credentials: credentials, tokens: tokens}
}

// Login 校验凭据并签发令牌
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	id, err := s.credentials.Authenticate(ctx, login, password)
	if err != nil {
		logger.Info(ctx, "login rejected", "login", login, "error", err)
		return nil, err
	}
	pair, err := s.tokens.Issue(*id)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "user logged in", "user_id", id.ID)
	return &LoginResult{Tokens: pair, User: id}, nil
}

// CurrentUser 当前用户最新资料
func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*domain.Identity, error) {
	return s.credentials.Identity(ctx, userID)
}

// Refresh 刷新访问令牌；重新加载账户，降级或停用立即生效
func (s *AuthService) Refresh(ctx context.Context, refresh string) (string, error) {
	access, err := s.tokens.Refresh(ctx, refresh, s.credentials.Identity)
	if err != nil {
		logger.Info(ctx, "token refresh rejected", "error", err)
		return "", err
	}
	return access, nil
}

// Verify 校验任意类型的令牌
func (s *AuthService) Verify(ctx context.Context, token string) error {
	_, err := s.tokens.Verify(ctx, token, "")
	return err
}

// Logout 注销访问令牌与刷新令牌
func (s *AuthService) Logout(ctx context.Context, tokens ...string) error {
	for _, t := range tokens {
		if err := s.tokens.Revoke(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
