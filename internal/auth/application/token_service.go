// Package application 令牌签发、校验、刷新与注销
package application

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/wyfcoding/storefront/internal/auth/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/middleware"
)

const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
)

// TokenConfig 令牌配置
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService HS256 令牌服务
type TokenService struct {
	secret  []byte
	cfg     TokenConfig
	revoked domain.RevocationStore
	now     func() time.Time
}

var _ middleware.TokenVerifier = (*TokenService)(nil)

// NewTokenService 创建令牌服务；revoked 为 nil 时不支持注销
func NewTokenService(cfg TokenConfig, revoked domain.RevocationStore) *TokenService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &TokenService{secret: []byte(cfg.Secret), cfg: cfg, revoked: revoked, now: time.Now}
}

// WithClock 替换时钟
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// AccessTTL 访问令牌有效期
func (s *TokenService) AccessTTL() time.Duration { return s.cfg.AccessTTL }

// Issue 签发一对令牌
func (s *TokenService) Issue(id domain.Identity) (*domain.TokenPair, error) {
	access, err := s.sign(id, domain.TokenAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(id, domain.TokenRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{Access: access, Refresh: refresh}, nil
}

// IdentityLookup 按用户 ID 读取最新身份；停用账户返回错误
type IdentityLookup func(ctx context.Context, userID uint) (*domain.Identity, error)

// Refresh 用刷新令牌换取新的访问令牌，声明取自 lookup 返回的最新身份而非旧令牌
func (s *TokenService) Refresh(ctx context.Context, refresh string, lookup IdentityLookup) (string, error) {
	claims, err := s.Verify(ctx, refresh, domain.TokenRefresh)
	if err != nil {
		return "", err
	}
	id, err := lookup(ctx, claims.Identity().ID)
	if err != nil {
		return "", err
	}
	return s.sign(*id, domain.TokenAccess, s.cfg.AccessTTL)
}

// Verify 校验签名、过期、类型与注销状态；typ 为空时不检查类型
func (s *TokenService) Verify(ctx context.Context, token string, typ domain.TokenType) (*domain.Claims, error) {
	var claims domain.Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, domain.ErrInvalidToken.Wrap(err)
	}
	if typ != "" && claims.Type != typ {
		return nil, domain.ErrWrongTokenType
	}
	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, domain.ErrTokenRevoked
		}
	}
	return &claims, nil
}

// VerifyAccess 实现 middleware.TokenVerifier
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (*middleware.Principal, error) {
	claims, err := s.Verify(ctx, token, domain.TokenAccess)
	if err != nil {
		return nil, err
	}
	id := claims.Identity()
	return &middleware.Principal{
		UserID:    id.ID,
		Username:  id.Username,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		IsStaff:   id.IsStaff,
		TokenID:   claims.ID,
	}, nil
}

// Revoke 注销令牌直至其过期；已失效的令牌忽略
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if s.revoked == nil || token == "" {
		return nil
	}
	claims, err := s.Verify(ctx, token, "")
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrTokenRevoked) {
			return nil
		}
		return err
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresIn(s.now())); err != nil {
		return err
	}
	logger.Info(ctx, "token revoked", "jti", claims.ID, "typ", claims.Type, "user_id", claims.Subject)
	return nil
}

func (s *TokenService) sign(id domain.Identity, typ domain.TokenType, ttl time.Duration) (string, error) {
	now := s.now()
	claims := domain.Claims{
		Type:      typ,
		Username:  id.Username,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		IsStaff:   id.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   strconv.FormatUint(uint64(id.ID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
