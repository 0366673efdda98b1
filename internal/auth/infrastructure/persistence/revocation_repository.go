// Package persistence 令牌注销记录，未启用 Redis 时落在进程内缓存
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/storefront/internal/auth/domain"
	"github.com/wyfcoding/storefront/pkg/cache"
)

const revokedPrefix = "auth:revoked:"

type revocationRepository struct {
	cache cache.Cache
}

// NewRevocationRepository 创建注销记录仓储
func NewRevocationRepository(c cache.Cache) domain.RevocationStore {
	return &revocationRepository{cache: c}
}

func (r *revocationRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.cache.SetJSON(ctx, revokedPrefix+jti, time.Now().Unix(), ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *revocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ok, err := r.cache.Exists(ctx, revokedPrefix+jti)
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return ok, nil
}
