// Package cache 提供 Redis 与进程内（bigcache）两种缓存实现，统一 JSON 序列化接口
package cache

import (
	"context"
	"time"
)

// Cache 缓存接口
type Cache interface {
	// GetJSON 读取并反序列化，命中返回 true
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	// SetJSON 序列化写入，ttl<=0 表示使用实现的默认过期时间
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	// Exists 判断 key 是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// Delete 删除 key
	Delete(ctx context.Context, keys ...string) error
}
