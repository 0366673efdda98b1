package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// LocalCache 基于 bigcache 的进程内缓存，未启用 Redis 时使用
type LocalCache struct {
	store      *bigcache.BigCache
	defaultTTL time.Duration
	now        func() time.Time
}

type localEntry struct {
	ExpiresAt time.Time       `json:"e"`
	Data      json.RawMessage `json:"d"`
}

// NewLocal 创建进程内缓存，maxTTL 为条目最长存活时间
func NewLocal(ctx context.Context, maxTTL time.Duration) (*LocalCache, error) {
	cfg := bigcache.DefaultConfig(maxTTL)
	cfg.Verbose = false
	store, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}
	return &LocalCache{store: store, defaultTTL: maxTTL, now: time.Now}, nil
}

// GetJSON 获取并反序列化缓存值，过期条目视为未命中
func (lc *LocalCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	raw, err := lc.store.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var entry localEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	if !lc.now().Before(entry.ExpiresAt) {
		_ = lc.store.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(entry.Data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// SetJSON 序列化并写入缓存
func (lc *LocalCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 || ttl > lc.defaultTTL {
		ttl = lc.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	raw, err := json.Marshal(localEntry{ExpiresAt: lc.now().Add(ttl), Data: data})
	if err != nil {
		return err
	}
	return lc.store.Set(key, raw)
}

// Exists 检查 key 是否存在且未过期
func (lc *LocalCache) Exists(ctx context.Context, key string) (bool, error) {
	var discard json.RawMessage
	return lc.GetJSON(ctx, key, &discard)
}

// Delete 删除缓存
func (lc *LocalCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := lc.store.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Close 关闭缓存
func (lc *LocalCache) Close() error {
	return lc.store.Close()
}
