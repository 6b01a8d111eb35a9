package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 缓存未命中，与传输层错误区分开。
var ErrMiss = errors.New("cache: miss")

// Cache 键值缓存的最小契约，所有实现必须并发安全。
// 值统一为字符串，序列化由调用方负责。
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}
