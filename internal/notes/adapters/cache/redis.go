// Package cache содержит адаптеры Redis: кэш проекций и распределенную блокировку.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"notekeeper/internal/notes/ports/cache"
	"notekeeper/pkg/logger"
)

// Сообщения об ошибках кэша.
const (
	ErrorFailedToGet    = "failed to get value from redis"
	ErrorFailedToSet    = "failed to set value in redis"
	ErrorFailedToDelete = "failed to delete value from redis"
)

// RedisCache реализует cache.Cache. Клиентом владеет вызывающий,
// кэш его не закрывает.
type RedisCache struct {
	client     redis.UniversalClient
	defaultTTL time.Duration
}

// NewRedisCache создает кэш поверх уже открытого клиента. defaultTTL
// применяется к записям с нулевым ttl.
func NewRedisCache(client redis.UniversalClient, defaultTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, defaultTTL: defaultTTL}
}

var _ cache.Cache = (*RedisCache)(nil)

// Get возвращает значение ключа или cache.ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", cache.ErrCacheMiss
	case err != nil:
		logger.Log(ctx).With(zap.String("method", "RedisCache.Get")).
			Warn(ctx, ErrorFailedToGet, zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("%s: %w", ErrorFailedToGet, err)
	}
	return value, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Log(ctx).With(zap.String("method", "RedisCache.Set")).
			Warn(ctx, ErrorFailedToSet, zap.String("key", key), zap.Duration("ttl", ttl), zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToSet, err)
	}
	return nil
}

// Delete удаляет ключ. Отсутствующий ключ не ошибка.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		logger.Log(ctx).With(zap.String("method", "RedisCache.Delete")).
			Warn(ctx, ErrorFailedToDelete, zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToDelete, err)
	}
	return nil
}
