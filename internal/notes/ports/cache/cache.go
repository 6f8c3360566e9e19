// Package cache определяет порты кэша и распределенной блокировки.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss возвращается, если ключ отсутствует.
var ErrCacheMiss = errors.New("cache miss")

// Cache - хранилище строковых значений с временем жизни.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	// Set с ttl <= 0 использует время жизни по умолчанию.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Locker выдает короткоживущие распределенные блокировки.
type Locker interface {
	// TryLock пытается занять key на ttl. false означает, что блокировка занята.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
