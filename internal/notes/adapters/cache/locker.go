package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"notekeeper/internal/notes/ports/cache"
)

const (
	ErrorFailedToLock   = "failed to acquire redis lock"
	ErrorFailedToUnlock = "failed to release redis lock"
)

// unlockScript удаляет ключ, только если он все еще принадлежит владельцу.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker реализует cache.Locker через SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
	owner  string
}

// NewRedisLocker создает блокировщик с уникальным идентификатором владельца.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client, owner: uuid.NewString()}
}

var _ cache.Locker = (*RedisLocker)(nil)

// TryLock занимает key на ttl, если он свободен.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", ErrorFailedToLock, err)
	}
	return ok, nil
}

// Unlock освобождает key, если он занят этим владельцем.
func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	if err := unlockScript.Run(ctx, l.client, []string{key}, l.owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", ErrorFailedToUnlock, err)
	}
	return nil
}
