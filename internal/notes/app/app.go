// Package app implements application business logic for the notes service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/cache"
	"notekeeper/internal/notes/ports/services"
	"notekeeper/pkg/logger"
)

// DefaultStoreTimeout ограничивает одну операцию с хранилищем.
const DefaultStoreTimeout = 5 * time.Second

// Settings - общие параметры сценариев.
type Settings struct {
	StoreTimeout time.Duration
	Clock        services.Clock
	// LinkCacheTTL - время жизни проекции публичной ссылки в кэше.
	LinkCacheTTL time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.StoreTimeout <= 0 {
		s.StoreTimeout = DefaultStoreTimeout
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.LinkCacheTTL <= 0 {
		s.LinkCacheTTL = time.Minute
	}
	return s
}

func (s Settings) now() time.Time {
	return s.Clock().UTC()
}

// storeContext ограничивает операцию с хранилищем таймаутом.
func (s Settings) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.StoreTimeout)
}

// storeError оставляет ошибки домена как есть, истекший таймаут превращает
// в Unavailable, остальное оборачивает контекстом операции.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *entities.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return entities.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireOwner(note *entities.Note, userID string) error {
	if !note.IsOwner(userID) {
		return entities.ErrNotOwner
	}
	return nil
}

func requireRead(note *entities.Note, userID string) (entities.Permission, error) {
	perm, ok := note.EffectivePermission(userID)
	if !ok {
		return "", entities.ErrNoAccess
	}
	return perm, nil
}

func requireEdit(note *entities.Note, userID string) error {
	perm, err := requireRead(note, userID)
	if err != nil {
		return err
	}
	if !perm.CanEdit() {
		return entities.ErrReadOnlyAccess
	}
	return nil
}

const linkCachePrefix = "notes:link:"

// linkCache хранит проекции публичных ссылок по хешу токена.
// Удаление только освобождает место: Resolve сверяет каждую запись с БД,
// поэтому сбои кэша лишь логируются.
type linkCache struct {
	cache cache.Cache
}

func linkCacheKey(tokenHash string) string {
	return linkCachePrefix + tokenHash
}

func (c linkCache) invalidate(ctx context.Context, tokenHash string) {
	if c.cache == nil || tokenHash == "" {
		return
	}
	if err := c.cache.Delete(ctx, linkCacheKey(tokenHash)); err != nil {
		logger.Log(ctx).Warn(ctx, LogLinkCacheInvalidateFailed, zap.Error(err))
	}
}
