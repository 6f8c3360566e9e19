package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/cache"
	"notekeeper/internal/notes/ports/repositories"
	"notekeeper/internal/notes/ports/services"
	"notekeeper/pkg/logger"
)

// IssuedLink - выпущенная публичная ссылка. Токен возвращается только один раз.
type IssuedLink struct {
	Token     string
	ExpiresAt *time.Time
}

// LinkUseCase управляет публичными ссылками на заметки.
type LinkUseCase struct {
	notes    repositories.NoteRepository
	tokens   services.LinkTokens
	cache    cache.Cache
	links    linkCache
	settings Settings
}

// NewLinkUseCase создает новый экземпляр LinkUseCase. projections может быть nil.
func NewLinkUseCase(
	notes repositories.NoteRepository,
	tokens services.LinkTokens,
	projections cache.Cache,
	settings Settings,
) *LinkUseCase {
	return &LinkUseCase{
		notes:    notes,
		tokens:   tokens,
		cache:    projections,
		links:    linkCache{cache: projections},
		settings: settings.withDefaults(),
	}
}

// Issue выпускает новую ссылку на ttlHours часов (nil - бессрочно).
// Прежняя ссылка перестает работать.
func (uc *LinkUseCase) Issue(ctx context.Context, callerID, noteID string, ttlHours *int) (*IssuedLink, error) {
	log := logger.Log(ctx).With(zap.String("method", "LinkUseCase.Issue"))

	var expiresAt *time.Time
	if ttlHours != nil {
		if *ttlHours <= 0 {
			return nil, entities.ErrInvalidLinkTTL
		}
		exp := uc.settings.now().Add(time.Duration(*ttlHours) * time.Hour)
		expiresAt = &exp
	}

	token, hash, err := uc.tokens.Generate()
	if err != nil {
		log.Error(ctx, LogLinkTokenFailed, zap.Error(err))
		return nil, storeError(errCtxIssueLink, err)
	}

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	var previous string
	_, err = uc.notes.Mutate(storeCtx, noteID, func(n *entities.Note) error {
		if err := requireOwner(n, callerID); err != nil {
			return err
		}
		previous = n.SetLink(hash, expiresAt)
		return nil
	})
	if err != nil {
		return nil, storeError(errCtxIssueLink, err)
	}

	uc.links.invalidate(ctx, previous)
	log.Info(ctx, LogLinkIssued, zap.String("noteID", noteID), zap.Bool("replaced", previous != ""))
	return &IssuedLink{Token: token, ExpiresAt: expiresAt}, nil
}

// Resolve возвращает проекцию заметки только для чтения по токену ссылки.
// Неизвестный токен - NotFound, истекший - Gone.
func (uc *LinkUseCase) Resolve(ctx context.Context, token string) (*entities.PublicNote, error) {
	log := logger.Log(ctx).With(zap.String("method", "LinkUseCase.Resolve"))

	if token == "" {
		return nil, entities.ErrLinkNotFound
	}
	hash := uc.tokens.Hash(token)
	now := uc.settings.now()

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	// Закэшированная проекция отдается, только если хеш все еще принадлежит
	// действующей ссылке и заметка не менялась с момента записи.
	if entry, ok := uc.cached(ctx, hash); ok {
		revision, err := uc.notes.LinkRevision(storeCtx, hash)
		if err != nil {
			if errors.Is(err, entities.ErrLinkNotFound) {
				uc.links.invalidate(ctx, hash)
			}
			return nil, storeError(errCtxResolveLink, err)
		}
		if revision == entry.Revision {
			if entry.Note.ExpiresAt != nil && now.After(*entry.Note.ExpiresAt) {
				return nil, entities.ErrLinkExpired
			}
			return &entry.Note, nil
		}
		log.Debug(ctx, LogLinkCacheStale, zap.Int64("cached", entry.Revision), zap.Int64("current", revision))
	}

	note, err := uc.notes.FindByLinkHash(storeCtx, hash)
	if err != nil {
		return nil, storeError(errCtxResolveLink, err)
	}
	if note.Link.Expired(now) {
		log.Debug(ctx, LogLinkExpired, zap.String("noteID", note.ID))
		return nil, entities.ErrLinkExpired
	}

	public := note.Public()
	uc.store(ctx, hash, cachedLink{Revision: note.Revision, Note: public}, now)
	return &public, nil
}

// Revoke отзывает публичную ссылку заметки.
func (uc *LinkUseCase) Revoke(ctx context.Context, callerID, noteID string) error {
	log := logger.Log(ctx).With(zap.String("method", "LinkUseCase.Revoke"))

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	var previous string
	_, err := uc.notes.Mutate(storeCtx, noteID, func(n *entities.Note) error {
		if err := requireOwner(n, callerID); err != nil {
			return err
		}
		previous = n.ClearLink()
		return nil
	})
	if err != nil {
		return storeError(errCtxRevokeLink, err)
	}

	uc.links.invalidate(ctx, previous)
	log.Info(ctx, LogLinkRevoked, zap.String("noteID", noteID))
	return nil
}

// cachedLink - проекция ссылки вместе с revision заметки, из которой она построена.
type cachedLink struct {
	Revision int64               `json:"revision"`
	Note     entities.PublicNote `json:"note"`
}

func (uc *LinkUseCase) cached(ctx context.Context, hash string) (*cachedLink, bool) {
	if uc.cache == nil {
		return nil, false
	}
	raw, err := uc.cache.Get(ctx, linkCacheKey(hash))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Log(ctx).Warn(ctx, LogLinkCacheReadFailed, zap.Error(err))
		}
		return nil, false
	}

	var entry cachedLink
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		logger.Log(ctx).Warn(ctx, LogLinkCacheReadFailed, zap.Error(err))
		return nil, false
	}
	return &entry, true
}

// store кэширует проекцию не дольше срока действия ссылки.
func (uc *LinkUseCase) store(ctx context.Context, hash string, entry cachedLink, now time.Time) {
	if uc.cache == nil {
		return
	}
	ttl := uc.settings.LinkCacheTTL
	if entry.Note.ExpiresAt != nil {
		if left := entry.Note.ExpiresAt.Sub(now); left < ttl {
			ttl = left
		}
	}
	if ttl <= 0 {
		return
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		logger.Log(ctx).Warn(ctx, LogLinkCacheWriteFailed, zap.Error(err))
		return
	}
	if err := uc.cache.Set(ctx, linkCacheKey(hash), string(raw), ttl); err != nil {
		logger.Log(ctx).Warn(ctx, LogLinkCacheWriteFailed, zap.Error(err))
	}
}
