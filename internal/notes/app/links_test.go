package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notekeeper/internal/notes/adapters/cache"
	"notekeeper/internal/notes/adapters/services"
	"notekeeper/internal/notes/app"
	"notekeeper/internal/notes/domain/entities"
)

func TestLinkUseCase_IssueResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	note := f.createNote(t, alice, "public")

	link, err := f.links.Issue(ctx, alice.ID, note.ID, nil)
	require.NoError(t, err)
	assert.Len(t, link.Token, 43)
	assert.Nil(t, link.ExpiresAt)

	public, err := f.links.Resolve(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, note.ID, public.ID)
	assert.Equal(t, "public", public.Title)
	assert.Equal(t, entities.PermissionView, public.Permission)

	view, err := f.notes.GetNote(ctx, alice.ID, note.ID)
	require.NoError(t, err)
	assert.NotEqual(t, link.Token, view.Note.Link.TokenHash, "only the hash is stored")
	assert.True(t, f.redis.Exists("notes:link:"+view.Note.Link.TokenHash))
}

func TestLinkUseCase_ReissueInvalidatesOldToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	note := f.createNote(t, alice, "public")

	first, err := f.links.Issue(ctx, alice.ID, note.ID, nil)
	require.NoError(t, err)
	_, err = f.links.Resolve(ctx, first.Token)
	require.NoError(t, err)

	second, err := f.links.Issue(ctx, alice.ID, note.ID, ptr(24))
	require.NoError(t, err)
	require.NotNil(t, second.ExpiresAt)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), *second.ExpiresAt)

	_, err = f.links.Resolve(ctx, first.Token)
	require.ErrorIs(t, err, entities.ErrLinkNotFound)

	_, err = f.links.Resolve(ctx, second.Token)
	require.NoError(t, err)
}

func TestLinkUseCase_Expiry(t *testing.T) {
	ctx := context.Background()

	t.Run("expired from store", func(t *testing.T) {
		f := newFixture(t)
		note := f.createNote(t, alice, "public")
		link, err := f.links.Issue(ctx, alice.ID, note.ID, ptr(1))
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		_, err = f.links.Resolve(ctx, link.Token)

		require.ErrorIs(t, err, entities.ErrLinkExpired)
		requireKind(t, err, entities.KindGone)
	})

	t.Run("expired while cached", func(t *testing.T) {
		f := newFixture(t)
		note := f.createNote(t, alice, "public")
		link, err := f.links.Issue(ctx, alice.ID, note.ID, ptr(1))
		require.NoError(t, err)
		_, err = f.links.Resolve(ctx, link.Token)
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		_, err = f.links.Resolve(ctx, link.Token)

		requireKind(t, err, entities.KindGone)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.links.Resolve(ctx, "definitely-not-issued")
		requireKind(t, err, entities.KindNotFound)

		_, err = f.links.Resolve(ctx, "")
		requireKind(t, err, entities.KindNotFound)
	})

	t.Run("non positive ttl", func(t *testing.T) {
		f := newFixture(t)
		note := f.createNote(t, alice, "public")
		for _, ttl := range []int{0, -3} {
			_, err := f.links.Issue(ctx, alice.ID, note.ID, ptr(ttl))
			require.ErrorIs(t, err, entities.ErrInvalidLinkTTL)
		}
	})
}

func TestLinkUseCase_ContentChangesReachResolvedLink(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	note := f.createNote(t, alice, "before")
	link, err := f.links.Issue(ctx, alice.ID, note.ID, nil)
	require.NoError(t, err)
	_, err = f.links.Resolve(ctx, link.Token)
	require.NoError(t, err)

	_, err = f.notes.UpdateNote(ctx, alice.ID, note.ID, app.NotePatch{Title: ptr("after")})
	require.NoError(t, err)

	public, err := f.links.Resolve(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, "after", public.Title)
}

func TestLinkUseCase_Revoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	note := f.createNote(t, alice, "public")
	link, err := f.links.Issue(ctx, alice.ID, note.ID, nil)
	require.NoError(t, err)
	_, err = f.links.Resolve(ctx, link.Token)
	require.NoError(t, err)

	err = f.links.Revoke(ctx, bob.ID, note.ID)
	require.ErrorIs(t, err, entities.ErrNotOwner)

	require.NoError(t, f.links.Revoke(ctx, alice.ID, note.ID))
	_, err = f.links.Resolve(ctx, link.Token)
	require.ErrorIs(t, err, entities.ErrLinkNotFound)

	_, err = f.links.Issue(ctx, bob.ID, note.ID, nil)
	require.ErrorIs(t, err, entities.ErrNotOwner)
}

func TestLinkUseCase_WorksWithoutCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	note := f.createNote(t, alice, "public")
	links := app.NewLinkUseCase(f.store.Notes(), services.NewLinkTokenService(), nil, app.Settings{Clock: f.clock.Now})

	link, err := links.Issue(ctx, alice.ID, note.ID, nil)
	require.NoError(t, err)
	public, err := links.Resolve(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, note.ID, public.ID)
}

var errCacheDown = errors.New("cache delete unavailable")

// stickyCache читает и пишет в Redis, но никогда не удаляет ключи.
type stickyCache struct {
	*cache.RedisCache
}

func (stickyCache) Delete(context.Context, string) error {
	return errCacheDown
}

func TestLinkUseCase_OldTokenDiesWhenInvalidationFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	client := redis.NewClient(&redis.Options{Addr: f.redis.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	projections := stickyCache{RedisCache: cache.NewRedisCache(client, time.Minute)}

	settings := app.Settings{StoreTimeout: time.Second, Clock: f.clock.Now, LinkCacheTTL: time.Minute}
	links := app.NewLinkUseCase(f.store.Notes(), services.NewLinkTokenService(), projections, settings)
	notes := app.NewNoteUseCase(f.store.Notes(), f.storage, projections, nil, settings)
	note := f.createNote(t, alice, "public")

	first, err := links.Issue(ctx, alice.ID, note.ID, nil)
	require.NoError(t, err)
	_, err = links.Resolve(ctx, first.Token)
	require.NoError(t, err)

	second, err := links.Issue(ctx, alice.ID, note.ID, nil)
	require.NoError(t, err)
	_, err = links.Resolve(ctx, first.Token)
	require.ErrorIs(t, err, entities.ErrLinkNotFound, "replaced token must stop resolving")

	_, err = links.Resolve(ctx, second.Token)
	require.NoError(t, err)
	_, err = notes.UpdateNote(ctx, alice.ID, note.ID, app.NotePatch{Title: ptr("edited")})
	require.NoError(t, err)
	public, err := links.Resolve(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, "edited", public.Title)

	require.NoError(t, links.Revoke(ctx, alice.ID, note.ID))
	_, err = links.Resolve(ctx, first.Token)
	require.ErrorIs(t, err, entities.ErrLinkNotFound)
	_, err = links.Resolve(ctx, second.Token)
	require.ErrorIs(t, err, entities.ErrLinkNotFound, "revoked token must stop resolving")
}

func TestLinkUseCase_LateCacheWriteAfterRevoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	note := f.createNote(t, alice, "public")

	link, err := f.links.Issue(ctx, alice.ID, note.ID, nil)
	require.NoError(t, err)
	_, err = f.links.Resolve(ctx, link.Token)
	require.NoError(t, err)

	key := "notes:link:" + services.NewLinkTokenService().Hash(link.Token)
	staleEntry, err := f.redis.Get(key)
	require.NoError(t, err)

	require.NoError(t, f.links.Revoke(ctx, alice.ID, note.ID))
	require.False(t, f.redis.Exists(key))

	// Resolve, прочитавший строку до отзыва, дописывает проекцию после него.
	require.NoError(t, f.redis.Set(key, staleEntry))

	_, err = f.links.Resolve(ctx, link.Token)
	require.ErrorIs(t, err, entities.ErrLinkNotFound)
	assert.False(t, f.redis.Exists(key), "stale entry is dropped on first miss")
}
