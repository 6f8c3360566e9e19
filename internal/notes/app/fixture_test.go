package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notekeeper/internal/notes/adapters/cache"
	"notekeeper/internal/notes/adapters/memory"
	"notekeeper/internal/notes/adapters/services"
	"notekeeper/internal/notes/app"
	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/repositories"
	servicePorts "notekeeper/internal/notes/ports/services"
	"notekeeper/internal/notes/resilience"
)

var (
	alice = entities.User{ID: "user-alice", Email: "alice@example.com", Username: "alice"}
	bob   = entities.User{ID: "user-bob", Email: "bob@example.com", Username: "bob"}
	carol = entities.User{ID: "user-carol", Email: "carol@example.com", Username: "carol"}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Put(ctx context.Context, key, contentType string, data []byte) (servicePorts.StoredObject, error) {
	args := m.Called(ctx, key, contentType, data)
	return args.Get(0).(servicePorts.StoredObject), args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, storageID string) error {
	return m.Called(ctx, storageID).Error(0)
}

type fixture struct {
	store    *memory.Store
	clock    *fakeClock
	storage  *mockStorage
	redis    *miniredis.Miniredis
	notes    *app.NoteUseCase
	sharing  *app.SharingUseCase
	links    *app.LinkUseCase
	versions *app.VersionUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	for _, u := range []entities.User{alice, bob, carol} {
		store.AddUser(u)
	}

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	projections := cache.NewRedisCache(client, time.Minute)

	clock := newFakeClock()
	settings := app.Settings{StoreTimeout: time.Second, Clock: clock.Now, LinkCacheTTL: time.Minute}
	storage := new(mockStorage)
	guard := resilience.NewGuard("test-storage", resilience.DefaultCircuitBreakerConfig(), resilience.RetryConfig{MaxAttempts: 1})

	return &fixture{
		store:    store,
		clock:    clock,
		storage:  storage,
		redis:    srv,
		notes:    app.NewNoteUseCase(store.Notes(), storage, projections, guard, settings),
		sharing:  app.NewSharingUseCase(store.Notes(), store.Users(), settings),
		links:    app.NewLinkUseCase(store.Notes(), services.NewLinkTokenService(), projections, settings),
		versions: app.NewVersionUseCase(store.Notes(), store.Versions(), projections, settings),
	}
}

func (f *fixture) createNote(t *testing.T, owner entities.User, title string) *entities.Note {
	t.Helper()
	note, err := f.notes.CreateNote(context.Background(), owner.ID, app.NoteInput{Title: title, Content: "body of " + title})
	require.NoError(t, err)
	return note
}

// share выдает доступ и, если accept, принимает приглашение.
func (f *fixture) share(t *testing.T, noteID string, grantee entities.User, permission string, accept bool) {
	t.Helper()
	ctx := context.Background()
	_, err := f.sharing.Grant(ctx, alice.ID, noteID, grantee.Email, permission)
	require.NoError(t, err)
	if accept {
		require.NoError(t, f.sharing.Respond(ctx, grantee.ID, noteID, "accept"))
	}
}

func requireKind(t *testing.T, err error, kind entities.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, entities.KindOf(err), "unexpected error: %v", err)
}

// blockingNotes зависает до отмены контекста.
type blockingNotes struct {
	repositories.NoteRepository
}

func (blockingNotes) GetByID(ctx context.Context, _ string) (*entities.Note, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func ptr[T any](v T) *T { return &v }
