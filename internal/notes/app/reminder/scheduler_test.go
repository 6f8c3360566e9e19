package reminder_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notekeeper/internal/notes/adapters/cache"
	"notekeeper/internal/notes/adapters/memory"
	"notekeeper/internal/notes/app/reminder"
	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/services"
	"notekeeper/internal/notes/resilience"
)

var owner = entities.User{ID: "user-1", Email: "owner@example.com", Username: "owner"}

var dueAt = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyReminder(ctx context.Context, n services.ReminderNotification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotifier) Close() error { return nil }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type env struct {
	store    *memory.Store
	notifier *mockNotifier
	clock    *clock
}

func newEnv() *env {
	store := memory.NewStore()
	store.AddUser(owner)
	return &env{store: store, notifier: new(mockNotifier), clock: &clock{now: dueAt}}
}

func (e *env) scheduler(locker *cache.RedisLocker) *reminder.Scheduler {
	deps := reminder.Deps{
		Notes:    e.store.Notes(),
		Users:    e.store.Users(),
		Notifier: e.notifier,
		Guard:    resilience.NewGuard("notifier", resilience.DefaultCircuitBreakerConfig(), resilience.RetryConfig{MaxAttempts: 1}),
		Clock:    e.clock.Now,
	}
	if locker != nil {
		deps.Locker = locker
	}
	return reminder.New(reminder.Config{Interval: 10 * time.Millisecond}, deps)
}

func (e *env) seed(t *testing.T, title string, due time.Time) string {
	t.Helper()
	created := due.Add(-time.Hour)
	note, err := entities.NewNote(owner.ID, title, "", nil, created)
	require.NoError(t, err)
	require.NoError(t, note.ScheduleReminder(due, created))
	id, err := e.store.Notes().Create(context.Background(), note)
	require.NoError(t, err)
	return id
}

func (e *env) reminderOf(t *testing.T, noteID string) entities.Reminder {
	t.Helper()
	note, err := e.store.Notes().GetByID(context.Background(), noteID)
	require.NoError(t, err)
	return note.Reminder
}

func TestSweepOnce_NotDueYet(t *testing.T) {
	e := newEnv()
	id := e.seed(t, "standup", dueAt)
	e.clock.Set(dueAt.Add(-30 * time.Minute))

	result := e.scheduler(nil).SweepOnce(context.Background())

	assert.Equal(t, reminder.SweepResult{}, result)
	assert.Equal(t, entities.ReminderPending, e.reminderOf(t, id).Status)
	e.notifier.AssertNotCalled(t, "NotifyReminder", mock.Anything, mock.Anything)
}

func TestSweepOnce_SendsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	id := e.seed(t, "standup", dueAt)
	e.clock.Set(dueAt.Add(time.Minute))

	e.notifier.On("NotifyReminder", mock.Anything, mock.MatchedBy(func(n services.ReminderNotification) bool {
		return n.NoteID == id && n.Email == owner.Email && n.Title == "standup" && n.DueAt.Equal(dueAt)
	})).Return(nil).Once()

	s := e.scheduler(nil)
	result := s.SweepOnce(ctx)
	assert.Equal(t, reminder.SweepResult{Due: 1, Sent: 1}, result)
	assert.Equal(t, entities.ReminderSent, e.reminderOf(t, id).Status)

	result = s.SweepOnce(ctx)
	assert.Equal(t, 0, result.Due)
	e.notifier.AssertNumberOfCalls(t, "NotifyReminder", 1)
}

func TestSweepOnce_FailureLeavesPending(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	id := e.seed(t, "standup", dueAt)
	e.clock.Set(dueAt.Add(time.Minute))
	e.notifier.On("NotifyReminder", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	result := e.scheduler(nil).SweepOnce(ctx)

	assert.Equal(t, reminder.SweepResult{Due: 1, Failed: 1}, result)
	assert.Equal(t, entities.ReminderPending, e.reminderOf(t, id).Status)
}

func TestSweepOnce_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	first := e.seed(t, "first", dueAt.Add(-time.Hour))
	second := e.seed(t, "second", dueAt)
	e.clock.Set(dueAt.Add(time.Minute))

	e.notifier.On("NotifyReminder", mock.Anything, mock.MatchedBy(func(n services.ReminderNotification) bool {
		return n.NoteID == first
	})).Return(errors.New("rejected")).Once()
	e.notifier.On("NotifyReminder", mock.Anything, mock.MatchedBy(func(n services.ReminderNotification) bool {
		return n.NoteID == second
	})).Return(nil).Once()

	result := e.scheduler(nil).SweepOnce(ctx)

	assert.Equal(t, reminder.SweepResult{Due: 2, Sent: 1, Failed: 1}, result)
	assert.Equal(t, entities.ReminderPending, e.reminderOf(t, first).Status)
	assert.Equal(t, entities.ReminderSent, e.reminderOf(t, second).Status)
	e.notifier.AssertExpectations(t)
}

func TestSweepOnce_RescheduledDuringDispatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	id := e.seed(t, "standup", dueAt)
	e.clock.Set(dueAt.Add(time.Minute))
	later := dueAt.Add(24 * time.Hour)

	e.notifier.On("NotifyReminder", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		_, err := e.store.Notes().Mutate(ctx, id, func(n *entities.Note) error {
			return n.ScheduleReminder(later, dueAt.Add(time.Minute))
		})
		require.NoError(t, err)
	}).Return(nil).Once()

	result := e.scheduler(nil).SweepOnce(ctx)

	assert.Equal(t, reminder.SweepResult{Due: 1}, result)
	rem := e.reminderOf(t, id)
	assert.Equal(t, entities.ReminderPending, rem.Status)
	require.NotNil(t, rem.DueAt)
	assert.True(t, rem.DueAt.Equal(later))
}

func TestSweepOnce_RecoversPanic(t *testing.T) {
	e := newEnv()
	e.seed(t, "standup", dueAt)
	e.clock.Set(dueAt.Add(time.Minute))
	e.notifier.On("NotifyReminder", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(nil).Once()

	assert.NotPanics(t, func() {
		e.scheduler(nil).SweepOnce(context.Background())
	})
}

func TestSweepOnce_SkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	e := newEnv()
	id := e.seed(t, "standup", dueAt)
	e.clock.Set(dueAt.Add(time.Minute))

	other := cache.NewRedisLocker(client)
	ok, err := other.TryLock(ctx, reminder.LockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	s := e.scheduler(cache.NewRedisLocker(client))
	result := s.SweepOnce(ctx)

	assert.True(t, result.Skipped)
	assert.Equal(t, entities.ReminderPending, e.reminderOf(t, id).Status)

	require.NoError(t, other.Unlock(ctx, reminder.LockKey))
	e.notifier.On("NotifyReminder", mock.Anything, mock.Anything).Return(nil).Once()

	result = s.SweepOnce(ctx)

	assert.Equal(t, 1, result.Sent)
	assert.False(t, srv.Exists(reminder.LockKey), "lock is released after the sweep")
}

func TestScheduler_StartStop(t *testing.T) {
	e := newEnv()
	id := e.seed(t, "standup", dueAt)
	e.clock.Set(dueAt.Add(time.Minute))
	e.notifier.On("NotifyReminder", mock.Anything, mock.Anything).Return(nil).Once()

	s := e.scheduler(nil)
	s.Stop()

	s.Start(context.Background())
	s.Start(context.Background())

	require.Eventually(t, func() bool {
		note, err := e.store.Notes().GetByID(context.Background(), id)
		return err == nil && note.Reminder.Status == entities.ReminderSent
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	e.notifier.AssertNumberOfCalls(t, "NotifyReminder", 1)
}
