// Package reminder рассылает наступившие напоминания заметок.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/cache"
	"notekeeper/internal/notes/ports/repositories"
	"notekeeper/internal/notes/ports/services"
	"notekeeper/internal/notes/resilience"
	"notekeeper/pkg/logger"
)

// Константы для сообщений logger.
const (
	LogSchedulerStarted  = "reminder scheduler started"
	LogSchedulerStopped  = "reminder scheduler stopped"
	LogSweepFinished     = "reminder sweep finished"
	LogSweepSkipped      = "reminder sweep skipped, lock is held by another instance"
	LogSweepLockFailed   = "failed to acquire reminder sweep lock"
	LogSweepUnlockFailed = "failed to release reminder sweep lock"
	LogSweepListFailed   = "failed to list due reminders"
	LogSweepPanic        = "reminder sweep panicked"
	LogReminderSent      = "reminder sent"
	LogReminderFailed    = "failed to send reminder"
	LogReminderChanged   = "reminder changed during dispatch, left as is"
)

const (
	errCtxOwnerLookup = "lookup note owner"
	errCtxDispatch    = "dispatch reminder"
	errCtxMarkSent    = "mark reminder sent"
)

// LockKey - ключ распределенной блокировки обхода.
const LockKey = "notes:reminders:sweep"

var errReminderChanged = errors.New("reminder changed")

var (
	sweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notes_reminder_sweeps_total",
		Help: "Количество обходов напоминаний по результату",
	}, []string{"result"})

	remindersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notes_reminders_total",
		Help: "Количество обработанных напоминаний по результату",
	}, []string{"result"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notes_reminder_sweep_duration_seconds",
		Help:    "Длительность обхода напоминаний в секундах",
		Buckets: prometheus.DefBuckets,
	})
)

// Config содержит параметры планировщика.
type Config struct {
	// Interval - период обхода.
	Interval time.Duration
	// BatchSize - максимум напоминаний за один обход.
	BatchSize int
	// DispatchTimeout ограничивает отправку одного уведомления.
	DispatchTimeout time.Duration
	// StoreTimeout ограничивает одну операцию с хранилищем.
	StoreTimeout time.Duration
	// LockTTL - время жизни блокировки обхода.
	LockTTL time.Duration
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		Interval:        time.Minute,
		BatchSize:       100,
		DispatchTimeout: 10 * time.Second,
		StoreTimeout:    5 * time.Second,
		LockTTL:         time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = def.DispatchTimeout
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = def.StoreTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = def.LockTTL
	}
	return c
}

// Deps - зависимости планировщика. Locker, Guard и Clock необязательны.
type Deps struct {
	Notes    repositories.NoteRepository
	Users    services.UserDirectory
	Notifier services.Notifier
	Locker   cache.Locker
	Guard    *resilience.Guard
	Clock    services.Clock
}

// SweepResult - итог одного обхода.
type SweepResult struct {
	Due     int
	Sent    int
	Failed  int
	Skipped bool
}

// Scheduler периодически отправляет наступившие напоминания.
type Scheduler struct {
	cfg      Config
	notes    repositories.NoteRepository
	users    services.UserDirectory
	notifier services.Notifier
	locker   cache.Locker
	guard    *resilience.Guard
	now      services.Clock

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New создает планировщик. Запуск выполняется через Start.
func New(cfg Config, deps Deps) *Scheduler {
	guard := deps.Guard
	if guard == nil {
		guard = resilience.NewDefaultGuard("notifier")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		cfg:      cfg.withDefaults(),
		notes:    deps.Notes,
		users:    deps.Users,
		notifier: deps.Notifier,
		locker:   deps.Locker,
		guard:    guard,
		now:      clock,
	}
}

// Start запускает цикл обхода. Повторный вызов ничего не делает.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(loopCtx, s.done)

	logger.Log(ctx).Info(ctx, LogSchedulerStarted,
		zap.Duration("interval", s.cfg.Interval), zap.Int("batchSize", s.cfg.BatchSize))
}

// Stop останавливает цикл и ждет его завершения. Повторный вызов ничего не делает.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
	logger.Log(context.Background()).Info(context.Background(), LogSchedulerStopped)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.SweepOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce выполняет один обход. Сбой отдельного напоминания не прерывает
// обход, паника внутри обхода перехватывается и логируется.
func (s *Scheduler) SweepOnce(ctx context.Context) (result SweepResult) {
	log := logger.Log(ctx).With(zap.String("method", "Scheduler.SweepOnce"))
	if ctx.Err() != nil {
		return result
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, LogSweepPanic, zap.Any("panic", r))
			sweepsTotal.WithLabelValues("panic").Inc()
			return
		}
		sweepDuration.Observe(time.Since(start).Seconds())
	}()

	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx, LockKey, s.cfg.LockTTL)
		switch {
		case err != nil:
			log.Warn(ctx, LogSweepLockFailed, zap.Error(err))
		case !acquired:
			log.Debug(ctx, LogSweepSkipped)
			sweepsTotal.WithLabelValues("skipped").Inc()
			result.Skipped = true
			return result
		default:
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx), LockKey); err != nil {
					log.Warn(ctx, LogSweepUnlockFailed, zap.Error(err))
				}
			}()
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	due, err := s.notes.ListDueReminders(storeCtx, s.now().UTC(), s.cfg.BatchSize)
	cancel()
	if err != nil {
		log.Error(ctx, LogSweepListFailed, zap.Error(err))
		sweepsTotal.WithLabelValues("error").Inc()
		return result
	}

	result.Due = len(due)
	for _, note := range due {
		if ctx.Err() != nil {
			break
		}
		sent, err := s.process(ctx, note)
		switch {
		case err != nil:
			result.Failed++
			remindersTotal.WithLabelValues("failed").Inc()
			log.Warn(ctx, LogReminderFailed, zap.String("noteID", note.ID), zap.Error(err))
		case sent:
			result.Sent++
			remindersTotal.WithLabelValues("sent").Inc()
		default:
			remindersTotal.WithLabelValues("changed").Inc()
		}
	}

	sweepsTotal.WithLabelValues("ok").Inc()
	log.Info(ctx, LogSweepFinished,
		zap.Int("due", result.Due), zap.Int("sent", result.Sent), zap.Int("failed", result.Failed))
	return result
}

// process отправляет одно напоминание и помечает его отправленным.
// false без ошибки означает, что напоминание изменили во время отправки.
func (s *Scheduler) process(ctx context.Context, note *entities.Note) (bool, error) {
	log := logger.Log(ctx).With(zap.String("method", "Scheduler.process"), zap.String("noteID", note.ID))

	if note.Reminder.DueAt == nil {
		return false, nil
	}
	dueAt := *note.Reminder.DueAt

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	owner, err := s.users.FindByID(storeCtx, note.OwnerID)
	cancel()
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtxOwnerLookup, err)
	}

	notification := services.ReminderNotification{
		NoteID:    note.ID,
		OwnerID:   note.OwnerID,
		Email:     owner.Email,
		Username:  owner.Username,
		Title:     note.Title,
		DueAt:     dueAt,
		CreatedAt: s.now().UTC(),
	}
	err = s.guard.Execute(ctx, "notify-reminder", func(ctx context.Context) error {
		dispatchCtx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
		defer cancel()
		return s.notifier.NotifyReminder(dispatchCtx, notification)
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtxDispatch, err)
	}

	storeCtx, cancel = context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	_, err = s.notes.Mutate(storeCtx, note.ID, func(n *entities.Note) error {
		if !n.MarkReminderSent(dueAt) {
			return errReminderChanged
		}
		return nil
	})
	switch {
	case errors.Is(err, errReminderChanged), errors.Is(err, entities.ErrNoteNotFound):
		log.Info(ctx, LogReminderChanged)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%s: %w", errCtxMarkSent, err)
	}

	log.Info(ctx, LogReminderSent, zap.Time("dueAt", dueAt))
	return true, nil
}
