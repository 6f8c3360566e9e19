// Package main реализует точку входа службы заметок.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notekeeper/internal/notes/adapters/cache"
	httpadapter "notekeeper/internal/notes/adapters/http"
	"notekeeper/internal/notes/adapters/http/handlers"
	"notekeeper/internal/notes/adapters/notify"
	"notekeeper/internal/notes/adapters/postgres"
	"notekeeper/internal/notes/adapters/services"
	"notekeeper/internal/notes/adapters/storage"
	"notekeeper/internal/notes/app"
	"notekeeper/internal/notes/app/reminder"
	"notekeeper/internal/notes/config"
	"notekeeper/internal/notes/db"
	"notekeeper/internal/notes/resilience"
	"notekeeper/pkg/db/redis"
	"notekeeper/pkg/logger"
	"notekeeper/pkg/shutdown"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "NOTES_LOGGER_MODE"
	EnvLoggerLevel = "NOTES_LOGGER_LEVEL"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrInitDB               = "failed to initialize database"
	ErrInitRedis            = "failed to initialize redis"
	ErrInitStorage          = "failed to initialize object storage"
	ErrInitNotifier         = "failed to initialize reminder notifier"
	ErrStartHTTP            = "failed to start HTTP server"
	ErrServiceFailed        = "note service failed"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "note service started"
	LogServiceShutdownDone = "note service shutdown complete"
	LogClosingRedis        = "closing redis connection"
	LogClosingNotifier     = "closing reminder notifier"
	LogStoppingHTTP        = "stopping HTTP server"
	LogStoppingScheduler   = "stopping reminder scheduler"
	LogInitRepo            = "initializing repositories"
	LogInitServices        = "initializing services"
	LogInitUseCases        = "initializing use cases"
	LogInitHandlers        = "initializing HTTP handlers"
	LogStartingHTTP        = "starting HTTP server"
	LogSchedulerDisabled   = "reminder scheduler disabled"
)

func main() {
	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		if err := run(ctx, cfg); err != nil {
			log.Error(ctx, ErrServiceFailed, zap.Error(err))
			exitCode = 1
		}
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Log(ctx)

	database, err := db.New(ctx, &cfg.Postgres)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrInitDB, err)
	}
	defer database.Close(context.WithoutCancel(ctx))

	log.Info(ctx, LogInitRepo)
	repoFactory := postgres.NewRepositoryFactory(database.Pool())
	noteRepo := repoFactory.NoteRepository()
	versionRepo := repoFactory.VersionRepository()
	users := repoFactory.UserDirectory()

	redisClient, err := redis.NewClient(ctx, cfg.Redis.ClientConfig())
	if err != nil {
		return fmt.Errorf("%s: %w", ErrInitRedis, err)
	}
	linkCache := cache.NewRedisCache(redisClient.RawClient(), cfg.App.LinkCacheTTL)
	locker := cache.NewRedisLocker(redisClient.RawClient())

	log.Info(ctx, LogInitServices)
	objectStorage, err := storage.NewS3Storage(ctx, storage.S3Config{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UsePathStyle:    cfg.Storage.UsePathStyle,
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		_ = redisClient.Close(ctx)
		return fmt.Errorf("%s: %w", ErrInitStorage, err)
	}

	notifier, err := notify.NewKafkaNotifier(notify.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	})
	if err != nil {
		_ = redisClient.Close(ctx)
		return fmt.Errorf("%s: %w", ErrInitNotifier, err)
	}

	tokenService := services.NewJWT(services.JWTOptions{
		Secret: cfg.JWT.SecretKey,
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
	})
	linkTokens := services.NewLinkTokenService()

	log.Info(ctx, LogInitUseCases)
	settings := app.Settings{
		StoreTimeout: cfg.App.StoreTimeout,
		Clock:        time.Now,
		LinkCacheTTL: cfg.App.LinkCacheTTL,
	}
	noteUseCase := app.NewNoteUseCase(noteRepo, objectStorage, linkCache, resilience.NewDefaultGuard("object-storage"), settings)
	sharingUseCase := app.NewSharingUseCase(noteRepo, users, settings)
	linkUseCase := app.NewLinkUseCase(noteRepo, linkTokens, linkCache, settings)
	versionUseCase := app.NewVersionUseCase(noteRepo, versionRepo, linkCache, settings)

	scheduler := reminder.New(reminder.Config{
		Interval:        cfg.Reminder.Interval,
		BatchSize:       cfg.Reminder.BatchSize,
		DispatchTimeout: cfg.Reminder.DispatchTimeout,
		StoreTimeout:    cfg.App.StoreTimeout,
		LockTTL:         cfg.Reminder.LockTTL,
	}, reminder.Deps{
		Notes:    noteRepo,
		Users:    users,
		Notifier: notifier,
		Locker:   locker,
		Guard:    resilience.NewDefaultGuard("notifier"),
		Clock:    time.Now,
	})

	log.Info(ctx, LogInitHandlers)
	handler := handlers.NewHandler(handlers.Services{
		Notes:    noteUseCase,
		Sharing:  sharingUseCase,
		Links:    linkUseCase,
		Versions: versionUseCase,
	})

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	})
	httpadapter.SetupRouter(server, handler, tokenService)

	if cfg.Reminder.Enabled {
		scheduler.Start(ctx)
	} else {
		log.Info(ctx, LogSchedulerDisabled)
	}

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()

	go func() {
		log.Info(ctx, LogStartingHTTP, zap.String("address", cfg.HTTP.GetAddress()))
		if err := server.Listen(cfg.HTTP.GetAddress(), fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			log.Error(ctx, ErrStartHTTP, zap.Error(err))
			stopServing()
		}
	}()

	log.Info(ctx, LogServiceStarted,
		zap.String("log_level", cfg.Logging.Level),
		zap.String("startup_time", time.Now().Format(time.RFC3339)))

	shutdown.Wait(serveCtx, cfg.Shutdown.GetTimeout(),
		func(ctx context.Context) error {
			log.Info(ctx, LogStoppingHTTP)
			return server.ShutdownWithContext(ctx)
		},
		func(ctx context.Context) error {
			log.Info(ctx, LogStoppingScheduler)
			scheduler.Stop()
			return nil
		},
		func(ctx context.Context) error {
			log.Info(ctx, LogClosingNotifier)
			return notifier.Close()
		},
	)

	log.Info(ctx, LogClosingRedis)
	if err := redisClient.Close(ctx); err != nil {
		log.Warn(ctx, LogClosingRedis, zap.Error(err))
	}

	log.Info(ctx, LogServiceShutdownDone)
	return nil
}
