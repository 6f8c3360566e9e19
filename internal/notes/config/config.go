// Package config содержит конфигурацию сервиса заметок.
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	pkgconfig "notekeeper/pkg/config"
)

// EnvConfigPath - переменная окружения с путем к YAML-файлу конфигурации.
const EnvConfigPath = "NOTES_CONFIG_PATH"

const (
	serviceName = "notes"

	errLoadConfig = "failed to load notes configuration"
)

// Config конфигурация сервиса заметок.
type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	HTTP     HTTPConfig     `yaml:"http"`
	JWT      JWTConfig      `yaml:"jwt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Reminder ReminderConfig `yaml:"reminder"`
	App      AppConfig      `yaml:"app"`
}

// ShutdownConfig настройки корректного завершения.
type ShutdownConfig struct {
	Timeout int `yaml:"timeout" env:"NOTES_GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"5"`
}

// GetTimeout возвращает таймаут завершения.
func (s *ShutdownConfig) GetTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// AppConfig настройки сценариев.
type AppConfig struct {
	StoreTimeout time.Duration `yaml:"store_timeout" env:"NOTES_STORE_TIMEOUT" env-default:"5s"`
	LinkCacheTTL time.Duration `yaml:"link_cache_ttl" env:"NOTES_LINK_CACHE_TTL" env-default:"10m"`
}

// Load загружает конфигурацию из файла NOTES_CONFIG_PATH (если задан)
// и переменных окружения.
func Load(ctx context.Context) (*Config, error) {
	cfg, err := pkgconfig.Load[Config](ctx, serviceName, os.Getenv(EnvConfigPath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errLoadConfig, err)
	}
	return cfg, nil
}
