package config

import "time"

// ReminderConfig содержит настройки планировщика напоминаний.
type ReminderConfig struct {
	Enabled         bool          `yaml:"enabled" env:"NOTES_REMINDER_ENABLED" env-default:"true"`
	Interval        time.Duration `yaml:"interval" env:"NOTES_REMINDER_INTERVAL" env-default:"1m"`
	BatchSize       int           `yaml:"batch_size" env:"NOTES_REMINDER_BATCH_SIZE" env-default:"100"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout" env:"NOTES_REMINDER_DISPATCH_TIMEOUT" env-default:"10s"`
	LockTTL         time.Duration `yaml:"lock_ttl" env:"NOTES_REMINDER_LOCK_TTL" env-default:"1m"`
}
