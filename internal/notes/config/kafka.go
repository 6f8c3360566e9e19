package config

import "time"

// KafkaConfig содержит настройки отправки уведомлений о напоминаниях.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers" env:"NOTES_KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	Topic        string        `yaml:"topic" env:"NOTES_KAFKA_REMINDER_TOPIC" env-default:"notes.reminders"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"NOTES_KAFKA_WRITE_TIMEOUT" env-default:"10s"`
}
