package config

import (
	"time"

	"notekeeper/pkg/db/redis"
)

// RedisConfig содержит настройки кэша ссылок и блокировки рассылки.
type RedisConfig struct {
	Host        string        `yaml:"host" env:"NOTES_REDIS_HOST" env-default:"localhost"`
	Port        int           `yaml:"port" env:"NOTES_REDIS_PORT" env-default:"6379"`
	Password    string        `yaml:"password" env:"NOTES_REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"NOTES_REDIS_DB" env-default:"0"`
	PoolSize    int           `yaml:"pool_size" env:"NOTES_REDIS_POOL_SIZE" env-default:"10"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"NOTES_REDIS_DIAL_TIMEOUT" env-default:"5s"`
	IOTimeout   time.Duration `yaml:"io_timeout" env:"NOTES_REDIS_IO_TIMEOUT" env-default:"3s"`
}

// ClientConfig возвращает настройки клиента pkg/db/redis.
func (r *RedisConfig) ClientConfig() *redis.Config {
	return &redis.Config{
		Host:         r.Host,
		Port:         r.Port,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.IOTimeout,
		WriteTimeout: r.IOTimeout,
	}
}
