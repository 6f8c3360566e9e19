package config

import "time"

// JWTConfig содержит настройки проверки access токенов.
type JWTConfig struct {
	SecretKey string        `yaml:"secret_key" env:"JWT_SECRET_KEY" env-default:"2hlsdwbzmv7yGxbQ4sIah/MuvvNoe889pbEzZql0SU8n3U1gYi29gZnFQKxiUdGH"`
	Issuer    string        `yaml:"issuer" env:"JWT_ISSUER"`
	Leeway    time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"30s"`
}
