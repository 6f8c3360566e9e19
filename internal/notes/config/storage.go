package config

// StorageConfig содержит настройки S3-совместимого хранилища вложений.
type StorageConfig struct {
	Endpoint        string `yaml:"endpoint" env:"NOTES_S3_ENDPOINT"`
	Region          string `yaml:"region" env:"NOTES_S3_REGION" env-default:"us-east-1"`
	Bucket          string `yaml:"bucket" env:"NOTES_S3_BUCKET" env-default:"notes-attachments"`
	AccessKeyID     string `yaml:"access_key_id" env:"NOTES_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"NOTES_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"NOTES_S3_USE_PATH_STYLE" env-default:"true"`
	PublicBaseURL   string `yaml:"public_base_url" env:"NOTES_S3_PUBLIC_BASE_URL"`
}
