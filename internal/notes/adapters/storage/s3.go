// Package storage хранит файлы вложений в S3-совместимом хранилище.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"notekeeper/internal/notes/ports/services"
	"notekeeper/pkg/logger"
)

// Константы для сообщений.
const (
	LogObjectStored  = "object stored"
	LogObjectDeleted = "object deleted"

	errLoadAWSConfig = "failed to load aws config"
	errPutObject     = "failed to put object"
	errDeleteObject  = "failed to delete object"
)

// ErrNoBucket возвращается, если бакет не задан.
var ErrNoBucket = errors.New("s3 bucket is not configured")

// s3API - часть клиента S3, которую использует хранилище.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config - параметры подключения к хранилищу.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	// PublicBaseURL - адрес, по которому клиенты скачивают файлы.
	// Пустое значение означает endpoint/bucket.
	PublicBaseURL string
}

// S3Storage реализует services.ObjectStorage.
type S3Storage struct {
	client  s3API
	bucket  string
	baseURL string
}

// NewS3Storage создает клиент S3 по конфигурации.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errLoadAWSConfig, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Storage(client, cfg), nil
}

func newS3Storage(client s3API, cfg S3Config) *S3Storage {
	base := cfg.PublicBaseURL
	if base == "" {
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
		}
		base = strings.TrimRight(endpoint, "/") + "/" + cfg.Bucket
	}
	return &S3Storage{client: client, bucket: cfg.Bucket, baseURL: strings.TrimRight(base, "/")}
}

var _ services.ObjectStorage = (*S3Storage)(nil)

// Put загружает объект под ключом key. Идентификатором хранения служит ключ.
func (s *S3Storage) Put(ctx context.Context, key, contentType string, data []byte) (services.StoredObject, error) {
	log := logger.Log(ctx).With(zap.String("method", "S3Storage.Put"))

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return services.StoredObject{}, fmt.Errorf("%s: %w", errPutObject, err)
	}

	log.Debug(ctx, LogObjectStored, zap.String("key", key), zap.Int("size", len(data)))
	return services.StoredObject{URL: s.objectURL(key), StorageID: key}, nil
}

// Delete удаляет объект. Отсутствующий объект не ошибка.
func (s *S3Storage) Delete(ctx context.Context, storageID string) error {
	log := logger.Log(ctx).With(zap.String("method", "S3Storage.Delete"))

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageID),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errDeleteObject, err)
	}

	log.Debug(ctx, LogObjectDeleted, zap.String("key", storageID))
	return nil
}

func (s *S3Storage) objectURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/")
}
