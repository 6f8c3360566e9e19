package services

import (
	"context"
	"time"

	"notekeeper/internal/notes/domain/entities"
)

// UserDirectory разрешает пользователей по email и id.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	FindByID(ctx context.Context, userID string) (*entities.User, error)
}

// StoredObject - результат загрузки файла в хранилище.
type StoredObject struct {
	URL       string
	StorageID string
}

// ObjectStorage хранит файлы вложений.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (StoredObject, error)
	Delete(ctx context.Context, storageID string) error
}

// ReminderNotification - сообщение о наступившем напоминании.
type ReminderNotification struct {
	NoteID    string    `json:"note_id"`
	OwnerID   string    `json:"owner_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Title     string    `json:"title"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier доставляет уведомления пользователям.
type Notifier interface {
	NotifyReminder(ctx context.Context, n ReminderNotification) error
	Close() error
}

// LinkTokens выпускает токены публичных ссылок и считает их хеш.
type LinkTokens interface {
	Generate() (token string, hash string, err error)
	Hash(token string) string
}

// Clock возвращает текущее время.
type Clock func() time.Time
