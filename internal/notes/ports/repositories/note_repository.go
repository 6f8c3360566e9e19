// Package repositories defines repository interfaces for the notes service.
package repositories

import (
	"context"
	"time"

	"notekeeper/internal/notes/domain/entities"
)

// NoteFilter - параметры выборки заметок владельца.
type NoteFilter struct {
	Archived *bool
	Pinned   *bool
	Tag      string
	Query    string
	Limit    int
	Offset   int
}

// SharedNote - заметка, доступная пользователю по приглашению, с данными владельца.
type SharedNote struct {
	Note  *entities.Note
	Owner entities.User
	Grant entities.ShareGrant
}

// MutateFunc изменяет заметку внутри транзакции. Ошибка отменяет изменения.
type MutateFunc func(note *entities.Note) error

// NoteRepository определяет интерфейс для работы с репозиторием заметок.
type NoteRepository interface {
	Create(ctx context.Context, note *entities.Note) (string, error)
	GetByID(ctx context.Context, noteID string) (*entities.Note, error)
	// Mutate блокирует строку заметки, применяет fn и сохраняет результат
	// с увеличением revision. Возвращает сохраненную заметку.
	Mutate(ctx context.Context, noteID string, fn MutateFunc) (*entities.Note, error)
	Delete(ctx context.Context, noteID string) error
	ListByOwner(ctx context.Context, ownerID string, filter NoteFilter) ([]*entities.Note, int, error)
	ListShared(ctx context.Context, userID string, status entities.GrantStatus) ([]SharedNote, error)
	FindByLinkHash(ctx context.Context, tokenHash string) (*entities.Note, error)
	// LinkRevision возвращает revision заметки, чья текущая ссылка имеет хеш
	// tokenHash, или entities.ErrLinkNotFound.
	LinkRevision(ctx context.Context, tokenHash string) (int64, error)
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*entities.Note, error)
}

// VersionRepository определяет интерфейс архива снимков.
type VersionRepository interface {
	// Append сохраняет снимок, удаляя самый старый при достижении maxVersions.
	Append(ctx context.Context, version *entities.Version, maxVersions int) (*entities.Version, error)
	List(ctx context.Context, noteID string, limit int) ([]entities.VersionSummary, error)
	Get(ctx context.Context, noteID, versionID string) (*entities.Version, error)
}
