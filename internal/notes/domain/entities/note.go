// Package entities defines the domain entities for the notes service.
package entities

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Ограничения содержимого заметки.
const (
	MaxTitleLength   = 200
	MaxContentLength = 50000
	MaxTags          = 10
	MaxTagLength     = 50
)

// Note представляет собой заметку пользователя вместе со встроенным
// состоянием совместного доступа.
type Note struct {
	ID          string
	OwnerID     string
	Title       string
	Content     string
	Tags        []string
	Pinned      bool
	Archived    bool
	Attachments []Attachment
	Reminder    Reminder
	Shares      []ShareGrant
	Link        ShareLink
	Revision    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewNote создает заметку владельца ownerID после проверки полей.
func NewNote(ownerID, title, content string, tags []string, now time.Time) (*Note, error) {
	title, err := ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	normalized, err := NormalizeTags(tags)
	if err != nil {
		return nil, err
	}

	return &Note{
		OwnerID:     ownerID,
		Title:       title,
		Content:     content,
		Tags:        normalized,
		Attachments: []Attachment{},
		Reminder:    Reminder{Status: ReminderNone},
		Shares:      []ShareGrant{},
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidateTitle обрезает пробелы и проверяет заголовок.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// ValidateContent проверяет длину тела заметки.
func ValidateContent(content string) error {
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// NormalizeTags обрезает пробелы, убирает пустые теги и дубликаты с сохранением порядка.
func NormalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, ErrTagTooLong
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > MaxTags {
		return nil, ErrTooManyTags
	}
	return out, nil
}

// IsOwner сообщает, является ли userID владельцем.
func (n *Note) IsOwner(userID string) bool {
	return userID != "" && n.OwnerID == userID
}

// EffectivePermission возвращает право пользователя на заметку:
// владелец - edit, принятый получатель - право из приглашения, иначе false.
func (n *Note) EffectivePermission(userID string) (Permission, bool) {
	if n.IsOwner(userID) {
		return PermissionEdit, true
	}
	grant, ok := n.GrantFor(userID)
	if !ok || grant.Status != GrantAccepted {
		return "", false
	}
	return grant.Permission, true
}

// Touch отмечает изменение содержимого.
func (n *Note) Touch(now time.Time) {
	n.UpdatedAt = now
}

// ApplyContent заменяет title/content/tags после проверки.
// nil-аргумент оставляет поле без изменений.
func (n *Note) ApplyContent(title, content *string, tags []string, setTags bool) error {
	var (
		newTitle = n.Title
		newTags  = n.Tags
		err      error
	)
	if title != nil {
		if newTitle, err = ValidateTitle(*title); err != nil {
			return err
		}
	}
	if content != nil {
		if err := ValidateContent(*content); err != nil {
			return err
		}
	}
	if setTags {
		if newTags, err = NormalizeTags(tags); err != nil {
			return err
		}
	}

	n.Title = newTitle
	if content != nil {
		n.Content = *content
	}
	n.Tags = newTags
	return nil
}

// PublicNote - проекция заметки для публичной ссылки, без полей владельца.
type PublicNote struct {
	ID          string
	Title       string
	Content     string
	Tags        []string
	Attachments []Attachment
	Permission  Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   *time.Time
}

// Public строит проекцию только для чтения.
func (n *Note) Public() PublicNote {
	tags := append([]string(nil), n.Tags...)
	attachments := append([]Attachment(nil), n.Attachments...)
	return PublicNote{
		ID:          n.ID,
		Title:       n.Title,
		Content:     n.Content,
		Tags:        tags,
		Attachments: attachments,
		Permission:  PermissionView,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
		ExpiresAt:   n.Link.ExpiresAt,
	}
}
