package dto

import (
	"time"

	"notekeeper/internal/notes/domain/entities"
)

// IssueLinkRequest содержит срок действия ссылки в часах. Пустое значение - бессрочно.
type IssueLinkRequest struct {
	TTLHours *int `json:"ttl_hours"`
}

// LinkResponse содержит выпущенный токен. Токен показывается только один раз.
type LinkResponse struct {
	Token     string     `json:"token"`
	Path      string     `json:"path"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// PublicNote - заметка, открытая по публичной ссылке.
type PublicNote struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Tags        []string     `json:"tags"`
	Attachments []Attachment `json:"attachments"`
	Permission  string       `json:"permission"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
}

// NewPublicNote строит ответ для публичной ссылки.
func NewPublicNote(p *entities.PublicNote) PublicNote {
	return PublicNote{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		Tags:        nonNil(p.Tags),
		Attachments: NewAttachments(p.Attachments),
		Permission:  string(p.Permission),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		ExpiresAt:   p.ExpiresAt,
	}
}
