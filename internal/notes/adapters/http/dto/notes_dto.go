// Package dto содержит структуры запросов и ответов HTTP API.
package dto

import (
	"time"

	"notekeeper/internal/notes/domain/entities"
)

// CreateNoteRequest содержит данные для создания заметки.
type CreateNoteRequest struct {
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Tags       []string   `json:"tags"`
	Pinned     bool       `json:"pinned"`
	ReminderAt *time.Time `json:"reminder_at"`
}

// UpdateNoteRequest содержит данные для частичного обновления заметки.
// Для снятия напоминания передается clear_reminder.
type UpdateNoteRequest struct {
	Title         *string    `json:"title"`
	Content       *string    `json:"content"`
	Tags          *[]string  `json:"tags"`
	Pinned        *bool      `json:"pinned"`
	Archived      *bool      `json:"archived"`
	ReminderAt    *time.Time `json:"reminder_at"`
	ClearReminder bool       `json:"clear_reminder"`
}

// Attachment представляет вложение.
type Attachment struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Reminder представляет напоминание.
type Reminder struct {
	DueAt  *time.Time `json:"due_at"`
	Status string     `json:"status"`
}

// ShareGrant представляет приглашение в ответе владельцу.
type ShareGrant struct {
	GranteeID  string    `json:"grantee_id"`
	Email      string    `json:"email,omitempty"`
	Username   string    `json:"username,omitempty"`
	Permission string    `json:"permission"`
	Status     string    `json:"status"`
	GrantedAt  time.Time `json:"granted_at"`
}

// LinkState описывает публичную ссылку без токена.
type LinkState struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Note представляет заметку. Shares и Link заполняются только для владельца.
type Note struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"owner_id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Tags        []string     `json:"tags"`
	Pinned      bool         `json:"pinned"`
	Archived    bool         `json:"archived"`
	Attachments []Attachment `json:"attachments"`
	Reminder    Reminder     `json:"reminder"`
	Permission  string       `json:"permission,omitempty"`
	IsOwner     bool         `json:"is_owner"`
	Shares      []ShareGrant `json:"shares,omitempty"`
	Link        *LinkState   `json:"link,omitempty"`
	Revision    int64        `json:"revision"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ListNotesResponse содержит список заметок и информацию о пагинации.
type ListNotesResponse struct {
	Notes  []*Note `json:"notes"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// NewNote строит ответ для пользователя viewerID.
func NewNote(n *entities.Note, viewerID string) *Note {
	out := &Note{
		ID:          n.ID,
		OwnerID:     n.OwnerID,
		Title:       n.Title,
		Content:     n.Content,
		Tags:        nonNil(n.Tags),
		Pinned:      n.Pinned,
		Archived:    n.Archived,
		Attachments: NewAttachments(n.Attachments),
		Reminder:    Reminder{DueAt: n.Reminder.DueAt, Status: string(n.Reminder.Status)},
		IsOwner:     n.IsOwner(viewerID),
		Revision:    n.Revision,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
	if perm, ok := n.EffectivePermission(viewerID); ok {
		out.Permission = string(perm)
	}
	if out.IsOwner {
		out.Shares = make([]ShareGrant, 0, len(n.Shares))
		for _, g := range n.Shares {
			out.Shares = append(out.Shares, NewShareGrant(g, nil))
		}
		out.Link = &LinkState{Active: n.Link.Active(), ExpiresAt: n.Link.ExpiresAt}
	}
	return out
}

// NewNotes строит ответы для списка заметок.
func NewNotes(notes []*entities.Note, viewerID string) []*Note {
	out := make([]*Note, 0, len(notes))
	for _, n := range notes {
		out = append(out, NewNote(n, viewerID))
	}
	return out
}

// NewAttachment строит ответ для вложения.
func NewAttachment(a entities.Attachment) Attachment {
	return Attachment{
		ID:          a.ID,
		URL:         a.URL,
		Kind:        string(a.Kind),
		Name:        a.Name,
		Size:        a.Size,
		ContentType: a.ContentType,
		UploadedAt:  a.UploadedAt,
	}
}

// NewAttachments строит ответы для вложений.
func NewAttachments(items []entities.Attachment) []Attachment {
	out := make([]Attachment, 0, len(items))
	for _, a := range items {
		out = append(out, NewAttachment(a))
	}
	return out
}

// NewShareGrant строит ответ для приглашения. grantee может быть nil.
func NewShareGrant(g entities.ShareGrant, grantee *entities.User) ShareGrant {
	out := ShareGrant{
		GranteeID:  g.GranteeID,
		Permission: string(g.Permission),
		Status:     string(g.Status),
		GrantedAt:  g.GrantedAt,
	}
	if grantee != nil {
		out.Email = grantee.Email
		out.Username = grantee.Username
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
