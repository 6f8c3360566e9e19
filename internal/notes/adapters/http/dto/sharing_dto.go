package dto

import (
	"time"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/repositories"
)

// GrantRequest содержит данные для выдачи доступа.
type GrantRequest struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

// GrantResponse - итог выдачи доступа.
type GrantResponse struct {
	Grant   ShareGrant `json:"grant"`
	Created bool       `json:"created"`
}

// RespondRequest содержит ответ получателя на приглашение.
type RespondRequest struct {
	Decision string `json:"decision"`
}

// User представляет пользователя.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// SharedNote - заметка, открытая пользователю другим владельцем.
type SharedNote struct {
	Note       *Note     `json:"note"`
	Owner      User      `json:"owner"`
	Permission string    `json:"permission"`
	Status     string    `json:"status"`
	GrantedAt  time.Time `json:"granted_at"`
}

// SharedNotesResponse содержит список открытых пользователю заметок.
type SharedNotesResponse struct {
	Notes []SharedNote `json:"notes"`
}

// GrantsResponse содержит приглашения заметки.
type GrantsResponse struct {
	Grants []ShareGrant `json:"grants"`
}

// NewSharedNotes строит ответ для viewerID.
func NewSharedNotes(items []repositories.SharedNote, viewerID string) SharedNotesResponse {
	out := SharedNotesResponse{Notes: make([]SharedNote, 0, len(items))}
	for _, item := range items {
		out.Notes = append(out.Notes, SharedNote{
			Note:       NewNote(item.Note, viewerID),
			Owner:      NewUser(item.Owner),
			Permission: string(item.Grant.Permission),
			Status:     string(item.Grant.Status),
			GrantedAt:  item.Grant.GrantedAt,
		})
	}
	return out
}

// NewUser строит ответ для пользователя.
func NewUser(u entities.User) User {
	return User{ID: u.ID, Email: u.Email, Username: u.Username}
}
