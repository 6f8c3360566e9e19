package dto

import (
	"time"

	"notekeeper/internal/notes/domain/entities"
)

// VersionSummary - элемент списка снимков.
type VersionSummary struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	Title     string    `json:"title"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Version - снимок заметки.
type Version struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	Sequence  int       `json:"sequence"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// VersionsResponse содержит снимки заметки, новые первыми.
type VersionsResponse struct {
	Versions []VersionSummary `json:"versions"`
}

// NewVersion строит ответ для снимка.
func NewVersion(v *entities.Version) Version {
	return Version{
		ID:        v.ID,
		NoteID:    v.NoteID,
		Sequence:  v.Sequence,
		Title:     v.Title,
		Content:   v.Content,
		Tags:      nonNil(v.Tags),
		AuthorID:  v.AuthorID,
		CreatedAt: v.CreatedAt,
	}
}

// NewVersions строит ответ для списка снимков.
func NewVersions(items []entities.VersionSummary) VersionsResponse {
	out := VersionsResponse{Versions: make([]VersionSummary, 0, len(items))}
	for _, v := range items {
		out.Versions = append(out.Versions, VersionSummary{
			ID:        v.ID,
			Sequence:  v.Sequence,
			Title:     v.Title,
			AuthorID:  v.AuthorID,
			CreatedAt: v.CreatedAt,
		})
	}
	return out
}
