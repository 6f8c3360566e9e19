package entities

import "time"

// MaxVersionsPerNote - сколько снимков хранится на одну заметку.
const MaxVersionsPerNote = 20

// Version - неизменяемый снимок содержимого заметки.
type Version struct {
	ID        string
	NoteID    string
	Sequence  int
	Title     string
	Content   string
	Tags      []string
	AuthorID  string
	CreatedAt time.Time
}

// VersionSummary - краткие поля снимка для списка.
type VersionSummary struct {
	ID        string
	Sequence  int
	Title     string
	AuthorID  string
	CreatedAt time.Time
}

// NewVersion снимает текущее содержимое заметки. Sequence, ID и CreatedAt
// назначает хранилище.
func NewVersion(n *Note, authorID string) *Version {
	return &Version{
		NoteID:   n.ID,
		Title:    n.Title,
		Content:  n.Content,
		Tags:     append([]string{}, n.Tags...),
		AuthorID: authorID,
	}
}

// RestoreFrom переписывает title/content/tags из снимка. Флаги, вложения
// и совместный доступ не трогаются.
func (n *Note) RestoreFrom(v *Version) {
	n.Title = v.Title
	n.Content = v.Content
	n.Tags = append([]string{}, v.Tags...)
}
