package entities

import (
	"strings"
	"time"
)

// MaxAttachmentSize - предельный размер вложения в байтах.
const MaxAttachmentSize = 10 << 20

// AttachmentKind - тип вложения.
type AttachmentKind string

// Типы вложений.
const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
)

// KindForContentType определяет тип вложения по MIME-типу.
func KindForContentType(contentType string) AttachmentKind {
	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return AttachmentImage
	}
	return AttachmentDocument
}

// Attachment - файл, прикрепленный к заметке.
type Attachment struct {
	ID          string         `json:"id"`
	URL         string         `json:"url"`
	StorageID   string         `json:"storage_id"`
	Kind        AttachmentKind `json:"kind"`
	Name        string         `json:"name"`
	Size        int64          `json:"size"`
	ContentType string         `json:"content_type"`
	UploadedAt  time.Time      `json:"uploaded_at"`
}

// AddAttachment добавляет вложение в конец списка.
func (n *Note) AddAttachment(a Attachment) {
	n.Attachments = append(n.Attachments, a)
}

// RemoveAttachment удаляет вложение по id.
func (n *Note) RemoveAttachment(id string) (Attachment, error) {
	for i, a := range n.Attachments {
		if a.ID == id {
			n.Attachments = append(n.Attachments[:i], n.Attachments[i+1:]...)
			return a, nil
		}
	}
	return Attachment{}, ErrAttachmentNotFound
}
