package app

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/cache"
	"notekeeper/internal/notes/ports/repositories"
	"notekeeper/internal/notes/ports/services"
	"notekeeper/internal/notes/resilience"
	"notekeeper/pkg/logger"
)

// Параметры пагинации списка заметок.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// NoteInput - поля новой заметки.
type NoteInput struct {
	Title      string
	Content    string
	Tags       []string
	Pinned     bool
	ReminderAt *time.Time
}

// NotePatch - частичное изменение заметки. nil-поле не меняется.
type NotePatch struct {
	Title         *string
	Content       *string
	Tags          *[]string
	Pinned        *bool
	Archived      *bool
	ReminderAt    *time.Time
	ClearReminder bool
}

func (p NotePatch) touchesOwnerFields() bool {
	return p.Pinned != nil || p.Archived != nil || p.ReminderAt != nil || p.ClearReminder
}

// NoteView - заметка и право вызывающего на нее.
type NoteView struct {
	Note       *entities.Note
	Permission entities.Permission
	IsOwner    bool
}

// FileUpload - загружаемый файл вложения.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// NoteUseCase представляет собой бизнес-логику работы с заметками.
type NoteUseCase struct {
	notes    repositories.NoteRepository
	storage  services.ObjectStorage
	links    linkCache
	cleanup  *resilience.Guard
	settings Settings
}

// NewNoteUseCase создает новый экземпляр NoteUseCase. Удаление файлов из
// хранилища выполняется через cleanup, nil означает настройки по умолчанию.
func NewNoteUseCase(
	notes repositories.NoteRepository,
	storage services.ObjectStorage,
	linkCacheStore cache.Cache,
	cleanup *resilience.Guard,
	settings Settings,
) *NoteUseCase {
	if cleanup == nil {
		cleanup = resilience.NewDefaultGuard("object-storage")
	}
	return &NoteUseCase{
		notes:    notes,
		storage:  storage,
		links:    linkCache{cache: linkCacheStore},
		cleanup:  cleanup,
		settings: settings.withDefaults(),
	}
}

// CreateNote создает новую заметку владельца ownerID.
func (uc *NoteUseCase) CreateNote(ctx context.Context, ownerID string, input NoteInput) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteUseCase.CreateNote"))

	now := uc.settings.now()
	note, err := entities.NewNote(ownerID, input.Title, input.Content, input.Tags, now)
	if err != nil {
		return nil, err
	}
	note.Pinned = input.Pinned
	if input.ReminderAt != nil {
		if err := note.ScheduleReminder(*input.ReminderAt, now); err != nil {
			return nil, err
		}
	}

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	id, err := uc.notes.Create(storeCtx, note)
	if err != nil {
		return nil, storeError(errCtxCreateNote, err)
	}
	note.ID = id

	log.Info(ctx, LogNoteCreated, zap.String("noteID", id), zap.String("ownerID", ownerID))
	return note, nil
}

// GetNote возвращает заметку, если у вызывающего есть доступ на чтение.
func (uc *NoteUseCase) GetNote(ctx context.Context, callerID, noteID string) (*NoteView, error) {
	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	note, err := uc.notes.GetByID(storeCtx, noteID)
	if err != nil {
		return nil, storeError(errCtxGetNote, err)
	}

	perm, err := requireRead(note, callerID)
	if err != nil {
		return nil, err
	}
	return &NoteView{Note: note, Permission: perm, IsOwner: note.IsOwner(callerID)}, nil
}

// ListNotes возвращает заметки владельца с фильтрами и пагинацией.
func (uc *NoteUseCase) ListNotes(ctx context.Context, ownerID string, filter repositories.NoteFilter) ([]*entities.Note, int, error) {
	filter = NormalizeListFilter(filter)

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	notes, total, err := uc.notes.ListByOwner(storeCtx, ownerID, filter)
	if err != nil {
		return nil, 0, storeError(errCtxListNotes, err)
	}
	return notes, total, nil
}

// NormalizeListFilter приводит limit и offset к допустимым значениям.
func NormalizeListFilter(filter repositories.NoteFilter) repositories.NoteFilter {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}

// UpdateNote применяет частичное изменение. Владелец меняет любые поля,
// получатель с правом edit только title, content и tags.
func (uc *NoteUseCase) UpdateNote(ctx context.Context, callerID, noteID string, patch NotePatch) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteUseCase.UpdateNote"))

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	now := uc.settings.now()
	note, err := uc.notes.Mutate(storeCtx, noteID, func(n *entities.Note) error {
		if err := requireEdit(n, callerID); err != nil {
			return err
		}
		if !n.IsOwner(callerID) && patch.touchesOwnerFields() {
			return entities.ErrEditorRestricted
		}

		var tags []string
		if patch.Tags != nil {
			tags = *patch.Tags
		}
		if err := n.ApplyContent(patch.Title, patch.Content, tags, patch.Tags != nil); err != nil {
			return err
		}
		if patch.Pinned != nil {
			n.Pinned = *patch.Pinned
		}
		if patch.Archived != nil {
			n.Archived = *patch.Archived
		}
		switch {
		case patch.ClearReminder:
			n.ClearReminder()
		case patch.ReminderAt != nil:
			if err := n.ScheduleReminder(*patch.ReminderAt, now); err != nil {
				return err
			}
		}
		n.Touch(now)
		return nil
	})
	if err != nil {
		return nil, storeError(errCtxUpdateNote, err)
	}

	uc.links.invalidate(ctx, note.Link.TokenHash)
	log.Info(ctx, LogNoteUpdated, zap.String("noteID", noteID), zap.String("callerID", callerID))
	return note, nil
}

// DeleteNote удаляет заметку владельца. Снимки удаляются каскадом,
// файлы вложений и кэш ссылки очищаются без влияния на результат.
func (uc *NoteUseCase) DeleteNote(ctx context.Context, callerID, noteID string) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteUseCase.DeleteNote"))

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	note, err := uc.notes.GetByID(storeCtx, noteID)
	if err != nil {
		return storeError(errCtxDeleteNote, err)
	}
	if err := requireOwner(note, callerID); err != nil {
		return err
	}

	if err := uc.notes.Delete(storeCtx, noteID); err != nil {
		return storeError(errCtxDeleteNote, err)
	}
	log.Info(ctx, LogNoteDeleted, zap.String("noteID", noteID))

	uc.links.invalidate(ctx, note.Link.TokenHash)
	for _, a := range note.Attachments {
		uc.deleteObject(ctx, a.StorageID)
	}
	return nil
}

// AddAttachment загружает файл в хранилище и прикрепляет его к заметке.
func (uc *NoteUseCase) AddAttachment(ctx context.Context, callerID, noteID string, file FileUpload) (*entities.Attachment, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteUseCase.AddAttachment"))

	if len(file.Data) == 0 {
		return nil, entities.ErrEmptyAttachment
	}
	if len(file.Data) > entities.MaxAttachmentSize {
		return nil, entities.ErrAttachmentTooLarge
	}

	storeCtx, cancel := uc.settings.storeContext(ctx)
	note, err := uc.notes.GetByID(storeCtx, noteID)
	cancel()
	if err != nil {
		return nil, storeError(errCtxAddAttachment, err)
	}
	if err := requireOwner(note, callerID); err != nil {
		return nil, err
	}

	attachmentID := uuid.NewString()
	name := path.Base("/" + file.Name)
	key := fmt.Sprintf("notes/%s/%s/%s", noteID, attachmentID, name)

	stored, err := uc.storage.Put(ctx, key, file.ContentType, file.Data)
	if err != nil {
		log.Error(ctx, LogAttachmentUploadFailed, zap.String("noteID", noteID), zap.Error(err))
		return nil, entities.Unavailable(errCtxAddAttachment, err)
	}

	attachment := entities.Attachment{
		ID:          attachmentID,
		URL:         stored.URL,
		StorageID:   stored.StorageID,
		Kind:        entities.KindForContentType(file.ContentType),
		Name:        name,
		Size:        int64(len(file.Data)),
		ContentType: file.ContentType,
		UploadedAt:  uc.settings.now(),
	}

	storeCtx, cancel = uc.settings.storeContext(ctx)
	defer cancel()

	updated, err := uc.notes.Mutate(storeCtx, noteID, func(n *entities.Note) error {
		if err := requireOwner(n, callerID); err != nil {
			return err
		}
		n.AddAttachment(attachment)
		n.Touch(attachment.UploadedAt)
		return nil
	})
	if err != nil {
		uc.deleteObject(ctx, stored.StorageID)
		return nil, storeError(errCtxAddAttachment, err)
	}

	uc.links.invalidate(ctx, updated.Link.TokenHash)
	log.Info(ctx, LogAttachmentAdded, zap.String("noteID", noteID), zap.String("attachmentID", attachmentID))
	return &attachment, nil
}

// RemoveAttachment открепляет вложение и удаляет файл из хранилища.
func (uc *NoteUseCase) RemoveAttachment(ctx context.Context, callerID, noteID, attachmentID string) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteUseCase.RemoveAttachment"))

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	var removed entities.Attachment
	note, err := uc.notes.Mutate(storeCtx, noteID, func(n *entities.Note) error {
		if err := requireOwner(n, callerID); err != nil {
			return err
		}
		a, err := n.RemoveAttachment(attachmentID)
		if err != nil {
			return err
		}
		removed = a
		n.Touch(uc.settings.now())
		return nil
	})
	if err != nil {
		return storeError(errCtxRemoveAttachment, err)
	}

	uc.links.invalidate(ctx, note.Link.TokenHash)
	uc.deleteObject(ctx, removed.StorageID)
	log.Info(ctx, LogAttachmentRemoved, zap.String("noteID", noteID), zap.String("attachmentID", attachmentID))
	return nil
}

// deleteObject удаляет файл из хранилища. Ошибка только логируется.
func (uc *NoteUseCase) deleteObject(ctx context.Context, storageID string) {
	if storageID == "" {
		return
	}
	err := uc.cleanup.Execute(ctx, "delete", func(ctx context.Context) error {
		return uc.storage.Delete(ctx, storageID)
	})
	if err != nil {
		logger.Log(ctx).Warn(ctx, LogAttachmentCleanupFailed,
			zap.String("storageID", storageID), zap.Error(err))
	}
}
