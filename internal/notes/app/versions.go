package app

import (
	"context"

	"go.uber.org/zap"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/cache"
	"notekeeper/internal/notes/ports/repositories"
	"notekeeper/pkg/logger"
)

// VersionUseCase управляет архивом снимков заметок.
type VersionUseCase struct {
	notes    repositories.NoteRepository
	versions repositories.VersionRepository
	links    linkCache
	settings Settings
}

// NewVersionUseCase создает новый экземпляр VersionUseCase.
func NewVersionUseCase(
	notes repositories.NoteRepository,
	versions repositories.VersionRepository,
	linkCacheStore cache.Cache,
	settings Settings,
) *VersionUseCase {
	return &VersionUseCase{
		notes:    notes,
		versions: versions,
		links:    linkCache{cache: linkCacheStore},
		settings: settings.withDefaults(),
	}
}

// Snapshot сохраняет текущее содержимое заметки. Нужно право edit.
func (uc *VersionUseCase) Snapshot(ctx context.Context, callerID, noteID string) (*entities.Version, error) {
	log := logger.Log(ctx).With(zap.String("method", "VersionUseCase.Snapshot"))

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	note, err := uc.notes.GetByID(storeCtx, noteID)
	if err != nil {
		return nil, storeError(errCtxSnapshot, err)
	}
	if err := requireEdit(note, callerID); err != nil {
		return nil, err
	}

	version, err := uc.versions.Append(storeCtx, entities.NewVersion(note, callerID), entities.MaxVersionsPerNote)
	if err != nil {
		return nil, storeError(errCtxSnapshot, err)
	}

	log.Info(ctx, LogVersionCreated, zap.String("noteID", noteID), zap.Int("sequence", version.Sequence))
	return version, nil
}

// List возвращает снимки заметки, новые первыми. Нужно право чтения.
func (uc *VersionUseCase) List(ctx context.Context, callerID, noteID string) ([]entities.VersionSummary, error) {
	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	note, err := uc.notes.GetByID(storeCtx, noteID)
	if err != nil {
		return nil, storeError(errCtxListVersions, err)
	}
	if _, err := requireRead(note, callerID); err != nil {
		return nil, err
	}

	versions, err := uc.versions.List(storeCtx, noteID, entities.MaxVersionsPerNote)
	if err != nil {
		return nil, storeError(errCtxListVersions, err)
	}
	return versions, nil
}

// Get возвращает снимок заметки. Нужно право чтения.
func (uc *VersionUseCase) Get(ctx context.Context, callerID, noteID, versionID string) (*entities.Version, error) {
	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	note, err := uc.notes.GetByID(storeCtx, noteID)
	if err != nil {
		return nil, storeError(errCtxGetVersion, err)
	}
	if _, err := requireRead(note, callerID); err != nil {
		return nil, err
	}

	version, err := uc.versions.Get(storeCtx, noteID, versionID)
	if err != nil {
		return nil, storeError(errCtxGetVersion, err)
	}
	return version, nil
}

// Restore возвращает заметке title, content и tags снимка. Перед этим
// текущее состояние сохраняется новым снимком. Доступно только владельцу.
func (uc *VersionUseCase) Restore(ctx context.Context, callerID, noteID, versionID string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "VersionUseCase.Restore"))

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	var checkpoint *entities.Version
	note, err := uc.notes.Mutate(storeCtx, noteID, func(n *entities.Note) error {
		if err := requireOwner(n, callerID); err != nil {
			return err
		}

		target, err := uc.versions.Get(storeCtx, noteID, versionID)
		if err != nil {
			return err
		}

		checkpoint, err = uc.versions.Append(storeCtx, entities.NewVersion(n, callerID), entities.MaxVersionsPerNote)
		if err != nil {
			return err
		}

		n.RestoreFrom(target)
		n.Touch(uc.settings.now())
		return nil
	})
	if err != nil {
		return nil, storeError(errCtxRestore, err)
	}

	uc.links.invalidate(ctx, note.Link.TokenHash)
	log.Info(ctx, LogVersionRestored,
		zap.String("noteID", noteID),
		zap.String("versionID", versionID),
		zap.Int("checkpointSequence", checkpoint.Sequence))
	return note, nil
}
