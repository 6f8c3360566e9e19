package app

import (
	"context"

	"go.uber.org/zap"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/repositories"
	"notekeeper/internal/notes/ports/services"
	"notekeeper/pkg/logger"
)

// SharingUseCase управляет приглашениями к заметкам.
type SharingUseCase struct {
	notes    repositories.NoteRepository
	users    services.UserDirectory
	settings Settings
}

// NewSharingUseCase создает новый экземпляр SharingUseCase.
func NewSharingUseCase(notes repositories.NoteRepository, users services.UserDirectory, settings Settings) *SharingUseCase {
	return &SharingUseCase{
		notes:    notes,
		users:    users,
		settings: settings.withDefaults(),
	}
}

// GrantResult - итог выдачи доступа.
type GrantResult struct {
	Grant   entities.ShareGrant
	Grantee entities.User
	Created bool
}

// Grant выдает пользователю с email granteeEmail право permission на заметку.
// Новое приглашение создается в статусе pending, у существующего меняется
// только право.
func (uc *SharingUseCase) Grant(ctx context.Context, callerID, noteID, granteeEmail, permission string) (*GrantResult, error) {
	log := logger.Log(ctx).With(zap.String("method", "SharingUseCase.Grant"))

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	var result GrantResult
	_, err := uc.notes.Mutate(storeCtx, noteID, func(n *entities.Note) error {
		// Чужой заметке отвечаем Forbidden до разбора аргументов.
		if err := requireOwner(n, callerID); err != nil {
			return err
		}
		perm, err := entities.ParsePermission(permission)
		if err != nil {
			return err
		}
		email, err := entities.NormalizeEmail(granteeEmail)
		if err != nil {
			return err
		}

		grantee, err := uc.users.FindByEmail(storeCtx, email)
		if err != nil {
			return err
		}

		grant, created, err := n.UpsertGrant(grantee.ID, perm, uc.settings.now())
		if err != nil {
			return err
		}
		result = GrantResult{Grant: grant, Grantee: *grantee, Created: created}
		return nil
	})
	if err != nil {
		return nil, storeError(errCtxGrant, err)
	}

	log.Info(ctx, LogGrantSaved,
		zap.String("noteID", noteID),
		zap.String("granteeID", result.Grant.GranteeID),
		zap.String("permission", string(result.Grant.Permission)),
		zap.Bool("created", result.Created))
	return &result, nil
}

// Respond применяет ответ получателя на приглашение.
func (uc *SharingUseCase) Respond(ctx context.Context, callerID, noteID, decision string) error {
	log := logger.Log(ctx).With(zap.String("method", "SharingUseCase.Respond"))

	d, err := entities.ParseDecision(decision)
	if err != nil {
		return err
	}

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	_, err = uc.notes.Mutate(storeCtx, noteID, func(n *entities.Note) error {
		return n.Respond(callerID, d)
	})
	if err != nil {
		return storeError(errCtxRespond, err)
	}

	log.Info(ctx, LogGrantResponded,
		zap.String("noteID", noteID), zap.String("granteeID", callerID), zap.String("decision", string(d)))
	return nil
}

// ListPending возвращает заметки с ожидающими ответа приглашениями пользователя.
func (uc *SharingUseCase) ListPending(ctx context.Context, userID string) ([]repositories.SharedNote, error) {
	return uc.listShared(ctx, userID, entities.GrantPending)
}

// ListSharedAccepted возвращает заметки, доступ к которым пользователь принял.
func (uc *SharingUseCase) ListSharedAccepted(ctx context.Context, userID string) ([]repositories.SharedNote, error) {
	return uc.listShared(ctx, userID, entities.GrantAccepted)
}

func (uc *SharingUseCase) listShared(ctx context.Context, userID string, status entities.GrantStatus) ([]repositories.SharedNote, error) {
	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	shared, err := uc.notes.ListShared(storeCtx, userID, status)
	if err != nil {
		return nil, storeError(errCtxListShared, err)
	}
	return shared, nil
}

// GrantView - приглашение вместе с данными получателя.
type GrantView struct {
	Grant   entities.ShareGrant
	Grantee *entities.User
}

// ListGrants возвращает приглашения заметки. Доступно только владельцу.
func (uc *SharingUseCase) ListGrants(ctx context.Context, callerID, noteID string) ([]GrantView, error) {
	log := logger.Log(ctx).With(zap.String("method", "SharingUseCase.ListGrants"))

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	note, err := uc.notes.GetByID(storeCtx, noteID)
	if err != nil {
		return nil, storeError(errCtxListGrants, err)
	}
	if err := requireOwner(note, callerID); err != nil {
		return nil, err
	}

	views := make([]GrantView, 0, len(note.Shares))
	for _, g := range note.Shares {
		view := GrantView{Grant: g}
		user, err := uc.users.FindByID(storeCtx, g.GranteeID)
		if err != nil {
			log.Warn(ctx, LogGranteeLookupFailed, zap.String("granteeID", g.GranteeID), zap.Error(err))
		} else {
			view.Grantee = user
		}
		views = append(views, view)
	}
	return views, nil
}

// Revoke отзывает доступ пользователя. Повторный отзыв не ошибка.
func (uc *SharingUseCase) Revoke(ctx context.Context, callerID, noteID, granteeID string) error {
	log := logger.Log(ctx).With(zap.String("method", "SharingUseCase.Revoke"))

	storeCtx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	removed := false
	_, err := uc.notes.Mutate(storeCtx, noteID, func(n *entities.Note) error {
		if err := requireOwner(n, callerID); err != nil {
			return err
		}
		removed = n.RemoveGrant(granteeID)
		return nil
	})
	if err != nil {
		return storeError(errCtxRevoke, err)
	}

	log.Info(ctx, LogGrantRevoked,
		zap.String("noteID", noteID), zap.String("granteeID", granteeID), zap.Bool("removed", removed))
	return nil
}
