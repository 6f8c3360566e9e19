// Package handlers содержит HTTP-обработчики API заметок.
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"notekeeper/internal/notes/adapters/http/dto"
	"notekeeper/internal/notes/adapters/http/middleware"
	"notekeeper/internal/notes/app"
	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/repositories"
)

// Константы ошибок и сообщений для логирования.
const (
	ErrMsgInvalidRequestBody = "invalid request body"
	ErrMsgInvalidQuery       = "invalid query parameter"
	ErrMsgMissingFile        = "file field is required"
	ErrMsgReadFile           = "failed to read uploaded file"
	ErrMsgInternal           = "internal server error"
	ErrMsgUnavailable        = "service is temporarily unavailable, retry later"

	errSendResponse = "error sending response"
)

// NoteService - сценарии работы с заметками и вложениями.
type NoteService interface {
	CreateNote(ctx context.Context, ownerID string, input app.NoteInput) (*entities.Note, error)
	GetNote(ctx context.Context, callerID, noteID string) (*app.NoteView, error)
	ListNotes(ctx context.Context, ownerID string, filter repositories.NoteFilter) ([]*entities.Note, int, error)
	UpdateNote(ctx context.Context, callerID, noteID string, patch app.NotePatch) (*entities.Note, error)
	DeleteNote(ctx context.Context, callerID, noteID string) error
	AddAttachment(ctx context.Context, callerID, noteID string, file app.FileUpload) (*entities.Attachment, error)
	RemoveAttachment(ctx context.Context, callerID, noteID, attachmentID string) error
}

// SharingService - сценарии совместного доступа.
type SharingService interface {
	Grant(ctx context.Context, callerID, noteID, granteeEmail, permission string) (*app.GrantResult, error)
	Respond(ctx context.Context, callerID, noteID, decision string) error
	ListPending(ctx context.Context, userID string) ([]repositories.SharedNote, error)
	ListSharedAccepted(ctx context.Context, userID string) ([]repositories.SharedNote, error)
	ListGrants(ctx context.Context, callerID, noteID string) ([]app.GrantView, error)
	Revoke(ctx context.Context, callerID, noteID, granteeID string) error
}

// LinkService - сценарии публичных ссылок.
type LinkService interface {
	Issue(ctx context.Context, callerID, noteID string, ttlHours *int) (*app.IssuedLink, error)
	Resolve(ctx context.Context, token string) (*entities.PublicNote, error)
	Revoke(ctx context.Context, callerID, noteID string) error
}

// VersionService - сценарии архива снимков.
type VersionService interface {
	Snapshot(ctx context.Context, callerID, noteID string) (*entities.Version, error)
	List(ctx context.Context, callerID, noteID string) ([]entities.VersionSummary, error)
	Get(ctx context.Context, callerID, noteID, versionID string) (*entities.Version, error)
	Restore(ctx context.Context, callerID, noteID, versionID string) (*entities.Note, error)
}

// Services - зависимости обработчиков.
type Services struct {
	Notes    NoteService
	Sharing  SharingService
	Links    LinkService
	Versions VersionService
}

// Handler обработчик HTTP-запросов API заметок.
type Handler struct {
	notes    NoteService
	sharing  SharingService
	links    LinkService
	versions VersionService
}

// NewHandler создает новый экземпляр обработчика.
func NewHandler(s Services) *Handler {
	return &Handler{
		notes:    s.Notes,
		sharing:  s.Sharing,
		links:    s.Links,
		versions: s.Versions,
	}
}

// StatusFor возвращает HTTP-статус для вида ошибки.
func StatusFor(kind entities.Kind) int {
	switch kind {
	case entities.KindNotFound:
		return fiber.StatusNotFound
	case entities.KindGone:
		return fiber.StatusGone
	case entities.KindForbidden:
		return fiber.StatusForbidden
	case entities.KindInvalidArgument:
		return fiber.StatusBadRequest
	case entities.KindConflict:
		return fiber.StatusConflict
	case entities.KindUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// handleError отправляет ошибку в формате {"error": {"kind", "message"}}.
// Текст внутренних ошибок клиенту не передается.
func handleError(c fiber.Ctx, err error) error {
	kind := entities.KindOf(err)

	var message string
	var domainErr *entities.Error
	switch {
	case kind == entities.KindUnavailable:
		message = ErrMsgUnavailable
	case kind == entities.KindInternal:
		message = ErrMsgInternal
	case errors.As(err, &domainErr):
		message = domainErr.Error()
	default:
		message = err.Error()
	}

	return sendError(c, StatusFor(kind), string(kind), message)
}

func badRequest(c fiber.Ctx, message string) error {
	return sendError(c, fiber.StatusBadRequest, string(entities.KindInvalidArgument), message)
}

func sendError(c fiber.Ctx, status int, kind, message string) error {
	if err := c.Status(status).JSON(dto.ErrorResponse{
		Error: dto.ErrorBody{Kind: kind, Message: message},
	}); err != nil {
		return fmt.Errorf("%s: %w", errSendResponse, err)
	}
	return nil
}

func sendJSON(c fiber.Ctx, status int, body any) error {
	if err := c.Status(status).JSON(body); err != nil {
		return fmt.Errorf("%s: %w", errSendResponse, err)
	}
	return nil
}

func sendNoContent(c fiber.Ctx) error {
	if err := c.SendStatus(fiber.StatusNoContent); err != nil {
		return fmt.Errorf("%s: %w", errSendResponse, err)
	}
	return nil
}

// bindOptionalBody разбирает тело, если оно передано.
func bindOptionalBody(c fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.Bind().Body(out)
}

func requestScope(c fiber.Ctx) (context.Context, string) {
	return middleware.RequestContext(c), middleware.UserID(c)
}
