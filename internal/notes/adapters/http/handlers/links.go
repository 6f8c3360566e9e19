package handlers

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notekeeper/internal/notes/adapters/http/dto"
	"notekeeper/pkg/logger"
)

// PublicLinkPrefix - путь, по которому разрешаются публичные ссылки.
const PublicLinkPrefix = "/api/v1/public/links/"

// IssueLink обрабатывает выпуск публичной ссылки.
func (h *Handler) IssueLink(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.IssueLink"))

	var req dto.IssueLinkRequest
	if err := bindOptionalBody(c, &req); err != nil {
		log.Debug(ctx, ErrMsgInvalidRequestBody, zap.Error(err))
		return badRequest(c, ErrMsgInvalidRequestBody)
	}

	link, err := h.links.Issue(ctx, userID, c.Params("note_id"), req.TTLHours)
	if err != nil {
		log.Debug(ctx, "failed to issue link", zap.Error(err))
		return handleError(c, err)
	}

	return sendJSON(c, fiber.StatusCreated, dto.LinkResponse{
		Token:     link.Token,
		Path:      PublicLinkPrefix + link.Token,
		ExpiresAt: link.ExpiresAt,
	})
}

// RevokeLink обрабатывает отзыв публичной ссылки.
func (h *Handler) RevokeLink(c fiber.Ctx) error {
	ctx, userID := requestScope(c)

	if err := h.links.Revoke(ctx, userID, c.Params("note_id")); err != nil {
		logger.Log(ctx).Debug(ctx, "failed to revoke link", zap.Error(err))
		return handleError(c, err)
	}
	return sendNoContent(c)
}

// ResolveLink открывает заметку по публичной ссылке. Аутентификация не нужна.
func (h *Handler) ResolveLink(c fiber.Ctx) error {
	ctx, _ := requestScope(c)

	public, err := h.links.Resolve(ctx, c.Params("token"))
	if err != nil {
		logger.Log(ctx).Debug(ctx, "failed to resolve link", zap.Error(err))
		return handleError(c, err)
	}
	return sendJSON(c, fiber.StatusOK, dto.NewPublicNote(public))
}
