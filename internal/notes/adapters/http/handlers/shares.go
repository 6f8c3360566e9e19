package handlers

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notekeeper/internal/notes/adapters/http/dto"
	"notekeeper/pkg/logger"
)

// GrantAccess обрабатывает выдачу доступа к заметке по email.
func (h *Handler) GrantAccess(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.GrantAccess"))

	var req dto.GrantRequest
	if err := c.Bind().Body(&req); err != nil {
		log.Debug(ctx, ErrMsgInvalidRequestBody, zap.Error(err))
		return badRequest(c, ErrMsgInvalidRequestBody)
	}

	result, err := h.sharing.Grant(ctx, userID, c.Params("note_id"), req.Email, req.Permission)
	if err != nil {
		log.Debug(ctx, "failed to grant access", zap.Error(err))
		return handleError(c, err)
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return sendJSON(c, status, dto.GrantResponse{
		Grant:   dto.NewShareGrant(result.Grant, &result.Grantee),
		Created: result.Created,
	})
}

// ListGrants обрабатывает запрос владельца на список приглашений.
func (h *Handler) ListGrants(c fiber.Ctx) error {
	ctx, userID := requestScope(c)

	views, err := h.sharing.ListGrants(ctx, userID, c.Params("note_id"))
	if err != nil {
		logger.Log(ctx).Debug(ctx, "failed to list grants", zap.Error(err))
		return handleError(c, err)
	}

	out := dto.GrantsResponse{Grants: make([]dto.ShareGrant, 0, len(views))}
	for _, v := range views {
		out.Grants = append(out.Grants, dto.NewShareGrant(v.Grant, v.Grantee))
	}
	return sendJSON(c, fiber.StatusOK, out)
}

// RevokeAccess обрабатывает отзыв доступа пользователя.
func (h *Handler) RevokeAccess(c fiber.Ctx) error {
	ctx, userID := requestScope(c)

	if err := h.sharing.Revoke(ctx, userID, c.Params("note_id"), c.Params("user_id")); err != nil {
		logger.Log(ctx).Debug(ctx, "failed to revoke access", zap.Error(err))
		return handleError(c, err)
	}
	return sendNoContent(c)
}

// RespondToGrant обрабатывает ответ получателя на приглашение.
func (h *Handler) RespondToGrant(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.RespondToGrant"))

	var req dto.RespondRequest
	if err := c.Bind().Body(&req); err != nil {
		log.Debug(ctx, ErrMsgInvalidRequestBody, zap.Error(err))
		return badRequest(c, ErrMsgInvalidRequestBody)
	}

	if err := h.sharing.Respond(ctx, userID, c.Params("note_id"), req.Decision); err != nil {
		log.Debug(ctx, "failed to respond to grant", zap.Error(err))
		return handleError(c, err)
	}
	return sendNoContent(c)
}

// ListPending обрабатывает запрос на список ожидающих приглашений.
func (h *Handler) ListPending(c fiber.Ctx) error {
	ctx, userID := requestScope(c)

	shared, err := h.sharing.ListPending(ctx, userID)
	if err != nil {
		logger.Log(ctx).Warn(ctx, "failed to list pending shares", zap.Error(err))
		return handleError(c, err)
	}
	return sendJSON(c, fiber.StatusOK, dto.NewSharedNotes(shared, userID))
}

// ListAccepted обрабатывает запрос на список принятых заметок.
func (h *Handler) ListAccepted(c fiber.Ctx) error {
	ctx, userID := requestScope(c)

	shared, err := h.sharing.ListSharedAccepted(ctx, userID)
	if err != nil {
		logger.Log(ctx).Warn(ctx, "failed to list accepted shares", zap.Error(err))
		return handleError(c, err)
	}
	return sendJSON(c, fiber.StatusOK, dto.NewSharedNotes(shared, userID))
}
