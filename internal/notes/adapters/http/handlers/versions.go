package handlers

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notekeeper/internal/notes/adapters/http/dto"
	"notekeeper/pkg/logger"
)

// CreateVersion сохраняет снимок заметки.
func (h *Handler) CreateVersion(c fiber.Ctx) error {
	ctx, userID := requestScope(c)

	version, err := h.versions.Snapshot(ctx, userID, c.Params("note_id"))
	if err != nil {
		logger.Log(ctx).Debug(ctx, "failed to snapshot note", zap.Error(err))
		return handleError(c, err)
	}
	return sendJSON(c, fiber.StatusCreated, dto.NewVersion(version))
}

// ListVersions возвращает снимки заметки.
func (h *Handler) ListVersions(c fiber.Ctx) error {
	ctx, userID := requestScope(c)

	versions, err := h.versions.List(ctx, userID, c.Params("note_id"))
	if err != nil {
		logger.Log(ctx).Debug(ctx, "failed to list versions", zap.Error(err))
		return handleError(c, err)
	}
	return sendJSON(c, fiber.StatusOK, dto.NewVersions(versions))
}

// GetVersion возвращает снимок заметки.
func (h *Handler) GetVersion(c fiber.Ctx) error {
	ctx, userID := requestScope(c)

	version, err := h.versions.Get(ctx, userID, c.Params("note_id"), c.Params("version_id"))
	if err != nil {
		logger.Log(ctx).Debug(ctx, "failed to get version", zap.Error(err))
		return handleError(c, err)
	}
	return sendJSON(c, fiber.StatusOK, dto.NewVersion(version))
}

// RestoreVersion восстанавливает заметку из снимка.
func (h *Handler) RestoreVersion(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.RestoreVersion"))

	note, err := h.versions.Restore(ctx, userID, c.Params("note_id"), c.Params("version_id"))
	if err != nil {
		log.Debug(ctx, "failed to restore version", zap.Error(err))
		return handleError(c, err)
	}
	return sendJSON(c, fiber.StatusOK, dto.NewNote(note, userID))
}
