package handlers

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notekeeper/internal/notes/adapters/http/dto"
	"notekeeper/internal/notes/app"
	"notekeeper/internal/notes/domain/entities"
	"notekeeper/pkg/logger"
)

// FormFileField - поле multipart-формы с файлом.
const FormFileField = "file"

// AddAttachment обрабатывает загрузку вложения.
func (h *Handler) AddAttachment(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.AddAttachment"))

	header, err := c.FormFile(FormFileField)
	if err != nil {
		log.Debug(ctx, ErrMsgMissingFile, zap.Error(err))
		return badRequest(c, ErrMsgMissingFile)
	}
	if header.Size > entities.MaxAttachmentSize {
		return handleError(c, entities.ErrAttachmentTooLarge)
	}

	file, err := header.Open()
	if err != nil {
		log.Error(ctx, ErrMsgReadFile, zap.Error(err))
		return handleError(c, fmt.Errorf("%s: %w", ErrMsgReadFile, err))
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, entities.MaxAttachmentSize+1))
	if err != nil {
		log.Error(ctx, ErrMsgReadFile, zap.Error(err))
		return handleError(c, fmt.Errorf("%s: %w", ErrMsgReadFile, err))
	}

	contentType := header.Header.Get(fiber.HeaderContentType)
	if contentType == "" || contentType == fiber.MIMEOctetStream {
		if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
			contentType = byExt
		}
	}

	attachment, err := h.notes.AddAttachment(ctx, userID, c.Params("note_id"), app.FileUpload{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		log.Debug(ctx, "failed to add attachment", zap.Error(err))
		return handleError(c, err)
	}

	return sendJSON(c, fiber.StatusCreated, dto.NewAttachment(*attachment))
}

// RemoveAttachment обрабатывает удаление вложения.
func (h *Handler) RemoveAttachment(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.RemoveAttachment"))

	if err := h.notes.RemoveAttachment(ctx, userID, c.Params("note_id"), c.Params("attachment_id")); err != nil {
		log.Debug(ctx, "failed to remove attachment", zap.Error(err))
		return handleError(c, err)
	}

	return sendNoContent(c)
}
