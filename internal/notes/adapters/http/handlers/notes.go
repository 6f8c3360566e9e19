package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notekeeper/internal/notes/adapters/http/dto"
	"notekeeper/internal/notes/app"
	"notekeeper/internal/notes/ports/repositories"
	"notekeeper/pkg/logger"
)

// Константы сообщений для логирования.
const (
	LogHandlerCreateNote = "handling create note request"
	LogHandlerGetNote    = "handling get note request"
	LogHandlerListNotes  = "handling list notes request"
	LogHandlerUpdateNote = "handling update note request"
	LogHandlerDeleteNote = "handling delete note request"
)

// CreateNote обрабатывает запрос на создание новой заметки.
func (h *Handler) CreateNote(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.CreateNote"))
	log.Debug(ctx, LogHandlerCreateNote)

	var req dto.CreateNoteRequest
	if err := c.Bind().Body(&req); err != nil {
		log.Debug(ctx, ErrMsgInvalidRequestBody, zap.Error(err))
		return badRequest(c, ErrMsgInvalidRequestBody)
	}

	note, err := h.notes.CreateNote(ctx, userID, app.NoteInput{
		Title:      req.Title,
		Content:    req.Content,
		Tags:       req.Tags,
		Pinned:     req.Pinned,
		ReminderAt: req.ReminderAt,
	})
	if err != nil {
		log.Warn(ctx, "failed to create note", zap.Error(err))
		return handleError(c, err)
	}

	return sendJSON(c, fiber.StatusCreated, dto.NewNote(note, userID))
}

// GetNote обрабатывает запрос на получение заметки по ID.
func (h *Handler) GetNote(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.GetNote"))
	log.Debug(ctx, LogHandlerGetNote)

	view, err := h.notes.GetNote(ctx, userID, c.Params("note_id"))
	if err != nil {
		log.Debug(ctx, "failed to get note", zap.Error(err))
		return handleError(c, err)
	}

	return sendJSON(c, fiber.StatusOK, dto.NewNote(view.Note, userID))
}

// ListNotes обрабатывает запрос на получение списка заметок владельца.
func (h *Handler) ListNotes(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.ListNotes"))
	log.Debug(ctx, LogHandlerListNotes)

	filter, err := parseNoteFilter(c)
	if err != nil {
		log.Debug(ctx, ErrMsgInvalidQuery, zap.Error(err))
		return badRequest(c, ErrMsgInvalidQuery+": "+err.Error())
	}
	filter = app.NormalizeListFilter(filter)

	notes, total, err := h.notes.ListNotes(ctx, userID, filter)
	if err != nil {
		log.Warn(ctx, "failed to list notes", zap.Error(err))
		return handleError(c, err)
	}

	return sendJSON(c, fiber.StatusOK, dto.ListNotesResponse{
		Notes:  dto.NewNotes(notes, userID),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// UpdateNote обрабатывает запрос на частичное обновление заметки.
func (h *Handler) UpdateNote(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.UpdateNote"))
	log.Debug(ctx, LogHandlerUpdateNote)

	var req dto.UpdateNoteRequest
	if err := c.Bind().Body(&req); err != nil {
		log.Debug(ctx, ErrMsgInvalidRequestBody, zap.Error(err))
		return badRequest(c, ErrMsgInvalidRequestBody)
	}

	note, err := h.notes.UpdateNote(ctx, userID, c.Params("note_id"), app.NotePatch{
		Title:         req.Title,
		Content:       req.Content,
		Tags:          req.Tags,
		Pinned:        req.Pinned,
		Archived:      req.Archived,
		ReminderAt:    req.ReminderAt,
		ClearReminder: req.ClearReminder,
	})
	if err != nil {
		log.Debug(ctx, "failed to update note", zap.Error(err))
		return handleError(c, err)
	}

	return sendJSON(c, fiber.StatusOK, dto.NewNote(note, userID))
}

// DeleteNote обрабатывает запрос на удаление заметки.
func (h *Handler) DeleteNote(c fiber.Ctx) error {
	ctx, userID := requestScope(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.DeleteNote"))
	log.Debug(ctx, LogHandlerDeleteNote)

	if err := h.notes.DeleteNote(ctx, userID, c.Params("note_id")); err != nil {
		log.Debug(ctx, "failed to delete note", zap.Error(err))
		return handleError(c, err)
	}

	return sendNoContent(c)
}

func parseNoteFilter(c fiber.Ctx) (repositories.NoteFilter, error) {
	filter := repositories.NoteFilter{
		Tag:   c.Query("tag"),
		Query: c.Query("q"),
	}

	var err error
	if filter.Archived, err = optionalBool(c.Query("archived")); err != nil {
		return filter, err
	}
	if filter.Pinned, err = optionalBool(c.Query("pinned")); err != nil {
		return filter, err
	}
	if v := c.Query("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			return filter, err
		}
	}
	if v := c.Query("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

func optionalBool(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
