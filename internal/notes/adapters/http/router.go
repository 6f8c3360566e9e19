// Package http содержит компоненты HTTP сервера API заметок.
package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notekeeper/internal/notes/adapters/http/dto"
	"notekeeper/internal/notes/adapters/http/handlers"
	"notekeeper/internal/notes/adapters/http/middleware"
	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/services"
)

// BodyLimit вмещает вложение максимального размера вместе с multipart-обвязкой.
const BodyLimit = entities.MaxAttachmentSize + 1<<20

// ServerConfig - параметры fiber.App.
type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer создает fiber.App с обработчиком ошибок в формате API.
func NewServer(cfg ServerConfig) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "notekeeper",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BodyLimit:    BodyLimit,
		ErrorHandler: errorHandler,
	})
}

// errorHandler отвечает на ошибки fiber (неизвестный метод, превышение лимита тела).
func errorHandler(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	kind := string(entities.KindInternal)
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
		switch {
		case status == fiber.StatusNotFound:
			kind = string(entities.KindNotFound)
		case status < fiber.StatusInternalServerError:
			kind = string(entities.KindInvalidArgument)
		}
	}

	return c.Status(status).JSON(dto.ErrorResponse{Error: dto.ErrorBody{Kind: kind, Message: message}})
}

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(app *fiber.App, h *handlers.Handler, tokens services.TokenService) {
	// Middleware для всех запросов.
	app.Use(middleware.NewRequestIDMiddleware())
	app.Use(middleware.NewLoggerMiddleware())
	app.Use(middleware.NewMetricsMiddleware())
	app.Use(middleware.NewRecoveryMiddleware())

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiV1 := app.Group("/api/v1")

	// Публичные ссылки не требуют авторизации.
	apiV1.Get("/public/links/:token", h.ResolveLink)

	auth := middleware.NewAuthMiddleware(tokens)

	notes := apiV1.Group("/notes", auth)
	notes.Post("/", h.CreateNote)
	notes.Get("/", h.ListNotes)
	notes.Get("/:note_id", h.GetNote)
	notes.Patch("/:note_id", h.UpdateNote)
	notes.Delete("/:note_id", h.DeleteNote)

	notes.Post("/:note_id/attachments", h.AddAttachment)
	notes.Delete("/:note_id/attachments/:attachment_id", h.RemoveAttachment)

	notes.Get("/:note_id/shares", h.ListGrants)
	notes.Post("/:note_id/shares", h.GrantAccess)
	notes.Post("/:note_id/shares/respond", h.RespondToGrant)
	notes.Delete("/:note_id/shares/:user_id", h.RevokeAccess)

	notes.Post("/:note_id/link", h.IssueLink)
	notes.Delete("/:note_id/link", h.RevokeLink)

	notes.Post("/:note_id/versions", h.CreateVersion)
	notes.Get("/:note_id/versions", h.ListVersions)
	notes.Get("/:note_id/versions/:version_id", h.GetVersion)
	notes.Post("/:note_id/versions/:version_id/restore", h.RestoreVersion)

	shares := apiV1.Group("/shares", auth)
	shares.Get("/pending", h.ListPending)
	shares.Get("/accepted", h.ListAccepted)

	// Обработчик для несуществующих маршрутов.
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: dto.ErrorBody{Kind: string(entities.KindNotFound), Message: "route not found"},
		})
	})
}
