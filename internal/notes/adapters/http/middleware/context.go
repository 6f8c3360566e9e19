// Package middleware содержит промежуточное ПО для HTTP обработчиков.
package middleware

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"notekeeper/pkg/logger"
)

// Ключи Locals.
const (
	LocalsContext = "requestContext"
	LocalsUserID  = "userID"
)

// HeaderRequestID - заголовок с идентификатором запроса.
const HeaderRequestID = "X-Request-ID"

// RequestContext возвращает контекст запроса с request_id.
func RequestContext(c fiber.Ctx) context.Context {
	if ctx, ok := c.Locals(LocalsContext).(context.Context); ok {
		return ctx
	}
	return logger.NewRequestIDContext(context.Background(), c.Get(HeaderRequestID))
}

// UserID возвращает идентификатор аутентифицированного пользователя.
func UserID(c fiber.Ctx) string {
	id, _ := c.Locals(LocalsUserID).(string)
	return id
}

// NewRequestIDMiddleware создает контекст запроса с request_id из заголовка
// или новым идентификатором и возвращает его клиенту.
func NewRequestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		requestID := c.Get(HeaderRequestID)
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		c.Locals(LocalsContext, logger.NewRequestIDContext(context.Background(), requestID))
		c.Set(HeaderRequestID, requestID)
		return c.Next()
	}
}
