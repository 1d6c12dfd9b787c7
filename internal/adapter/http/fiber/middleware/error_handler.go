package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
)

func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
		case errors.Is(err, domain.ErrUnknownMenuItem):
			code = fiber.StatusNotFound
		case errors.Is(err, domain.ErrInvalidTransition):
			code = fiber.StatusConflict
		case errors.Is(err, domain.ErrSessionClosed):
			code = fiber.StatusGone
		case errors.Is(err, domain.ErrEngineUnavailable), errors.Is(err, domain.ErrExternalActionFailed):
			code = fiber.StatusServiceUnavailable
		}

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
