package httpapi

import (
	"errors"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// statusOf HTTP-код для типа ошибки
func statusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation, apperror.KindInvalidTimeFormat, apperror.KindInvalidTimeRange:
		return fiber.StatusBadRequest
	case apperror.KindBookingWindow, apperror.KindOutsideAvailability:
		return fiber.StatusUnprocessableEntity
	case apperror.KindSlotConflict, apperror.KindInvalidTransition:
		return fiber.StatusConflict
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler единый формат ошибок: {"status":"error","code":...,"kind":...,"message":...}
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		kind := apperror.KindPersistence
		message := "internal server error"

		var appErr *apperror.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			kind = appErr.Kind
			code = statusOf(kind)
			message = appErr.Error()
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			kind = ""
			message = fiberErr.Message
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"status":  "error",
			"code":    code,
			"kind":    kind,
			"message": message,
		})
	}
}
