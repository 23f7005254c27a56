package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Options настройки HTTP-сервера
type Options struct {
	JWTSecret []byte
	// Limiter ограничивает создание бронирований, nil отключает лимит
	Limiter RateLimiter
}

// NewServer собирает fiber-приложение со всеми маршрутами /api/v1
func NewServer(h *Handler, opts Options, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "tutorconnect",
		ErrorHandler:          errorHandler(logger),
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1", Protected(opts.JWTSecret), WithActor())

	tutors := api.Group("/tutors/:tutorId")
	tutors.Get("/availability", h.GetAvailability)
	tutors.Post("/availability", h.CreateAvailabilitySlot)
	tutors.Put("/availability", h.ReplaceAvailability)
	tutors.Get("/bookings", h.ListTutorBookings)

	bookings := api.Group("/bookings")
	bookings.Post("", RateLimit(opts.Limiter, logger), h.CreateBooking)
	bookings.Get("/me", h.ListMyBookings)
	bookings.Get("/:bookingId", h.GetBooking)
	bookings.Post("/:bookingId/confirm", h.ConfirmBooking)
	bookings.Post("/:bookingId/cancel", h.CancelBooking)
	bookings.Post("/:bookingId/reschedule", h.RescheduleBooking)

	return app
}

// requestLogger пишет итоговый статус ответа. Ошибку цепочки обрабатывает сам через
// ErrorHandler приложения, иначе статус ещё не выставлен.
func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if handlerErr := c.App().Config().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.Debug("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)
		return nil
	}
}
