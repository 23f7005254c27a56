package handlers

import (
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/controller/state"
	"github.com/Freeeeeet/tutorconnect/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	users        service.UserDirectory
	availability *service.AvailabilityService
	bookings     *service.BookingService
	stateManager *state.Manager
	now          func() time.Time
	logger       *zap.Logger
}

func NewHandlers(
	users service.UserDirectory,
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	stateManager *state.Manager,
	now func() time.Time,
	logger *zap.Logger,
) *Handlers {
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		users:        users,
		availability: availability,
		bookings:     bookings,
		stateManager: stateManager,
		now:          now,
		logger:       logger,
	}
}

// Bookings сервис бронирований для обработчиков callback
func (h *Handlers) Bookings() *service.BookingService {
	return h.bookings
}

// Logger общий логгер контроллера
func (h *Handlers) Logger() *zap.Logger {
	return h.logger
}
