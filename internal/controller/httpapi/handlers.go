package httpapi

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/Freeeeeet/tutorconnect/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler HTTP-обработчики расписания и бронирований
type Handler struct {
	availability *service.AvailabilityService
	bookings     *service.BookingService
	validate     *validator.Validate
	now          func() time.Time
	logger       *zap.Logger
}

func NewHandler(availability *service.AvailabilityService, bookings *service.BookingService, now func() time.Time, logger *zap.Logger) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		availability: availability,
		bookings:     bookings,
		validate:     validator.New(),
		now:          now,
		logger:       logger,
	}
}

// GetAvailability GET /tutors/:tutorId/availability?tz=
func (h *Handler) GetAvailability(c *fiber.Ctx) error {
	tutorID, err := idParam(c, "tutorId")
	if err != nil {
		return err
	}
	loc, err := h.location(c)
	if err != nil {
		return err
	}

	slots, err := h.availability.LocalWeeklySchedule(c.UserContext(), tutorID, loc.String())
	if err != nil {
		return err
	}

	return c.JSON(scheduleResponse{TutorID: tutorID, Timezone: loc.String(), Slots: slots})
}

// CreateAvailabilitySlot POST /tutors/:tutorId/availability
func (h *Handler) CreateAvailabilitySlot(c *fiber.Ctx) error {
	tutorID, err := idParam(c, "tutorId")
	if err != nil {
		return err
	}

	var req createSlotRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	day, err := model.ParseDayOfWeek(req.Day)
	if err != nil {
		return apperror.Wrap(apperror.KindValidation, err.Error(), err)
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	actor := actorOf(c)
	tz := firstNonEmpty(req.Timezone, actor.Timezone)
	slot, err := h.availability.CreateSlot(c.UserContext(), actor, tutorID, day, req.StartTime, req.EndTime, tz, available)
	if err != nil {
		return err
	}

	start, end, err := h.availability.LocalTimes(slot, tz)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(model.LocalSlot{
		ID:          slot.ID,
		Day:         slot.Day,
		StartUTC:    slot.StartTime,
		EndUTC:      slot.EndTime,
		StartLocal:  start,
		EndLocal:    end,
		IsAvailable: slot.IsAvailable,
	})
}

// ReplaceAvailability PUT /tutors/:tutorId/availability
func (h *Handler) ReplaceAvailability(c *fiber.Ctx) error {
	tutorID, err := idParam(c, "tutorId")
	if err != nil {
		return err
	}

	var req replaceScheduleRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	actor := actorOf(c)
	tz := firstNonEmpty(req.Timezone, actor.Timezone)
	if err := h.availability.ReplaceWeeklySchedule(c.UserContext(), actor, tutorID, req.Schedule, tz); err != nil {
		return err
	}

	slots, err := h.availability.LocalWeeklySchedule(c.UserContext(), tutorID, tz)
	if err != nil {
		return err
	}

	return c.JSON(scheduleResponse{TutorID: tutorID, Timezone: tz, Slots: slots})
}

// ListTutorBookings GET /tutors/:tutorId/bookings?from=&to=&tz=
// По умолчанию показывает всё окно бронирования начиная с сегодняшнего дня.
func (h *Handler) ListTutorBookings(c *fiber.Ctx) error {
	tutorID, err := idParam(c, "tutorId")
	if err != nil {
		return err
	}
	loc, err := h.location(c)
	if err != nil {
		return err
	}

	today := scheduling.Today(h.now(), loc)
	from, err := dateQuery(c, "from", today)
	if err != nil {
		return err
	}
	to, err := dateQuery(c, "to", h.bookings.Window().Last(today))
	if err != nil {
		return err
	}

	bookings, err := h.bookings.ListTutorBookings(c.UserContext(), actorOf(c), tutorID, from, to, loc)
	if err != nil {
		return err
	}

	return c.JSON(newBookingResponses(bookings, loc))
}

// CreateBooking POST /bookings
func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	var req createBookingRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	date, err := scheduling.ParseDate(req.Date)
	if err != nil {
		return err
	}

	actor := actorOf(c)
	studentID := req.StudentID
	if studentID == 0 {
		studentID = actor.UserID
	}
	tz := firstNonEmpty(req.Timezone, actor.Timezone)

	booking, err := h.bookings.CreateBooking(c.UserContext(), actor, service.CreateBookingRequest{
		StudentID: studentID,
		TutorID:   req.TutorID,
		Date:      date,
		Start:     req.StartTime,
		End:       req.EndTime,
		Timezone:  tz,
		Subject:   req.Subject,
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}

	loc, err := scheduling.LoadLocation(tz)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newBookingResponse(booking, loc))
}

// ListMyBookings GET /bookings/me?tz=
func (h *Handler) ListMyBookings(c *fiber.Ctx) error {
	loc, err := h.location(c)
	if err != nil {
		return err
	}

	actor := actorOf(c)
	bookings, err := h.bookings.ListStudentBookings(c.UserContext(), actor, actor.UserID)
	if err != nil {
		return err
	}

	return c.JSON(newBookingResponses(bookings, loc))
}

// GetBooking GET /bookings/:bookingId
func (h *Handler) GetBooking(c *fiber.Ctx) error {
	bookingID, err := idParam(c, "bookingId")
	if err != nil {
		return err
	}
	loc, err := h.location(c)
	if err != nil {
		return err
	}

	booking, err := h.bookings.GetBooking(c.UserContext(), actorOf(c), bookingID)
	if err != nil {
		return err
	}

	return c.JSON(newBookingResponse(booking, loc))
}

// ConfirmBooking POST /bookings/:bookingId/confirm
func (h *Handler) ConfirmBooking(c *fiber.Ctx) error {
	return h.changeStatus(c, h.bookings.ConfirmBooking)
}

// CancelBooking POST /bookings/:bookingId/cancel
func (h *Handler) CancelBooking(c *fiber.Ctx) error {
	return h.changeStatus(c, h.bookings.CancelBooking)
}

// RescheduleBooking POST /bookings/:bookingId/reschedule
func (h *Handler) RescheduleBooking(c *fiber.Ctx) error {
	bookingID, err := idParam(c, "bookingId")
	if err != nil {
		return err
	}

	var req rescheduleRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	date, err := scheduling.ParseDate(req.Date)
	if err != nil {
		return err
	}

	actor := actorOf(c)
	tz := firstNonEmpty(req.Timezone, actor.Timezone)
	booking, err := h.bookings.RescheduleBooking(c.UserContext(), actor, bookingID, service.RescheduleRequest{
		Date:     date,
		Start:    req.StartTime,
		End:      req.EndTime,
		Timezone: tz,
	})
	if err != nil {
		return err
	}

	loc, err := scheduling.LoadLocation(tz)
	if err != nil {
		return err
	}
	return c.JSON(newBookingResponse(booking, loc))
}

type statusChange func(ctx context.Context, actor model.Actor, bookingID int64) (*model.Booking, error)

func (h *Handler) changeStatus(c *fiber.Ctx, change statusChange) error {
	bookingID, err := idParam(c, "bookingId")
	if err != nil {
		return err
	}
	loc, err := h.location(c)
	if err != nil {
		return err
	}

	booking, err := change(c.UserContext(), actorOf(c), bookingID)
	if err != nil {
		return err
	}

	return c.JSON(newBookingResponse(booking, loc))
}

// bind разбирает JSON-тело и проверяет его validator'ом
func (h *Handler) bind(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.Wrap(apperror.KindValidation, "invalid JSON body", err)
	}
	if err := h.validate.Struct(out); err != nil {
		return validationError(err)
	}
	return nil
}

// location часовой пояс из ?tz=, иначе из токена
func (h *Handler) location(c *fiber.Ctx) (*time.Location, error) {
	tz := firstNonEmpty(c.Query("tz"), actorOf(c).Timezone, "UTC")
	return scheduling.LoadLocation(tz)
}

func idParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.New(apperror.KindValidation, "invalid "+name)
	}
	return id, nil
}

func dateQuery(c *fiber.Ctx, name string, def time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return scheduling.ParseDate(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
