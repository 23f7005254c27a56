package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"go.uber.org/zap"
)

const (
	maxSubjectLength   = 100
	conflictTimeLayout = "2006-01-02 15:04"
)

// AvailabilityPolicy проверять ли бронирование по объявленной доступности учителя
type AvailabilityPolicy string

const (
	// PolicyOpen бронировать можно в любое время, учитель подтверждает или отменяет
	PolicyOpen AvailabilityPolicy = "open"
	// PolicyStrict бронирование должно попадать в слот доступности учителя
	PolicyStrict AvailabilityPolicy = "strict"
)

// ParseAvailabilityPolicy разбирает значение из конфигурации
func ParseAvailabilityPolicy(s string) (AvailabilityPolicy, error) {
	switch AvailabilityPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyOpen:
		return PolicyOpen, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown availability policy %q", s)
	}
}

// BookingOptions правила бронирования
type BookingOptions struct {
	Window scheduling.Window
	Policy AvailabilityPolicy
}

// CreateBookingRequest запрос студента; дата и время местные, в часовом поясе Timezone
type CreateBookingRequest struct {
	StudentID int64
	TutorID   int64
	Date      time.Time
	Start     string
	End       string
	Timezone  string
	Subject   *string
	Notes     *string
}

// RescheduleRequest новые дата и время бронирования в часовом поясе Timezone
type RescheduleRequest struct {
	Date     time.Time
	Start    string
	End      string
	Timezone string
}

type BookingService struct {
	tx           TxRunner
	bookings     BookingStore
	users        UserDirectory
	availability *AvailabilityService
	notifier     Notifier
	opts         BookingOptions
	now          Clock
	logger       *zap.Logger
}

func NewBookingService(
	tx TxRunner,
	bookings BookingStore,
	users UserDirectory,
	availability *AvailabilityService,
	notifier Notifier,
	opts BookingOptions,
	now Clock,
	logger *zap.Logger,
) *BookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.Window == (scheduling.Window{}) {
		opts.Window = scheduling.DefaultWindow()
	}
	if opts.Policy == "" {
		opts.Policy = PolicyOpen
	}
	if now == nil {
		now = time.Now
	}

	return &BookingService{
		tx:           tx,
		bookings:     bookings,
		users:        users,
		availability: availability,
		notifier:     notifier,
		opts:         opts,
		now:          now,
		logger:       logger,
	}
}

// CreateBooking создаёт бронирование в статусе pending.
// Порядок проверок: окно дат, формат времени, диапазон, пересечения.
func (s *BookingService) CreateBooking(ctx context.Context, actor model.Actor, req CreateBookingRequest) (*model.Booking, error) {
	if !actor.Is(req.StudentID) {
		return nil, forbidden("you can only book lessons for yourself")
	}

	interval, err := s.normalize(actor, req.Date, req.Start, req.End, req.Timezone)
	if err != nil {
		return nil, err
	}

	subject, err := normalizeSubject(req.Subject)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		StudentID: req.StudentID,
		TutorID:   req.TutorID,
		Date:      interval.Date,
		StartTime: interval.Start,
		EndTime:   interval.End,
		Status:    model.BookingStatusPending,
		Subject:   subject,
		Notes:     normalizeNotes(req.Notes),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		student, err := s.users.GetByID(ctx, req.StudentID)
		if err != nil {
			return err
		}
		if student == nil || student.Role != model.RoleStudent {
			return notFound("student not found")
		}

		tutor, err := s.getTutor(ctx, req.TutorID)
		if err != nil {
			return err
		}

		if err := s.checkAvailability(ctx, tutor, booking); err != nil {
			return err
		}

		if err := s.bookings.LockTutor(ctx, booking.TutorID); err != nil {
			return err
		}
		if err := s.checkConflict(ctx, booking.TutorID, interval, 0); err != nil {
			return err
		}

		return s.bookings.Create(ctx, booking)
	})
	if err != nil {
		return nil, storageErr(err)
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", booking.StudentID),
		zap.Int64("tutor_id", booking.TutorID),
		zap.String("date", booking.Date.Format(time.DateOnly)),
		zap.Stringer("start_utc", booking.StartTime),
		zap.Stringer("end_utc", booking.EndClockUTC()),
	)
	s.notify(ctx, model.BookingEventCreated, booking, actor)

	return booking, nil
}

// ConfirmBooking pending -> confirmed, выполняет учитель
func (s *BookingService) ConfirmBooking(ctx context.Context, actor model.Actor, bookingID int64) (*model.Booking, error) {
	booking, err := s.transition(ctx, actor, bookingID, model.BookingStatusConfirmed, func(b *model.Booking) error {
		if !actor.Is(b.TutorID) {
			return forbidden("only the tutor can confirm this booking")
		}
		if b.Status != model.BookingStatusPending {
			return apperror.New(apperror.KindInvalidTransition,
				fmt.Sprintf("cannot confirm a %s booking", b.Status))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking confirmed",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actor.UserID),
	)
	s.notify(ctx, model.BookingEventConfirmed, booking, actor)

	return booking, nil
}

// CancelBooking pending|confirmed -> cancelled, выполняет учитель или студент
func (s *BookingService) CancelBooking(ctx context.Context, actor model.Actor, bookingID int64) (*model.Booking, error) {
	booking, err := s.transition(ctx, actor, bookingID, model.BookingStatusCancelled, func(b *model.Booking) error {
		if !actor.Is(b.TutorID) && actor.UserID != b.StudentID {
			return forbidden("no permission to cancel this booking")
		}
		if !b.Status.IsActive() {
			return apperror.New(apperror.KindInvalidTransition,
				fmt.Sprintf("cannot cancel a %s booking", b.Status))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actor.UserID),
	)
	s.notify(ctx, model.BookingEventCancelled, booking, actor)

	return booking, nil
}

// RescheduleBooking переносит бронирование; статус не меняется.
// При любой ошибке бронирование остаётся прежним.
func (s *BookingService) RescheduleBooking(ctx context.Context, actor model.Actor, bookingID int64, req RescheduleRequest) (*model.Booking, error) {
	interval, err := s.normalize(actor, req.Date, req.Start, req.End, req.Timezone)
	if err != nil {
		return nil, err
	}

	var booking *model.Booking
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return notFound("booking not found")
		}
		if !actor.Is(b.TutorID) {
			return forbidden("only the tutor can reschedule this booking")
		}
		if !b.Status.IsActive() {
			return apperror.New(apperror.KindInvalidTransition,
				fmt.Sprintf("cannot reschedule a %s booking", b.Status))
		}

		tutor, err := s.getTutor(ctx, b.TutorID)
		if err != nil {
			return err
		}

		b.Date, b.StartTime, b.EndTime = interval.Date, interval.Start, interval.End
		if err := s.checkAvailability(ctx, tutor, b); err != nil {
			return err
		}

		if err := s.bookings.LockTutor(ctx, b.TutorID); err != nil {
			return err
		}
		if err := s.checkConflict(ctx, b.TutorID, interval, b.ID); err != nil {
			return err
		}

		if err := s.bookings.Reschedule(ctx, b.ID, interval.Date, interval.Start, interval.End); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	s.logger.Info("Booking rescheduled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actor.UserID),
		zap.String("date", interval.Date.Format(time.DateOnly)),
		zap.Stringer("start_utc", interval.Start),
		zap.Stringer("end_utc", interval.End%model.MinutesPerDay),
	)
	s.notify(ctx, model.BookingEventRescheduled, booking, actor)

	return booking, nil
}

// GetBooking бронирование для участника или администратора
func (s *BookingService) GetBooking(ctx context.Context, actor model.Actor, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, storageErr(err)
	}
	if booking == nil {
		return nil, notFound("booking not found")
	}
	if !actor.Is(booking.TutorID) && actor.UserID != booking.StudentID {
		return nil, forbidden("no permission to view this booking")
	}
	return booking, nil
}

// ListTutorBookings активные бронирования учителя, начинающиеся с from по to включительно
// (местные даты в часовом поясе loc), новые сверху.
// Посторонним тема и заметки не показываются.
func (s *BookingService) ListTutorBookings(ctx context.Context, actor model.Actor, tutorID int64, from, to time.Time, loc *time.Location) ([]*model.Booking, error) {
	from, to = scheduling.DateOf(from), scheduling.DateOf(to)
	if to.Before(from) {
		return nil, validation("'from' must not be after 'to'")
	}
	if loc == nil {
		loc = time.UTC
	}

	startAt, endAt := scheduling.DayRange(from, to, loc)
	bookings, err := s.bookings.ListByTutorRange(ctx, tutorID, startAt, endAt)
	if err != nil {
		return nil, storageErr(err)
	}

	if !actor.Is(tutorID) {
		for _, b := range bookings {
			if b.StudentID != actor.UserID {
				b.Subject = nil
				b.Notes = nil
			}
		}
	}
	return bookings, nil
}

// ListStudentBookings все бронирования студента, новые сверху
func (s *BookingService) ListStudentBookings(ctx context.Context, actor model.Actor, studentID int64) ([]*model.Booking, error) {
	if !actor.Is(studentID) {
		return nil, forbidden("you can only view your own bookings")
	}

	bookings, err := s.bookings.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storageErr(err)
	}
	return bookings, nil
}

// SendReminders отправляет напоминания по подтверждённым бронированиям на дату (UTC)
func (s *BookingService) SendReminders(ctx context.Context, date time.Time) (int, error) {
	bookings, err := s.bookings.ListByStatusOnDate(ctx, model.BookingStatusConfirmed, scheduling.DateOf(date))
	if err != nil {
		return 0, storageErr(err)
	}

	sent := 0
	for _, b := range bookings {
		event := model.BookingEvent{Type: model.BookingEventReminder, Booking: *b, OccurredAt: s.now().UTC()}
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.Warn("Failed to send reminder", zap.Int64("booking_id", b.ID), zap.Error(err))
			continue
		}
		sent++
	}

	s.logger.Info("Reminders sent",
		zap.String("date", date.Format(time.DateOnly)),
		zap.Int("bookings", len(bookings)),
		zap.Int("sent", sent),
	)
	return sent, nil
}

// Window правила окна бронирования
func (s *BookingService) Window() scheduling.Window {
	return s.opts.Window
}

// normalize проверяет окно дат, формат и диапазон времени и переводит интервал в UTC
func (s *BookingService) normalize(actor model.Actor, date time.Time, startStr, endStr, tz string) (scheduling.Interval, error) {
	if strings.TrimSpace(tz) == "" {
		tz = actor.Timezone
	}
	loc, err := scheduling.LoadLocation(tz)
	if err != nil {
		return scheduling.Interval{}, err
	}

	date = scheduling.DateOf(date)
	if err := s.opts.Window.Check(date, scheduling.Today(s.now(), loc)); err != nil {
		return scheduling.Interval{}, err
	}

	start, err := model.ParseClock(startStr)
	if err != nil {
		return scheduling.Interval{}, apperror.Wrap(apperror.KindInvalidTimeFormat, "invalid time format, expected HH:MM", err)
	}
	end, err := model.ParseClock(endStr)
	if err != nil {
		return scheduling.Interval{}, apperror.Wrap(apperror.KindInvalidTimeFormat, "invalid time format, expected HH:MM", err)
	}
	if start >= end {
		return scheduling.Interval{}, apperror.New(apperror.KindInvalidTimeRange, "end time must be after start time")
	}

	return scheduling.Normalize(date, start, end, loc)
}

// transition меняет статус бронирования после проверки check внутри транзакции
func (s *BookingService) transition(ctx context.Context, actor model.Actor, bookingID int64, status model.BookingStatus, check func(b *model.Booking) error) (*model.Booking, error) {
	var booking *model.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return notFound("booking not found")
		}
		if err := check(b); err != nil {
			return err
		}
		if err := s.bookings.UpdateStatus(ctx, b.ID, status); err != nil {
			return err
		}
		b.Status = status
		booking = b
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return booking, nil
}

func (s *BookingService) checkConflict(ctx context.Context, tutorID int64, in scheduling.Interval, excludeID int64) error {
	existing, err := s.bookings.FindOverlapping(ctx, tutorID, in.StartsAt(), in.EndsAt(), excludeID)
	if err != nil {
		return err
	}
	if existing != nil {
		s.logger.Debug("Booking conflict",
			zap.Int64("tutor_id", tutorID),
			zap.Int64("existing_booking_id", existing.ID),
		)
		return apperror.New(apperror.KindSlotConflict,
			fmt.Sprintf("the tutor already has a booking from %s to %s UTC",
				existing.StartsAt().Format(conflictTimeLayout), existing.EndsAt().Format(conflictTimeLayout)))
	}
	return nil
}

func (s *BookingService) checkAvailability(ctx context.Context, tutor *model.User, b *model.Booking) error {
	if s.opts.Policy != PolicyStrict || s.availability == nil {
		return nil
	}

	ok, err := s.availability.Covers(ctx, tutor, b.StartsAt(), b.EndsAt())
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.KindOutsideAvailability, "the tutor is not available at this time")
	}
	return nil
}

func (s *BookingService) getTutor(ctx context.Context, tutorID int64) (*model.User, error) {
	tutor, err := s.users.GetByID(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	if tutor == nil || tutor.Role != model.RoleTutor {
		return nil, notFound("tutor not found")
	}
	return tutor, nil
}

// notify отправляет событие после коммита; ошибка доставки не отменяет операцию
func (s *BookingService) notify(ctx context.Context, eventType model.BookingEventType, b *model.Booking, actor model.Actor) {
	event := model.BookingEvent{
		Type:       eventType,
		Booking:    *b,
		ActorID:    actor.UserID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("Failed to deliver booking notification",
			zap.String("event", string(eventType)),
			zap.Int64("booking_id", b.ID),
			zap.Error(err),
		)
	}
}

func normalizeSubject(subject *string) (*string, error) {
	if subject == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*subject)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxSubjectLength {
		return nil, validation(fmt.Sprintf("subject must be at most %d characters", maxSubjectLength))
	}
	return &trimmed, nil
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
