package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает подтверждения учителя
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено
	BookingStatusCompleted BookingStatus = "completed" // Завершено (выставляется вне ядра)
)

// ActiveBookingStatuses статусы, которые занимают время учителя
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// IsActive занимает ли бронирование время учителя
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// IsTerminal из статуса нет переходов
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

type Booking struct {
	ID        int64         `json:"id"`
	StudentID int64         `json:"student_id"`
	TutorID   int64         `json:"tutor_id"`
	Date      time.Time     `json:"-"` // календарная дата начала в UTC, время 00:00
	StartTime ClockTime     `json:"start_time_utc"`
	EndTime   ClockTime     `json:"-"` // минуты от начала Date, после полуночи UTC больше 24:00
	Status    BookingStatus `json:"status"`
	Subject   *string       `json:"subject"`
	Notes     *string       `json:"notes"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StartsAt момент начала в UTC
func (b *Booking) StartsAt() time.Time {
	return b.Date.Add(time.Duration(b.StartTime) * time.Minute)
}

// EndsAt момент окончания в UTC
func (b *Booking) EndsAt() time.Time {
	return b.Date.Add(time.Duration(b.EndTime) * time.Minute)
}

// EndClockUTC время окончания по часам UTC
func (b *Booking) EndClockUTC() ClockTime {
	return b.EndTime % MinutesPerDay
}

// BookingEventType тип события по бронированию
type BookingEventType string

const (
	BookingEventCreated     BookingEventType = "booking.created"
	BookingEventConfirmed   BookingEventType = "booking.confirmed"
	BookingEventCancelled   BookingEventType = "booking.cancelled"
	BookingEventRescheduled BookingEventType = "booking.rescheduled"
	BookingEventReminder    BookingEventType = "booking.reminder"
)

// BookingEvent событие, отправляемое после коммита
type BookingEvent struct {
	Type       BookingEventType `json:"type"`
	Booking    Booking          `json:"booking"`
	ActorID    int64            `json:"actor_id"`
	OccurredAt time.Time        `json:"occurred_at"`
}
