package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
)

// BookingStore повторяет ограничения таблицы bookings: внешние ключи на users
// и запрет пересечения активных бронирований учителя.
type BookingStore struct {
	store *Store
}

// Create создаёт новое бронирование
func (r *BookingStore) Create(ctx context.Context, booking *model.Booking) error {
	return r.store.write(ctx, func(d *dataset) error {
		if d.users[booking.StudentID] == nil || d.users[booking.TutorID] == nil {
			return apperror.New(apperror.KindNotFound, "student or tutor not found")
		}
		if booking.Status.IsActive() && conflicts(d, booking.TutorID, booking.StartsAt(), booking.EndsAt(), 0) {
			return apperror.New(apperror.KindSlotConflict, "the tutor already has a booking at this time")
		}

		d.nextBookingID++
		now := r.store.now()
		booking.ID = d.nextBookingID
		booking.CreatedAt = now
		booking.UpdatedAt = now

		d.bookings[booking.ID] = cloneBooking(booking)
		return nil
	})
}

// GetByID получает бронирование по ID
func (r *BookingStore) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	var booking *model.Booking
	r.store.read(func(d *dataset) {
		if b, ok := d.bookings[id]; ok {
			booking = cloneBooking(b)
		}
	})
	return booking, nil
}

// GetByIDForUpdate транзакции и так выполняются по одной, поэтому это обычное чтение
func (r *BookingStore) GetByIDForUpdate(ctx context.Context, id int64) (*model.Booking, error) {
	return r.GetByID(ctx, id)
}

// LockTutor не нужен: транзакции сериализованы
func (r *BookingStore) LockTutor(context.Context, int64) error {
	return nil
}

// FindOverlapping ищет активное бронирование учителя, пересекающееся с [start, end)
func (r *BookingStore) FindOverlapping(_ context.Context, tutorID int64, start, end time.Time, excludeID int64) (*model.Booking, error) {
	var found *model.Booking
	r.store.read(func(d *dataset) {
		tutorBookings := sortedBy(d, func(b *model.Booking) bool {
			return b.TutorID == tutorID
		}, false)
		if b := scheduling.FindConflict(tutorBookings, start, end, excludeID); b != nil {
			found = cloneBooking(b)
		}
	})
	return found, nil
}

// UpdateStatus меняет статус бронирования
func (r *BookingStore) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	return r.store.write(ctx, func(d *dataset) error {
		b, ok := d.bookings[id]
		if !ok {
			return apperror.New(apperror.KindNotFound, "booking not found")
		}
		if status.IsActive() && !b.Status.IsActive() && conflicts(d, b.TutorID, b.StartsAt(), b.EndsAt(), b.ID) {
			return apperror.New(apperror.KindSlotConflict, "the tutor already has a booking at this time")
		}
		b.Status = status
		b.UpdatedAt = r.store.now()
		return nil
	})
}

// Reschedule переносит бронирование на новые дату и время
func (r *BookingStore) Reschedule(ctx context.Context, id int64, date time.Time, start, end model.ClockTime) error {
	return r.store.write(ctx, func(d *dataset) error {
		b, ok := d.bookings[id]
		if !ok {
			return apperror.New(apperror.KindNotFound, "booking not found")
		}
		if end <= start {
			return apperror.New(apperror.KindInvalidTimeRange, "end time must be after start time")
		}
		moved := model.Booking{Date: date, StartTime: start, EndTime: end}
		if b.Status.IsActive() && conflicts(d, b.TutorID, moved.StartsAt(), moved.EndsAt(), b.ID) {
			return apperror.New(apperror.KindSlotConflict, "the tutor already has a booking at this time")
		}
		b.Date = date
		b.StartTime = start
		b.EndTime = end
		b.UpdatedAt = r.store.now()
		return nil
	})
}

// ListByTutorRange активные бронирования учителя, начинающиеся в [from, to), новые сверху
func (r *BookingStore) ListByTutorRange(_ context.Context, tutorID int64, from, to time.Time) ([]*model.Booking, error) {
	var out []*model.Booking
	r.store.read(func(d *dataset) {
		out = sortedBy(d, func(b *model.Booking) bool {
			return b.TutorID == tutorID && b.Status.IsActive() && !b.StartsAt().Before(from) && b.StartsAt().Before(to)
		}, true)
	})
	return out, nil
}

// ListByStudent все бронирования студента, новые сверху
func (r *BookingStore) ListByStudent(_ context.Context, studentID int64) ([]*model.Booking, error) {
	var out []*model.Booking
	r.store.read(func(d *dataset) {
		out = sortedBy(d, func(b *model.Booking) bool {
			return b.StudentID == studentID
		}, true)
	})
	return out, nil
}

// ListByStatusOnDate бронирования с указанным статусом на дату, по времени начала
func (r *BookingStore) ListByStatusOnDate(_ context.Context, status model.BookingStatus, date time.Time) ([]*model.Booking, error) {
	var out []*model.Booking
	r.store.read(func(d *dataset) {
		out = sortedBy(d, func(b *model.Booking) bool {
			return b.Status == status && b.Date.Equal(date)
		}, false)
	})
	return out, nil
}

func conflicts(d *dataset, tutorID int64, start, end time.Time, excludeID int64) bool {
	for _, b := range d.bookings {
		if b.ID == excludeID || b.TutorID != tutorID || !b.Status.IsActive() {
			continue
		}
		if scheduling.OverlapsAt(b.StartsAt(), b.EndsAt(), start, end) {
			return true
		}
	}
	return false
}

// sortedBy копии подходящих бронирований по (дата, начало, id); desc переворачивает порядок
func sortedBy(d *dataset, match func(b *model.Booking) bool, desc bool) []*model.Booking {
	var out []*model.Booking
	for _, b := range d.bookings {
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		switch {
		case !a.Date.Equal(b.Date):
			return a.Date.Before(b.Date)
		case a.StartTime != b.StartTime:
			return a.StartTime < b.StartTime
		default:
			return a.ID < b.ID
		}
	})
	return out
}
