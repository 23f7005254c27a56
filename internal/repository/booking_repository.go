package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

const bookingColumns = `id, student_id, tutor_id, booking_date, start_minute, end_minute, status, subject, notes, created_at, updated_at`

// Моменты начала и окончания урока в UTC (timestamp without time zone)
const (
	bookingStartsAt = `(booking_date + start_minute * INTERVAL '1 minute')`
	bookingEndsAt   = `(booking_date + end_minute * INTERVAL '1 minute')`
)

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (student_id, tutor_id, booking_date, start_minute, end_minute, status, subject, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.StudentID,
		booking.TutorID,
		booking.Date,
		int32(booking.StartTime),
		int32(booking.EndTime),
		string(booking.Status),
		booking.Subject,
		booking.Notes,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return mapWriteError("create booking", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// GetByIDForUpdate получает бронирование с блокировкой строки до конца транзакции
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	booking, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking for update: %w", err)
	}

	return booking, nil
}

// LockTutor берёт advisory-блокировку на расписание учителя до конца транзакции.
// Создание и перенос бронирований одного учителя выполняются последовательно.
func (r *BookingRepository) LockTutor(ctx context.Context, tutorID int64) error {
	key := fmt.Sprintf("booking:%d", tutorID)

	_, err := r.Conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	if err != nil {
		return fmt.Errorf("lock tutor: %w", err)
	}
	return nil
}

// FindOverlapping ищет активное бронирование учителя, пересекающееся с [start, end).
// Урок может начаться в предыдущие сутки UTC, поэтому смотрим и назад по датам.
func (r *BookingRepository) FindOverlapping(ctx context.Context, tutorID int64, start, end time.Time, excludeID int64) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tutor_id = $1
			AND booking_date BETWEEN $2::date - 2 AND $3::date
			AND status IN ('pending', 'confirmed')
			AND ` + bookingStartsAt + ` < $5::timestamp
			AND ` + bookingEndsAt + ` > $4::timestamp
			AND id <> $6
		ORDER BY booking_date, start_minute
		LIMIT 1
	`

	booking, err := scanBooking(r.QueryRow(ctx, query, tutorID, start.UTC(), end.UTC(), start.UTC(), end.UTC(), excludeID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find overlapping booking: %w", err)
	}

	return booking, nil
}

// UpdateStatus меняет статус бронирования
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query, id, string(status))
	if err != nil {
		return mapWriteError("update booking status", err)
	}
	if affected == 0 {
		return apperror.New(apperror.KindNotFound, "booking not found")
	}

	return nil
}

// Reschedule переносит бронирование на новые дату и время, статус не меняется
func (r *BookingRepository) Reschedule(ctx context.Context, id int64, date time.Time, start, end model.ClockTime) error {
	query := `
		UPDATE bookings
		SET booking_date = $2, start_minute = $3, end_minute = $4, updated_at = NOW()
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query, id, date, int32(start), int32(end))
	if err != nil {
		return mapWriteError("reschedule booking", err)
	}
	if affected == 0 {
		return apperror.New(apperror.KindNotFound, "booking not found")
	}

	return nil
}

// ListByTutorRange активные бронирования учителя, начинающиеся в [from, to), новые сверху
func (r *BookingRepository) ListByTutorRange(ctx context.Context, tutorID int64, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tutor_id = $1
			AND booking_date BETWEEN $2::date AND $3::date
			AND ` + bookingStartsAt + ` >= $4::timestamp
			AND ` + bookingStartsAt + ` < $5::timestamp
			AND status IN ('pending', 'confirmed')
		ORDER BY booking_date DESC, start_minute DESC
	`

	rows, err := r.Query(ctx, query, tutorID, from.UTC(), to.UTC(), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list bookings by tutor: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ListByStudent все бронирования студента, новые сверху
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE student_id = $1
		ORDER BY booking_date DESC, start_minute DESC
	`

	rows, err := r.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by student: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ListByStatusOnDate бронирования с указанным статусом на дату, по времени начала
func (r *BookingRepository) ListByStatusOnDate(ctx context.Context, status model.BookingStatus, date time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1 AND booking_date = $2
		ORDER BY start_minute, id
	`

	rows, err := r.Query(ctx, query, string(status), date)
	if err != nil {
		return nil, fmt.Errorf("list bookings by status: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		booking    model.Booking
		start, end int32
		status     string
	)

	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.TutorID,
		&booking.Date,
		&start,
		&end,
		&status,
		&booking.Subject,
		&booking.Notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.StartTime = model.ClockTime(start)
	booking.EndTime = model.ClockTime(end)
	booking.Status = model.BookingStatus(status)
	return &booking, nil
}

func scanBookings(rows pgx.Rows) ([]*model.Booking, error) {
	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

// mapWriteError переводит нарушения ограничений в ошибки предметной области
func mapWriteError(op string, err error) error {
	switch {
	case base.IsConflict(err):
		return apperror.Wrap(apperror.KindSlotConflict, "the tutor already has a booking at this time", err)
	case base.IsForeignKeyViolation(err):
		return apperror.Wrap(apperror.KindNotFound, "student or tutor not found", err)
	case base.IsCheckViolation(err):
		return apperror.Wrap(apperror.KindInvalidTimeRange, "end time must be after start time", err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
