package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/model"
)

// TxRunner выполняет функцию в одной транзакции хранилища
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AvailabilityStore хранилище еженедельных слотов
type AvailabilityStore interface {
	Create(ctx context.Context, slot *model.AvailabilitySlot) error
	ListByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilitySlot, error)
	ReplaceForTutor(ctx context.Context, tutorID int64, slots []*model.AvailabilitySlot) error
}

// BookingStore хранилище бронирований. GetByID возвращает nil, nil если записи нет.
type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Booking, error)
	LockTutor(ctx context.Context, tutorID int64) error
	FindOverlapping(ctx context.Context, tutorID int64, start, end time.Time, excludeID int64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error
	Reschedule(ctx context.Context, id int64, date time.Time, start, end model.ClockTime) error
	// ListByTutorRange бронирования, начинающиеся в [from, to)
	ListByTutorRange(ctx context.Context, tutorID int64, from, to time.Time) ([]*model.Booking, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error)
	ListByStatusOnDate(ctx context.Context, status model.BookingStatus, date time.Time) ([]*model.Booking, error)
}

// UserDirectory чтение пользователей из подсистемы учётных записей
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
}

// Notifier доставляет события по бронированиям (Telegram, Kafka)
type Notifier interface {
	Notify(ctx context.Context, event model.BookingEvent) error
}

// Clock источник текущего времени
type Clock func() time.Time
