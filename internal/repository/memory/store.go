package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/model"
)

// Store хранилище в памяти для тестов и режима STORAGE_DRIVER=memory.
// Транзакции выполняются строго по одной; при ошибке данные откатываются к снимку.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *dataset
	now  func() time.Time
}

type dataset struct {
	users         map[int64]*model.User
	slots         []*model.AvailabilitySlot
	bookings      map[int64]*model.Booking
	nextSlotID    int64
	nextBookingID int64
}

type txKey struct{}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{
		data: &dataset{
			users:    make(map[int64]*model.User),
			bookings: make(map[int64]*model.Booking),
		},
		now: time.Now,
	}
}

// WithinTx выполняет fn атомарно: при ошибке все изменения внутри отменяются
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Availability хранилище слотов
func (s *Store) Availability() *AvailabilityStore {
	return &AvailabilityStore{store: s}
}

// Bookings хранилище бронирований
func (s *Store) Bookings() *BookingStore {
	return &BookingStore{store: s}
}

// Users справочник пользователей
func (s *Store) Users() *UserStore {
	return &UserStore{store: s}
}

// write выполняет изменение данных. Вне транзакции запись ждёт завершения текущей транзакции.
func (s *Store) write(ctx context.Context, fn func(d *dataset) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) read(fn func(d *dataset)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (d *dataset) clone() *dataset {
	out := &dataset{
		users:         make(map[int64]*model.User, len(d.users)),
		slots:         make([]*model.AvailabilitySlot, 0, len(d.slots)),
		bookings:      make(map[int64]*model.Booking, len(d.bookings)),
		nextSlotID:    d.nextSlotID,
		nextBookingID: d.nextBookingID,
	}
	for id, u := range d.users {
		out.users[id] = cloneUser(u)
	}
	for _, slot := range d.slots {
		copied := *slot
		out.slots = append(out.slots, &copied)
	}
	for id, b := range d.bookings {
		out.bookings[id] = cloneBooking(b)
	}
	return out
}

func cloneUser(u *model.User) *model.User {
	copied := *u
	if u.TelegramID != nil {
		id := *u.TelegramID
		copied.TelegramID = &id
	}
	return &copied
}

func cloneBooking(b *model.Booking) *model.Booking {
	copied := *b
	if b.Subject != nil {
		subject := *b.Subject
		copied.Subject = &subject
	}
	if b.Notes != nil {
		notes := *b.Notes
		copied.Notes = &notes
	}
	return &copied
}
