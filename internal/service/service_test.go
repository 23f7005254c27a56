package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/repository/memory"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Понедельник, 5 января 2026, полдень UTC
var testNow = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

const (
	adminID     int64 = 1
	tutorMoscow int64 = 2
	tutorNY     int64 = 3
	studentA    int64 = 4
	studentB    int64 = 5
)

var (
	admin    = model.Actor{UserID: adminID, Role: model.RoleAdmin, Timezone: "UTC"}
	tutor    = model.Actor{UserID: tutorNY, Role: model.RoleTutor, Timezone: "America/New_York"}
	student  = model.Actor{UserID: studentA, Role: model.RoleStudent, Timezone: "UTC"}
	studentX = model.Actor{UserID: studentB, Role: model.RoleStudent, Timezone: "UTC"}
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.BookingEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event model.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) types() []model.BookingEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.BookingEventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store        *memory.Store
	availability *AvailabilityService
	bookings     *BookingService
	notifier     *recordingNotifier
}

func newFixture(t *testing.T, policy AvailabilityPolicy) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.Seed(memory.DemoUsers())

	clock := func() time.Time { return testNow }
	logger := zap.NewNop()

	availability, err := NewAvailabilityService(store, store.Availability(), store.Users(), 16, clock, logger)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	bookings := NewBookingService(
		store,
		store.Bookings(),
		store.Users(),
		availability,
		notifier,
		BookingOptions{Window: scheduling.DefaultWindow(), Policy: policy},
		clock,
		logger,
	)

	return &fixture{
		store:        store,
		availability: availability,
		bookings:     bookings,
		notifier:     notifier,
	}
}

// day дата через offset дней от testNow
func day(offset int) time.Time {
	return scheduling.DateOf(testNow).AddDate(0, 0, offset)
}

func (f *fixture) book(t *testing.T, actor model.Actor, studentID int64, offset int, start, end string) (*model.Booking, error) {
	t.Helper()
	return f.bookings.CreateBooking(context.Background(), actor, CreateBookingRequest{
		StudentID: studentID,
		TutorID:   tutorNY,
		Date:      day(offset),
		Start:     start,
		End:       end,
		Timezone:  "UTC",
	})
}
