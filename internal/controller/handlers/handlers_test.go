package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tutorUser   = &model.User{ID: 3, FullName: "John Carter", Role: model.RoleTutor, Timezone: "America/New_York"}
	studentUser = &model.User{ID: 4, FullName: "Alex Student", Role: model.RoleStudent, Timezone: "Europe/Berlin"}
	otherUser   = &model.User{ID: 5, FullName: "Kim Student", Role: model.RoleStudent, Timezone: "Asia/Tokyo"}
	adminUser   = &model.User{ID: 1, FullName: "Platform Admin", Role: model.RoleAdmin, Timezone: "UTC"}
)

func testBooking(status model.BookingStatus) *model.Booking {
	subject := "Algebra"
	return &model.Booking{
		ID:        7,
		StudentID: 4,
		TutorID:   3,
		Date:      time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
		StartTime: model.NewClockTime(15, 0),
		EndTime:   model.NewClockTime(16, 0),
		Status:    status,
		Subject:   &subject,
	}
}

func callbacks(t *testing.T, b *model.Booking, user *model.User) []string {
	t.Helper()

	kb := BookingKeyboard(b, user)
	if kb == nil {
		return nil
	}
	require.Len(t, kb.InlineKeyboard, 1)

	var out []string
	for _, btn := range kb.InlineKeyboard[0] {
		out = append(out, btn.CallbackData)
	}
	return out
}

func TestBookingKeyboard(t *testing.T) {
	pending := testBooking(model.BookingStatusPending)
	confirmed := testBooking(model.BookingStatusConfirmed)

	assert.Equal(t, []string{"booking_confirm:7", "booking_reschedule:7", "booking_cancel:7"}, callbacks(t, pending, tutorUser))
	assert.Equal(t, []string{"booking_reschedule:7", "booking_cancel:7"}, callbacks(t, confirmed, tutorUser))
	assert.Equal(t, []string{"booking_confirm:7", "booking_reschedule:7", "booking_cancel:7"}, callbacks(t, pending, adminUser))
	assert.Equal(t, []string{"booking_cancel:7"}, callbacks(t, pending, studentUser))
	assert.Nil(t, callbacks(t, pending, otherUser))
	assert.Nil(t, callbacks(t, testBooking(model.BookingStatusCancelled), tutorUser))
	assert.Nil(t, callbacks(t, testBooking(model.BookingStatusCompleted), studentUser))
}

func TestFormatBookingUsesRecipientTimezone(t *testing.T) {
	b := testBooking(model.BookingStatusConfirmed)

	text := FormatBooking(b, Location(tutorUser), "Alex Student")
	assert.Contains(t, text, "Запись #7")
	assert.Contains(t, text, "06.01.2026 10:00–11:00 (America/New_York)")
	assert.Contains(t, text, "Alex Student")
	assert.Contains(t, text, "Algebra")
	assert.Contains(t, text, "Подтверждена")

	tokyo := FormatBooking(b, Location(otherUser), "")
	assert.Contains(t, tokyo, "07.01.2026 00:00–01:00 (Asia/Tokyo)")
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Location(&model.User{Timezone: "Mars/Base"}))
	assert.Equal(t, time.UTC, Location(&model.User{}))
	assert.Equal(t, "Europe/Berlin", Location(studentUser).String())
}

func TestParseTimeRange(t *testing.T) {
	start, end, ok := ParseTimeRange(" 10:00 - 11:30 ")
	require.True(t, ok)
	assert.Equal(t, "10:00", start)
	assert.Equal(t, "11:30", end)

	start, end, ok = ParseTimeRange("9:00–10:00")
	require.True(t, ok)
	assert.Equal(t, "9:00", start)
	assert.Equal(t, "10:00", end)

	for _, bad := range []string{"", "10:00", "10-11", "25:00-26:00", "10:00-ab:cd"} {
		_, _, ok := ParseTimeRange(bad)
		assert.False(t, ok, bad)
	}
}

func TestScheduleTarget(t *testing.T) {
	id, ok := scheduleTarget("/schedule", tutorUser)
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)

	_, ok = scheduleTarget("/schedule", studentUser)
	assert.False(t, ok)

	id, ok = scheduleTarget("/schedule 2", studentUser)
	assert.True(t, ok)
	assert.Equal(t, int64(2), id)

	_, ok = scheduleTarget("/schedule john", studentUser)
	assert.False(t, ok)
}

func TestErrorText(t *testing.T) {
	assert.Contains(t, ErrorText(apperror.New(apperror.KindSlotConflict, "the tutor already has a booking")), "уже занято")
	assert.Contains(t, ErrorText(apperror.New(apperror.KindBookingWindow, "cannot book within 24 hours")), "cannot book within 24 hours")
	assert.Contains(t, ErrorText(apperror.New(apperror.KindForbidden, "nope")), "прав")
	assert.Equal(t, "❌ Произошла ошибка. Попробуйте позже.", ErrorText(errors.New("boom")))
	assert.Equal(t, "❌ Произошла ошибка. Попробуйте позже.", ErrorText(apperror.Persistence(errors.New("db down"))))
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(apperror.New(apperror.KindSlotConflict, "x")))
	assert.True(t, retryable(apperror.New(apperror.KindBookingWindow, "x")))
	assert.False(t, retryable(apperror.New(apperror.KindNotFound, "x")))
	assert.False(t, retryable(apperror.New(apperror.KindInvalidTransition, "x")))
	assert.False(t, retryable(errors.New("boom")))
}

func TestFormatSchedule(t *testing.T) {
	assert.Contains(t, FormatSchedule("John Carter", "UTC", nil), "не заполнено")

	text := FormatSchedule("John Carter", "Europe/Berlin", []model.LocalSlot{
		{Day: model.Monday, StartLocal: model.NewClockTime(15, 0), EndLocal: model.NewClockTime(16, 0), IsAvailable: true},
		{Day: model.Monday, StartLocal: model.NewClockTime(17, 0), EndLocal: model.NewClockTime(18, 0), IsAvailable: false},
		{Day: model.Friday, StartLocal: model.NewClockTime(5, 0), EndLocal: model.NewClockTime(8, 0), IsAvailable: true},
	})
	assert.Contains(t, text, "Понедельник\n🟢 15:00–16:00\n⚪️ 17:00–18:00")
	assert.Contains(t, text, "Пятница\n🟢 05:00–08:00")
}

func TestCounterpartOf(t *testing.T) {
	b := testBooking(model.BookingStatusPending)
	assert.Equal(t, int64(4), counterpartOf(b, tutorUser))
	assert.Equal(t, int64(3), counterpartOf(b, studentUser))
}
