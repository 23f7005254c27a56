package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestLoadLocation(t *testing.T) {
	_, err := LoadLocation("America/New_York")
	require.NoError(t, err)

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = LoadLocation("  ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestToReferenceNewYorkWinter(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	ref := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

	start := ToReference(ref, model.NewClockTime(9, 0), ny)
	end := ToReference(ref, model.NewClockTime(10, 0), ny)
	assert.Equal(t, "14:00", start.String())
	assert.Equal(t, "15:00", end.String())

	assert.Equal(t, "09:00", FromReference(ref, start, ny).String())
	assert.Equal(t, "10:00", FromReference(ref, end, ny).String())
}

func TestToReferenceNewYorkSummer(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	ref := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "13:00", ToReference(ref, model.NewClockTime(9, 0), ny).String())
}

func TestReferenceRoundTrip(t *testing.T) {
	zones := []string{"UTC", "America/New_York", "Europe/Moscow", "Asia/Tokyo", "Asia/Kolkata", "Pacific/Auckland", "America/St_Johns"}
	refs := []time.Time{
		time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC),
	}

	for _, zone := range zones {
		loc := mustLoad(t, zone)
		for _, ref := range refs {
			for minute := 0; minute < model.MinutesPerDay; minute += 15 {
				local := model.ClockTime(minute)
				utc := ToReference(ref, local, loc)
				assert.Equal(t, local, FromReference(ref, utc, loc), "%s %s %s", zone, ref.Format(time.DateOnly), local)
			}
		}
	}
}

func TestToReferenceCrossesUTCMidnight(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	ref := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

	// 20:00-22:00 в Нью-Йорке это 01:00-03:00 следующего дня по UTC
	start := ToReference(ref, model.NewClockTime(20, 0), ny)
	end := ToReference(ref, model.NewClockTime(22, 0), ny)
	assert.Equal(t, "01:00", start.String())
	assert.Equal(t, "03:00", end.String())

	// 18:00-21:00 в Нью-Йорке переходит через полночь UTC
	start = ToReference(ref, model.NewClockTime(18, 0), ny)
	end = ToReference(ref, model.NewClockTime(21, 0), ny)
	assert.Equal(t, "23:00", start.String())
	assert.Equal(t, "02:00", end.String())
	assert.True(t, end < start)
}

func TestNormalize(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	date := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)

	in, err := Normalize(date, model.NewClockTime(9, 0), model.NewClockTime(10, 0), ny)
	require.NoError(t, err)
	assert.Equal(t, date, in.Date)
	assert.Equal(t, "14:00", in.Start.String())
	assert.Equal(t, "15:00", in.End.String())

	in, err = Normalize(date, model.NewClockTime(20, 0), model.NewClockTime(21, 0), ny)
	require.NoError(t, err)
	assert.Equal(t, date.AddDate(0, 0, 1), in.Date)
	assert.Equal(t, "01:00", in.Start.String())

	in, err = Normalize(date, model.NewClockTime(18, 0), model.NewClockTime(19, 0), ny)
	require.NoError(t, err)
	assert.Equal(t, model.ClockTime(model.MinutesPerDay), in.End)

	// Урок переходит через полночь UTC: дата начала, конец после 24:00
	in, err = Normalize(date, model.NewClockTime(18, 30), model.NewClockTime(19, 30), ny)
	require.NoError(t, err)
	assert.Equal(t, date, in.Date)
	assert.Equal(t, "23:30", in.Start.String())
	assert.Equal(t, model.ClockTime(model.MinutesPerDay+30), in.End)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 30, 0, 0, time.UTC), in.EndsAt())

	tokyo := mustLoad(t, "Asia/Tokyo")
	in, err = Normalize(date, model.NewClockTime(8, 30), model.NewClockTime(9, 30), tokyo)
	require.NoError(t, err)
	assert.Equal(t, date.AddDate(0, 0, -1), in.Date)
	assert.Equal(t, time.Date(2026, 1, 13, 23, 30, 0, 0, time.UTC), in.StartsAt())
	assert.Equal(t, time.Date(2026, 1, 14, 0, 30, 0, 0, time.UTC), in.EndsAt())

	_, err = Normalize(date, model.NewClockTime(10, 0), model.NewClockTime(10, 0), time.UTC)
	assert.True(t, errors.Is(err, apperror.ErrInvalidTimeRange))
}

func TestInLocation(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	b := &model.Booking{
		Date:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		StartTime: model.NewClockTime(1, 0),
		EndTime:   model.NewClockTime(2, 0),
	}

	date, start, end := InLocation(b, ny)
	assert.Equal(t, time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC), date)
	assert.Equal(t, "20:00", start.String())
	assert.Equal(t, "21:00", end.String())
}

func TestWindowCheck(t *testing.T) {
	w := DefaultWindow()
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		offset int
		ok     bool
		msg    string
	}{
		{offset: -1, msg: "cannot book within 24 hours"},
		{offset: 0, msg: "cannot book within 24 hours"},
		{offset: 1, ok: true},
		{offset: 7, ok: true},
		{offset: 14, ok: true},
		{offset: 15, msg: "cannot book more than 14 days in advance"},
		{offset: 60, msg: "cannot book more than 14 days in advance"},
	}

	for _, c := range cases {
		err := w.Check(today.AddDate(0, 0, c.offset), today)
		if c.ok {
			assert.NoError(t, err, "offset %d", c.offset)
			continue
		}
		require.Error(t, err, "offset %d", c.offset)
		assert.True(t, errors.Is(err, apperror.ErrBookingWindow))
		assert.Equal(t, c.msg, err.Error())
	}

	assert.Equal(t, today.AddDate(0, 0, 1), w.First(today))
	assert.Equal(t, today.AddDate(0, 0, 14), w.Last(today))
}

func TestTodayUsesLocation(t *testing.T) {
	tokyo := mustLoad(t, "Asia/Tokyo")
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), Today(now, tokyo))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Today(now, time.UTC))
}

func TestOverlaps(t *testing.T) {
	at := model.NewClockTime
	assert.True(t, Overlaps(at(14, 0), at(15, 0), at(14, 30), at(15, 30)))
	assert.True(t, Overlaps(at(14, 0), at(15, 0), at(13, 0), at(16, 0)))
	assert.False(t, Overlaps(at(14, 0), at(15, 0), at(15, 0), at(16, 0)))
	assert.False(t, Overlaps(at(14, 0), at(15, 0), at(13, 0), at(14, 0)))
}

func TestFindConflict(t *testing.T) {
	day := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	existing := []*model.Booking{
		{ID: 1, Date: day, StartTime: model.NewClockTime(14, 0), EndTime: model.NewClockTime(15, 0), Status: model.BookingStatusPending},
		{ID: 2, Date: day, StartTime: model.NewClockTime(16, 0), EndTime: model.NewClockTime(17, 0), Status: model.BookingStatusCancelled},
		// 23:30-00:30 следующего дня
		{ID: 3, Date: day, StartTime: model.NewClockTime(23, 30), EndTime: model.MinutesPerDay + 30, Status: model.BookingStatusConfirmed},
	}

	assert.Equal(t, int64(1), FindConflict(existing, at(14, 30), at(15, 30), 0).ID)
	assert.Nil(t, FindConflict(existing, at(14, 30), at(15, 30), 1))
	assert.Nil(t, FindConflict(existing, at(16, 0), at(17, 0), 0))
	assert.Nil(t, FindConflict(existing, at(15, 0), at(16, 0), 0))
	assert.Equal(t, int64(3), FindConflict(existing, at(24, 0), at(25, 0), 0).ID)
	assert.Nil(t, FindConflict(existing, at(24, 30), at(25, 30), 0))
}

func TestDayRange(t *testing.T) {
	tokyo := mustLoad(t, "Asia/Tokyo")
	date := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

	from, to := DayRange(date, date, tokyo)
	assert.Equal(t, time.Date(2026, 1, 7, 15, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 1, 8, 15, 0, 0, 0, time.UTC), to)
}

func TestCovers(t *testing.T) {
	at := model.NewClockTime
	slots := []model.LocalSlot{
		{StartLocal: at(9, 0), EndLocal: at(12, 0), IsAvailable: true},
		{StartLocal: at(13, 0), EndLocal: at(14, 0), IsAvailable: false},
	}

	assert.True(t, Covers(slots, at(9, 0), at(10, 0)))
	assert.True(t, Covers(slots, at(11, 0), at(12, 0)))
	assert.False(t, Covers(slots, at(11, 30), at(12, 30)))
	assert.False(t, Covers(slots, at(13, 0), at(14, 0)))
	assert.False(t, Covers(nil, at(9, 0), at(10, 0)))
}
