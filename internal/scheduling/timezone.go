package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
)

// LoadLocation разбирает IANA-имя часового пояса ("America/New_York")
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.New(apperror.KindValidation, "timezone is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, fmt.Sprintf("unknown timezone %q", name), err)
	}
	return loc, nil
}

// DateOf возвращает календарную дату t (в её часовом поясе) как полночь UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today текущая календарная дата в часовом поясе loc
func Today(now time.Time, loc *time.Location) time.Time {
	return DateOf(now.In(loc))
}

// ParseDate разбирает дату "YYYY-MM-DD"
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperror.Wrap(apperror.KindValidation, fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s), err)
	}
	return d, nil
}

// LocalDateTime момент времени "дата + время суток" в часовом поясе loc
func LocalDateTime(date time.Time, clock model.ClockTime, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)
}

// ToReference переводит местное время суток в UTC, используя опорную дату ref.
// Дата после перевода отбрасывается, остаётся только время суток.
func ToReference(ref time.Time, local model.ClockTime, loc *time.Location) model.ClockTime {
	t := LocalDateTime(ref, local, loc).UTC()
	return model.NewClockTime(t.Hour(), t.Minute())
}

// FromReference обратное преобразование: время суток UTC на опорной дате ref в местное время
func FromReference(ref time.Time, utc model.ClockTime, loc *time.Location) model.ClockTime {
	t := LocalDateTime(ref, utc, time.UTC).In(loc)
	return model.NewClockTime(t.Hour(), t.Minute())
}

// Interval интервал бронирования в UTC: дата начала и минуты от начала этой даты.
// End может быть больше 24:00, если урок заканчивается на следующие сутки UTC.
type Interval struct {
	Date  time.Time
	Start model.ClockTime
	End   model.ClockTime
}

// StartsAt момент начала в UTC
func (in Interval) StartsAt() time.Time {
	return in.Date.Add(time.Duration(in.Start) * time.Minute)
}

// EndsAt момент окончания в UTC
func (in Interval) EndsAt() time.Time {
	return in.Date.Add(time.Duration(in.End) * time.Minute)
}

// Normalize переводит местные дату и время бронирования в UTC
func Normalize(date time.Time, start, end model.ClockTime, loc *time.Location) (Interval, error) {
	startAt := LocalDateTime(date, start, loc).UTC()
	endAt := LocalDateTime(date, end, loc).UTC()
	if !endAt.After(startAt) {
		return Interval{}, apperror.New(apperror.KindInvalidTimeRange, "end time must be after start time")
	}

	day := DateOf(startAt)
	return Interval{
		Date:  day,
		Start: model.NewClockTime(startAt.Hour(), startAt.Minute()),
		End:   model.ClockTime(endAt.Sub(day) / time.Minute),
	}, nil
}

// DayRange границы местных дат [from 00:00, to+1 00:00) в часовом поясе loc как моменты UTC
func DayRange(from, to time.Time, loc *time.Location) (time.Time, time.Time) {
	return LocalDateTime(from, 0, loc).UTC(), LocalDateTime(to.AddDate(0, 0, 1), 0, loc).UTC()
}

// InLocation возвращает местные дату и время бронирования для отображения
func InLocation(b *model.Booking, loc *time.Location) (date time.Time, start, end model.ClockTime) {
	startAt := b.StartsAt().In(loc)
	endAt := b.EndsAt().In(loc)
	return DateOf(startAt),
		model.NewClockTime(startAt.Hour(), startAt.Minute()),
		model.NewClockTime(endAt.Hour(), endAt.Minute())
}
