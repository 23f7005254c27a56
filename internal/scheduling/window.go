package scheduling

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
)

const (
	DefaultMinLeadDays = 1
	DefaultMaxLeadDays = 14
)

// Window допустимый диапазон дат бронирования относительно сегодняшнего дня
type Window struct {
	MinLeadDays int
	MaxLeadDays int
}

// DefaultWindow [сегодня+1, сегодня+14]
func DefaultWindow() Window {
	return Window{MinLeadDays: DefaultMinLeadDays, MaxLeadDays: DefaultMaxLeadDays}
}

// Check проверяет, что date лежит в [today+MinLeadDays, today+MaxLeadDays].
// Обе даты сравниваются как календарные дни.
func (w Window) Check(date, today time.Time) error {
	days := DaysBetween(today, date)
	if days < w.MinLeadDays {
		return apperror.New(apperror.KindBookingWindow, "cannot book within 24 hours")
	}
	if days > w.MaxLeadDays {
		return apperror.New(apperror.KindBookingWindow,
			fmt.Sprintf("cannot book more than %d days in advance", w.MaxLeadDays))
	}
	return nil
}

// First первая дата, доступная для бронирования
func (w Window) First(today time.Time) time.Time {
	return DateOf(today).AddDate(0, 0, w.MinLeadDays)
}

// Last последняя дата, доступная для бронирования
func (w Window) Last(today time.Time) time.Time {
	return DateOf(today).AddDate(0, 0, w.MaxLeadDays)
}

// DaysBetween количество календарных дней от from до to
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
