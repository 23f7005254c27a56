package model

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay количество минут в сутках; ClockTime(MinutesPerDay) означает "24:00"
const MinutesPerDay = 24 * 60

// ClockTime время суток в минутах от полуночи
type ClockTime int

// NewClockTime создаёт время суток из часов и минут
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock разбирает строку "HH:MM" (00:00-23:59)
func ParseClock(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}

	return NewClockTime(hour, minute), nil
}

// Hour возвращает часы
func (c ClockTime) Hour() int {
	return int(c) / 60
}

// Minute возвращает минуты
func (c ClockTime) Minute() int {
	return int(c) % 60
}

// Valid проверяет, что значение лежит в пределах суток (24:00 допустимо)
func (c ClockTime) Valid() bool {
	return c >= 0 && c <= MinutesPerDay
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
