package model

import (
	"fmt"
	"strings"
	"time"
)

// DayOfWeek день недели, понедельник = 0
type DayOfWeek int

const (
	Monday DayOfWeek = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Weekdays все дни недели в порядке отображения
var Weekdays = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// ParseDayOfWeek разбирает название дня ("monday", "MONDAY", "Mon")
func ParseDayOfWeek(name string) (DayOfWeek, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, dayName := range dayNames {
		if name == dayName || (len(name) == 3 && strings.HasPrefix(dayName, name)) {
			return DayOfWeek(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", name)
}

// DayOf возвращает день недели для time.Weekday
func DayOf(w time.Weekday) DayOfWeek {
	return DayOfWeek((int(w) + 6) % 7)
}

// Valid проверяет диапазон
func (d DayOfWeek) Valid() bool {
	return d >= Monday && d <= Sunday
}

// Weekday переводит обратно в time.Weekday
func (d DayOfWeek) Weekday() time.Weekday {
	return time.Weekday((int(d) + 1) % 7)
}

func (d DayOfWeek) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DayOfWeek(%d)", int(d))
	}
	return dayNames[d]
}

func (d DayOfWeek) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DayOfWeek) UnmarshalText(text []byte) error {
	parsed, err := ParseDayOfWeek(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
