package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot еженедельный интервал доступности учителя.
// Day хранит день недели в часовом поясе учителя, StartTime/EndTime — время суток в UTC.
type AvailabilitySlot struct {
	ID          int64     `json:"id"`
	GroupID     uuid.UUID `json:"group_id"` // ревизия расписания, одна на вызов замены/создания
	TutorID     int64     `json:"tutor_id"`
	Day         DayOfWeek `json:"day_of_week"`
	StartTime   ClockTime `json:"start_time_utc"`
	EndTime     ClockTime `json:"end_time_utc"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WrapsMidnightUTC сообщает, что в UTC интервал переходит через полночь (конец раньше начала)
func (s *AvailabilitySlot) WrapsMidnightUTC() bool {
	return s.EndTime <= s.StartTime
}

// WeeklySchedule слоты учителя по дням недели в порядке создания
type WeeklySchedule map[DayOfWeek][]*AvailabilitySlot

// Clone возвращает глубокую копию расписания
func (w WeeklySchedule) Clone() WeeklySchedule {
	out := make(WeeklySchedule, len(w))
	for day, slots := range w {
		copied := make([]*AvailabilitySlot, 0, len(slots))
		for _, slot := range slots {
			s := *slot
			copied = append(copied, &s)
		}
		out[day] = copied
	}
	return out
}

// Len общее количество слотов
func (w WeeklySchedule) Len() int {
	n := 0
	for _, slots := range w {
		n += len(slots)
	}
	return n
}

// ScheduleEntry один интервал из формы замены расписания (местное время учителя)
type ScheduleEntry struct {
	Start     string `json:"start_time"`
	End       string `json:"end_time"`
	Available bool   `json:"is_available"`
}

// LocalSlot слот расписания в местном времени для отображения
type LocalSlot struct {
	ID          int64     `json:"id"`
	Day         DayOfWeek `json:"day_of_week"`
	StartUTC    ClockTime `json:"start_time_utc"`
	EndUTC      ClockTime `json:"end_time_utc"`
	StartLocal  ClockTime `json:"start_time_local"`
	EndLocal    ClockTime `json:"end_time_local"`
	IsAvailable bool      `json:"is_available"`
}
