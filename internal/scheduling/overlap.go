package scheduling

import (
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/model"
)

// Overlaps полуоткрытые интервалы [aStart,aEnd) и [bStart,bEnd) пересекаются.
// Касание (конец одного равен началу другого) пересечением не считается.
func Overlaps(aStart, aEnd, bStart, bEnd model.ClockTime) bool {
	return aStart < bEnd && bStart < aEnd
}

// OverlapsAt то же для моментов времени
func OverlapsAt(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// FindConflict ищет активное бронирование, пересекающееся с [start,end).
// Бронирование с excludeID пропускается (перенос).
func FindConflict(existing []*model.Booking, start, end time.Time, excludeID int64) *model.Booking {
	for _, b := range existing {
		if b.ID == excludeID || !b.Status.IsActive() {
			continue
		}
		if OverlapsAt(b.StartsAt(), b.EndsAt(), start, end) {
			return b
		}
	}
	return nil
}

// Covers интервал [start,end) целиком лежит внутри одного из доступных слотов
func Covers(slots []model.LocalSlot, start, end model.ClockTime) bool {
	for _, s := range slots {
		if !s.IsAvailable {
			continue
		}
		if s.StartLocal <= start && end <= s.EndLocal {
			return true
		}
	}
	return false
}
