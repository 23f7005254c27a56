package state

// UserState текущий шаг диалога пользователя
type UserState string

const (
	StateNone UserState = "" // Нет активного диалога

	// Перенос бронирования: сначала дата, потом время
	StateRescheduleDate UserState = "reschedule_date"
	StateRescheduleTime UserState = "reschedule_time"
)

// Dialog данные незавершённого диалога
type Dialog struct {
	State     UserState
	BookingID int64
	Date      string // YYYY-MM-DD, заполняется на первом шаге переноса
}
