package apperror

import "errors"

// Kind классифицирует ошибку для вызывающей стороны
type Kind string

const (
	KindValidation          Kind = "validation"
	KindInvalidTimeFormat   Kind = "invalid_time_format"
	KindInvalidTimeRange    Kind = "invalid_time_range"
	KindBookingWindow       Kind = "booking_window"
	KindSlotConflict        Kind = "slot_conflict"
	KindOutsideAvailability Kind = "outside_availability"
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindInvalidTransition   Kind = "invalid_transition"
	KindPersistence         Kind = "persistence"
)

// Error ошибка с типом и сообщением для пользователя
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает по Kind, чтобы errors.Is(err, ErrSlotConflict) работал для любого сообщения
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinel-значения для errors.Is
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrInvalidTimeFormat   = &Error{Kind: KindInvalidTimeFormat}
	ErrInvalidTimeRange    = &Error{Kind: KindInvalidTimeRange}
	ErrBookingWindow       = &Error{Kind: KindBookingWindow}
	ErrSlotConflict        = &Error{Kind: KindSlotConflict}
	ErrOutsideAvailability = &Error{Kind: KindOutsideAvailability}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrPersistence         = &Error{Kind: KindPersistence}
)

// New создаёт ошибку указанного типа
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap создаёт ошибку указанного типа поверх исходной
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Persistence оборачивает ошибку хранилища: пользователю стоит повторить попытку
func Persistence(err error) *Error {
	return Wrap(KindPersistence, "storage is temporarily unavailable, please try again", err)
}

// KindOf возвращает тип ошибки или пустую строку для нетипизированных ошибок
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsInputError сообщает, что ошибку исправляет пользователь, а не повтор запроса
func IsInputError(err error) bool {
	switch KindOf(err) {
	case "", KindPersistence:
		return false
	default:
		return true
	}
}
