package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/go-playground/validator/v10"
)

type createSlotRequest struct {
	Day         string `json:"day_of_week" validate:"required"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	Timezone    string `json:"timezone"`
	IsAvailable *bool  `json:"is_available"`
}

type replaceScheduleRequest struct {
	Timezone string                           `json:"timezone"`
	Schedule map[string][]model.ScheduleEntry `json:"schedule" validate:"required"`
}

type createBookingRequest struct {
	StudentID int64   `json:"student_id" validate:"omitempty,gt=0"`
	TutorID   int64   `json:"tutor_id" validate:"required,gt=0"`
	Date      string  `json:"date" validate:"required"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Timezone  string  `json:"timezone"`
	Subject   *string `json:"subject" validate:"omitempty,max=100"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
}

type rescheduleRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Timezone  string `json:"timezone"`
}

type scheduleResponse struct {
	TutorID  int64             `json:"tutor_id"`
	Timezone string            `json:"timezone"`
	Slots    []model.LocalSlot `json:"slots"`
}

type bookingResponse struct {
	ID         int64               `json:"id"`
	StudentID  int64               `json:"student_id"`
	TutorID    int64               `json:"tutor_id"`
	Status     model.BookingStatus `json:"status"`
	DateUTC    string              `json:"date_utc"`
	StartUTC   string              `json:"start_time_utc"`
	EndUTC     string              `json:"end_time_utc"`
	StartsAt   time.Time           `json:"starts_at"`
	EndsAt     time.Time           `json:"ends_at"`
	Timezone   string              `json:"timezone"`
	DateLocal  string              `json:"date_local"`
	StartLocal string              `json:"start_time_local"`
	EndLocal   string              `json:"end_time_local"`
	Subject    *string             `json:"subject"`
	Notes      *string             `json:"notes"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func newBookingResponse(b *model.Booking, loc *time.Location) bookingResponse {
	date, start, end := scheduling.InLocation(b, loc)
	return bookingResponse{
		ID:         b.ID,
		StudentID:  b.StudentID,
		TutorID:    b.TutorID,
		Status:     b.Status,
		DateUTC:    b.Date.Format(time.DateOnly),
		StartUTC:   b.StartTime.String(),
		EndUTC:     b.EndClockUTC().String(),
		StartsAt:   b.StartsAt(),
		EndsAt:     b.EndsAt(),
		Timezone:   loc.String(),
		DateLocal:  date.Format(time.DateOnly),
		StartLocal: start.String(),
		EndLocal:   end.String(),
		Subject:    b.Subject,
		Notes:      b.Notes,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func newBookingResponses(bookings []*model.Booking, loc *time.Location) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, newBookingResponse(b, loc))
	}
	return out
}

// validationError собирает ошибки validator в одно сообщение
func validationError(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.Wrap(apperror.KindValidation, err.Error(), err)
	}

	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return apperror.Wrap(apperror.KindValidation, "invalid request: "+strings.Join(parts, "; "), err)
}
