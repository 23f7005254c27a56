package handlers

import (
	"context"
	"strings"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/controller/state"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/Freeeeeet/tutorconnect/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	rescheduleDatePrompt = "📅 Введите новую дату в формате ГГГГ-ММ-ДД, например 2026-01-15.\n\nДля отмены: /cancel"
	rescheduleTimePrompt = "🕐 Введите время в формате ЧЧ:ММ-ЧЧ:ММ, например 10:00-11:00.\n\nДля отмены: /cancel"
)

// StartReschedule начинает диалог переноса бронирования
func (h *Handlers) StartReschedule(ctx context.Context, b *bot.Bot, chatID, telegramID, bookingID int64) {
	h.stateManager.StartReschedule(telegramID, bookingID)
	h.SendMessage(ctx, b, chatID, rescheduleDatePrompt, nil)
}

func (h *Handlers) handleRescheduleDateStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	dialog, ok := h.stateManager.Get(telegramID)
	if !ok {
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if _, err := scheduling.ParseDate(text); err != nil {
		h.SendMessage(ctx, b, chatID, "❌ Неверный формат даты.\n\n"+rescheduleDatePrompt, nil)
		return
	}

	dialog.State = state.StateRescheduleTime
	dialog.Date = text
	h.stateManager.Set(telegramID, dialog)

	h.SendMessage(ctx, b, chatID, rescheduleTimePrompt, nil)
}

func (h *Handlers) handleRescheduleTimeStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	dialog, ok := h.stateManager.Get(telegramID)
	if !ok {
		return
	}

	start, end, ok := ParseTimeRange(update.Message.Text)
	if !ok {
		h.SendMessage(ctx, b, chatID, "❌ Неверный формат.\n\n"+rescheduleTimePrompt, nil)
		return
	}

	user, ok := h.LookupUser(ctx, b, chatID, telegramID)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	date, err := scheduling.ParseDate(dialog.Date)
	if err != nil {
		h.stateManager.ClearState(telegramID)
		h.SendMessage(ctx, b, chatID, ErrorText(err), nil)
		return
	}

	loc := Location(user)
	booking, err := h.bookings.RescheduleBooking(ctx, model.ActorOf(user), dialog.BookingID, service.RescheduleRequest{
		Date:     date,
		Start:    start,
		End:      end,
		Timezone: loc.String(),
	})
	if err != nil {
		h.logger.Info("Reschedule rejected",
			zap.Int64("booking_id", dialog.BookingID),
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		if !retryable(err) {
			h.stateManager.ClearState(telegramID)
			h.SendMessage(ctx, b, chatID, ErrorText(err), nil)
			return
		}
		h.SendMessage(ctx, b, chatID, ErrorText(err)+"\n\n"+rescheduleTimePrompt, nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.SendMessage(ctx, b, chatID, "✅ Запись перенесена.\n\n"+FormatBooking(booking, loc, ""), BookingKeyboard(booking, user))
}

// retryable ошибка исправляется вводом другого времени, диалог продолжается
func retryable(err error) bool {
	switch apperror.KindOf(err) {
	case apperror.KindInvalidTimeFormat, apperror.KindInvalidTimeRange, apperror.KindBookingWindow,
		apperror.KindSlotConflict, apperror.KindOutsideAvailability:
		return true
	default:
		return false
	}
}

// ParseTimeRange разбирает "10:00-11:00" на начало и конец
func ParseTimeRange(text string) (start, end string, ok bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), "–", "-")
	start, end, ok = strings.Cut(text, "-")
	if !ok {
		return "", "", false
	}
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if _, err := model.ParseClock(start); err != nil {
		return "", "", false
	}
	if _, err := model.ParseClock(end); err != nil {
		return "", "", false
	}
	return start, end, true
}
