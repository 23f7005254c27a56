package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Callback data кнопок бронирования: <prefix><bookingID>
const (
	CallbackConfirm    = "booking_confirm:"
	CallbackCancel     = "booking_cancel:"
	CallbackReschedule = "booking_reschedule:"
)

// StatusDisplay emoji и текст статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

func GetStatusDisplay(status model.BookingStatus) StatusDisplay {
	switch status {
	case model.BookingStatusPending:
		return StatusDisplay{"⏳", "Ожидает подтверждения"}
	case model.BookingStatusConfirmed:
		return StatusDisplay{"✅", "Подтверждена"}
	case model.BookingStatusCancelled:
		return StatusDisplay{"❌", "Отменена"}
	case model.BookingStatusCompleted:
		return StatusDisplay{"🏁", "Проведена"}
	default:
		return StatusDisplay{"❓", string(status)}
	}
}

// FormatBooking бронирование в часовом поясе получателя
func FormatBooking(b *model.Booking, loc *time.Location, counterpart string) string {
	display := GetStatusDisplay(b.Status)
	date, start, end := scheduling.InLocation(b, loc)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Запись #%d\n\n", display.Emoji, b.ID)
	fmt.Fprintf(&sb, "📅 %s %s–%s (%s)\n", date.Format("02.01.2006"), start, end, loc)
	if counterpart != "" {
		fmt.Fprintf(&sb, "👤 %s\n", counterpart)
	}
	if b.Subject != nil {
		fmt.Fprintf(&sb, "📚 %s\n", *b.Subject)
	}
	fmt.Fprintf(&sb, "📊 Статус: %s", display.Text)
	return sb.String()
}

// BookingKeyboard кнопки действий, доступных пользователю для бронирования
func BookingKeyboard(b *model.Booking, user *model.User) *models.InlineKeyboardMarkup {
	if !b.Status.IsActive() {
		return nil
	}

	id := strconv.FormatInt(b.ID, 10)
	isTutor := user.ID == b.TutorID || user.Role == model.RoleAdmin

	var row []models.InlineKeyboardButton
	if isTutor && b.Status == model.BookingStatusPending {
		row = append(row, button("✅ Подтвердить", CallbackConfirm+id))
	}
	if isTutor {
		row = append(row, button("🔁 Перенести", CallbackReschedule+id))
	}
	if isTutor || user.ID == b.StudentID {
		row = append(row, button("❌ Отменить", CallbackCancel+id))
	}
	if len(row) == 0 {
		return nil
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

func button(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

// ErrorText сообщение пользователю для ошибки сервиса
func ErrorText(err error) string {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return "❌ Произошла ошибка. Попробуйте позже."
	}

	switch appErr.Kind {
	case apperror.KindInvalidTimeFormat:
		return "❌ Неверный формат времени. Используйте ЧЧ:ММ, например 09:30."
	case apperror.KindInvalidTimeRange:
		return "❌ Неверный интервал: " + appErr.Error()
	case apperror.KindBookingWindow:
		return "❌ Дата вне окна бронирования: " + appErr.Error()
	case apperror.KindSlotConflict:
		return "❌ Это время уже занято: " + appErr.Error()
	case apperror.KindOutsideAvailability:
		return "❌ Учитель не работает в это время."
	case apperror.KindNotFound:
		return "❌ Не найдено: " + appErr.Error()
	case apperror.KindForbidden:
		return "❌ Недостаточно прав для этого действия."
	case apperror.KindInvalidTransition:
		return "❌ Действие недоступно: " + appErr.Error()
	case apperror.KindValidation:
		return "❌ " + appErr.Error()
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}

func notLinkedText(telegramID int64) string {
	return fmt.Sprintf(
		"❌ Ваш Telegram не привязан к аккаунту TutorConnect.\n\n"+
			"Ваш Telegram ID: %d\n"+
			"Попросите администратора привязать его к профилю.",
		telegramID,
	)
}

// Location часовой пояс пользователя, UTC если пояс не задан или неизвестен
func Location(user *model.User) *time.Location {
	loc, err := scheduling.LoadLocation(user.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) SendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// counterpartNames имена пользователей по ID для подписи бронирований
func (h *Handlers) counterpartNames(ctx context.Context, ids []int64) map[int64]string {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names
	}

	users, err := h.users.GetByIDs(ctx, ids)
	if err != nil {
		h.logger.Warn("Failed to load user names", zap.Error(err))
		return names
	}
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	return names
}
