package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/tutorconnect/internal/controller/render"
	"github.com/Freeeeeet/tutorconnect/internal/controller/state"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// maxBookingsShown сколько бронирований /mybookings показывает за раз
const maxBookingsShown = 10

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	user, ok := h.LookupUser(ctx, b, update.Message.Chat.ID, update.Message.From.ID)
	if !ok {
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Это бот TutorConnect для записи на занятия.\n"+
			"Ваш часовой пояс: %s\n\n"+
			"/mybookings - Мои записи\n"+
			"/schedule <ID учителя> - Расписание учителя\n"+
			"/help - Справка",
		user.FullName,
		Location(user),
	)

	h.SendMessage(ctx, b, update.Message.Chat.ID, welcomeText, nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📚 Справка по командам:\n\n" +
		"/start - Начать работу с ботом\n" +
		"/mybookings - Мои записи на занятия\n" +
		"/schedule - Моё расписание (учитель)\n" +
		"/schedule <ID> - Расписание учителя\n" +
		"/cancel - Отменить текущий диалог\n" +
		"/help - Показать эту справку\n\n" +
		"Время показывается в вашем часовом поясе."

	h.SendMessage(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.SendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.", nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.SendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.", nil)
}

// HandleMyBookings обрабатывает команду /mybookings.
// Учитель видит активные записи в окне бронирования, студент - все свои записи.
func (h *Handlers) HandleMyBookings(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, ok := h.LookupUser(ctx, b, chatID, update.Message.From.ID)
	if !ok {
		return
	}
	actor := model.ActorOf(user)
	loc := Location(user)

	var bookings []*model.Booking
	var err error
	if user.Role == model.RoleTutor {
		today := scheduling.Today(h.now(), loc)
		bookings, err = h.bookings.ListTutorBookings(ctx, actor, user.ID, today, h.bookings.Window().Last(today), loc)
	} else {
		bookings, err = h.bookings.ListStudentBookings(ctx, actor, user.ID)
	}
	if err != nil {
		h.logger.Error("Failed to list bookings", zap.Int64("user_id", user.ID), zap.Error(err))
		h.SendMessage(ctx, b, chatID, ErrorText(err), nil)
		return
	}

	if len(bookings) == 0 {
		h.SendMessage(ctx, b, chatID, "📭 У вас пока нет записей.", nil)
		return
	}
	if len(bookings) > maxBookingsShown {
		bookings = bookings[:maxBookingsShown]
	}

	ids := make([]int64, 0, len(bookings))
	for _, bk := range bookings {
		ids = append(ids, counterpartOf(bk, user))
	}
	names := h.counterpartNames(ctx, ids)

	for _, bk := range bookings {
		text := FormatBooking(bk, loc, names[counterpartOf(bk, user)])
		h.SendMessage(ctx, b, chatID, text, BookingKeyboard(bk, user))
	}
}

// HandleSchedule обрабатывает /schedule [ID учителя]: текст и картинка недели
func (h *Handlers) HandleSchedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, ok := h.LookupUser(ctx, b, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	tutorID, ok := scheduleTarget(update.Message.Text, user)
	if !ok {
		h.SendMessage(ctx, b, chatID, "❌ Укажите ID учителя: /schedule 3", nil)
		return
	}

	tutor, err := h.users.GetByID(ctx, tutorID)
	if err != nil || tutor == nil || tutor.Role != model.RoleTutor {
		h.SendMessage(ctx, b, chatID, "❌ Учитель не найден.", nil)
		return
	}

	loc := Location(user)
	slots, err := h.availability.LocalWeeklySchedule(ctx, tutorID, loc.String())
	if err != nil {
		h.logger.Error("Failed to load schedule", zap.Int64("tutor_id", tutorID), zap.Error(err))
		h.SendMessage(ctx, b, chatID, ErrorText(err), nil)
		return
	}

	text := FormatSchedule(tutor.FullName, loc.String(), slots)
	image, err := render.WeekImage(fmt.Sprintf("%s, %s", tutor.FullName, loc), slots)
	if err != nil {
		h.logger.Error("Failed to render schedule image", zap.Error(err))
		h.SendMessage(ctx, b, chatID, text, nil)
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(image)},
		Caption: text,
	})
	if err != nil {
		h.logger.Error("Failed to send schedule image", zap.Int64("chat_id", chatID), zap.Error(err))
		h.SendMessage(ctx, b, chatID, text, nil)
	}
}

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	// Команды обрабатываются другими handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	switch currentState := h.stateManager.GetState(telegramID); currentState {
	case state.StateNone:
		return
	case state.StateRescheduleDate:
		h.handleRescheduleDateStep(ctx, b, update)
	case state.StateRescheduleTime:
		h.handleRescheduleTimeStep(ctx, b, update)
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(currentState)))
		h.stateManager.ClearState(telegramID)
	}
}

// FormatSchedule текстовое расписание по дням недели
func FormatSchedule(tutorName, tz string, slots []model.LocalSlot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 %s\nВремя: %s\n", tutorName, tz)

	if len(slots) == 0 {
		sb.WriteString("\nРасписание пока не заполнено.")
		return sb.String()
	}

	current := model.DayOfWeek(-1)
	for _, slot := range slots {
		if slot.Day != current {
			current = slot.Day
			fmt.Fprintf(&sb, "\n%s\n", weekdayName(slot.Day))
		}
		mark := "🟢"
		if !slot.IsAvailable {
			mark = "⚪️"
		}
		fmt.Fprintf(&sb, "%s %s–%s\n", mark, slot.StartLocal, slot.EndLocal)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// scheduleTarget ID учителя из "/schedule 3"; без аргумента учитель смотрит своё расписание
func scheduleTarget(text string, user *model.User) (int64, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		if user.Role == model.RoleTutor {
			return user.ID, true
		}
		return 0, false
	}

	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// counterpartOf вторая сторона бронирования для пользователя
func counterpartOf(b *model.Booking, user *model.User) int64 {
	if user.ID == b.TutorID {
		return b.StudentID
	}
	return b.TutorID
}

func weekdayName(day model.DayOfWeek) string {
	names := map[model.DayOfWeek]string{
		model.Monday:    "Понедельник",
		model.Tuesday:   "Вторник",
		model.Wednesday: "Среда",
		model.Thursday:  "Четверг",
		model.Friday:    "Пятница",
		model.Saturday:  "Суббота",
		model.Sunday:    "Воскресенье",
	}
	return names[day]
}
