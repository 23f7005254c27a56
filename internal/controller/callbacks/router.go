package callbacks

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/tutorconnect/internal/controller/handlers"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Action действие с бронированием из inline-кнопки
type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
	ActionNoop       Action = "noop"
)

// Handler обрабатывает нажатия inline-кнопок
type Handler struct {
	h      *handlers.Handlers
	logger *zap.Logger
}

func NewHandler(h *handlers.Handlers) *Handler {
	return &Handler{h: h, logger: h.Logger()}
}

// ParseCallback разбирает callback data вида "booking_confirm:123"
func ParseCallback(data string) (Action, int64, error) {
	if data == string(ActionNoop) {
		return ActionNoop, 0, nil
	}

	prefixes := map[string]Action{
		handlers.CallbackConfirm:    ActionConfirm,
		handlers.CallbackCancel:     ActionCancel,
		handlers.CallbackReschedule: ActionReschedule,
	}
	for prefix, action := range prefixes {
		if raw, ok := strings.CutPrefix(data, prefix); ok {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return "", 0, fmt.Errorf("invalid booking id in callback %q", data)
			}
			return action, id, nil
		}
	}
	return "", 0, fmt.Errorf("unknown callback %q", data)
}

// HandleCallbackQuery - главный обработчик callback queries
func (c *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	callback := update.CallbackQuery

	c.logger.Info("Callback received",
		zap.String("data", callback.Data),
		zap.Int64("user_id", callback.From.ID),
	)

	action, bookingID, err := ParseCallback(callback.Data)
	if err != nil {
		c.logger.Warn("Failed to parse callback", zap.String("data", callback.Data), zap.Error(err))
		answerCallback(ctx, b, callback.ID, "❌ Неверный формат", true)
		return
	}
	if action == ActionNoop {
		answerCallback(ctx, b, callback.ID, "", false)
		return
	}

	msg := callback.Message.Message
	if msg == nil {
		answerCallback(ctx, b, callback.ID, "❌ Сообщение устарело", true)
		return
	}

	user, ok := c.h.LookupUser(ctx, b, msg.Chat.ID, callback.From.ID)
	if !ok {
		answerCallback(ctx, b, callback.ID, "", false)
		return
	}
	actor := model.ActorOf(user)

	if action == ActionReschedule {
		answerCallback(ctx, b, callback.ID, "", false)
		c.h.StartReschedule(ctx, b, msg.Chat.ID, callback.From.ID, bookingID)
		return
	}

	var booking *model.Booking
	switch action {
	case ActionConfirm:
		booking, err = c.h.Bookings().ConfirmBooking(ctx, actor, bookingID)
	case ActionCancel:
		booking, err = c.h.Bookings().CancelBooking(ctx, actor, bookingID)
	}
	if err != nil {
		c.logger.Info("Booking action rejected",
			zap.String("action", string(action)),
			zap.Int64("booking_id", bookingID),
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		answerCallback(ctx, b, callback.ID, handlers.ErrorText(err), true)
		return
	}

	answerCallback(ctx, b, callback.ID, actionDoneText(action), false)

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      handlers.FormatBooking(booking, handlers.Location(user), ""),
	}
	if kb := handlers.BookingKeyboard(booking, user); kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		c.logger.Warn("Failed to update booking message", zap.Int64("booking_id", bookingID), zap.Error(err))
	}
}

func actionDoneText(action Action) string {
	switch action {
	case ActionConfirm:
		return "✅ Запись подтверждена"
	case ActionCancel:
		return "❌ Запись отменена"
	default:
		return ""
	}
}

func answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
}
