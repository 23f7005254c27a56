package handlers

import (
	"context"

	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// LookupUser ищет пользователя по Telegram ID.
// Если пользователь не найден или произошла ошибка, отправляет сообщение в chatID и возвращает false.
func (h *Handlers) LookupUser(ctx context.Context, b *bot.Bot, chatID, telegramID int64) (*model.User, bool) {
	user, err := h.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.SendMessage(ctx, b, chatID, "❌ Произошла ошибка. Попробуйте позже.", nil)
		return nil, false
	}

	if user == nil {
		h.SendMessage(ctx, b, chatID, notLinkedText(telegramID), nil)
		return nil, false
	}

	return user, true
}
