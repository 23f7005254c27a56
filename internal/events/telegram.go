package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// messageSender часть *bot.Bot, которая нужна уведомлениям
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// userLookup чтение участников бронирования
type userLookup interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
}

// TelegramNotifier пишет участникам бронирования в Telegram.
// Инициатор изменения уведомление не получает; напоминание получают оба.
type TelegramNotifier struct {
	sender messageSender
	users  userLookup
	logger *zap.Logger
}

func NewTelegramNotifier(sender messageSender, users userLookup, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, users: users, logger: logger}
}

func (n *TelegramNotifier) Notify(ctx context.Context, event model.BookingEvent) error {
	b := event.Booking

	users, err := n.users.GetByIDs(ctx, []int64{b.StudentID, b.TutorID})
	if err != nil {
		return fmt.Errorf("load booking participants: %w", err)
	}

	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}

	var errs []error
	for _, u := range users {
		if u.TelegramID == nil {
			continue
		}
		if event.Type != model.BookingEventReminder && u.ID == event.ActorID {
			continue
		}

		counterpart := names[b.TutorID]
		if u.ID == b.TutorID {
			counterpart = names[b.StudentID]
		}

		_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: *u.TelegramID,
			Text:   EventText(event, recipientLocation(u), counterpart),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("send telegram message to user %d: %w", u.ID, err))
			continue
		}

		n.logger.Debug("Telegram notification sent",
			zap.String("event", string(event.Type)),
			zap.Int64("booking_id", b.ID),
			zap.Int64("user_id", u.ID),
		)
	}

	return errors.Join(errs...)
}

// EventText текст уведомления во времени получателя
func EventText(event model.BookingEvent, loc *time.Location, counterpart string) string {
	date, start, end := scheduling.InLocation(&event.Booking, loc)
	when := fmt.Sprintf("%s %s–%s (%s)", date.Format("02.01.2006"), start, end, loc)

	var title string
	switch event.Type {
	case model.BookingEventCreated:
		title = "🆕 Новая запись на занятие"
	case model.BookingEventConfirmed:
		title = "✅ Запись подтверждена"
	case model.BookingEventCancelled:
		title = "❌ Запись отменена"
	case model.BookingEventRescheduled:
		title = "🔁 Запись перенесена"
	case model.BookingEventReminder:
		title = "⏰ Напоминание: завтра занятие"
	default:
		title = "ℹ️ Изменение записи"
	}

	text := fmt.Sprintf("%s #%d\n\n📅 %s", title, event.Booking.ID, when)
	if counterpart != "" {
		text += "\n👤 " + counterpart
	}
	if event.Booking.Subject != nil {
		text += "\n📚 " + *event.Booking.Subject
	}
	return text
}

func recipientLocation(u *model.User) *time.Location {
	loc, err := scheduling.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
