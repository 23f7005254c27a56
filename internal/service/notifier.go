package service

import (
	"context"
	"errors"

	"github.com/Freeeeeet/tutorconnect/internal/model"
)

// NopNotifier ничего не отправляет
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, model.BookingEvent) error {
	return nil
}

// MultiNotifier рассылает событие всем получателям; ошибки собираются вместе
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event model.BookingEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
