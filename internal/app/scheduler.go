package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReminderSender рассылает напоминания по подтверждённым урокам на дату
type ReminderSender interface {
	SendReminders(ctx context.Context, date time.Time) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	cron      *cron.Cron
	reminders ReminderSender
	spec      string
	now       func() time.Time
	logger    *zap.Logger
}

// NewScheduler создаёт новый планировщик; spec в формате cron, время UTC
func NewScheduler(reminders ReminderSender, spec string, now func() time.Time, logger *zap.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		reminders: reminders,
		spec:      spec,
		now:       now,
		logger:    logger,
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting background scheduler", zap.String("reminder_cron", s.spec))

	if _, err := s.cron.AddFunc(s.spec, func() { s.SendTomorrowReminders(ctx) }); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop останавливает планировщик и ждёт завершения запущенных задач
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

// SendTomorrowReminders напоминания по урокам на завтрашнюю дату (UTC)
func (s *Scheduler) SendTomorrowReminders(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	tomorrow := scheduling.DateOf(s.now().UTC()).AddDate(0, 0, 1)
	sent, err := s.reminders.SendReminders(ctx, tomorrow)
	if err != nil {
		s.logger.Error("Failed to send reminders", zap.Error(err))
		return
	}

	s.logger.Info("Reminder task completed",
		zap.String("date", tomorrow.Format(time.DateOnly)),
		zap.Int("sent", sent),
	)
}
