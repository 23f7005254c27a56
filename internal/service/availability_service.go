package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const defaultScheduleCacheSize = 256

// AvailabilityService хранит еженедельную доступность учителей.
// Время слотов хранится в UTC, день недели в часовом поясе учителя.
//
// Кэш расписаний живёт в памяти процесса и сбрасывается только его собственными
// изменениями: сервис рассчитан на один экземпляр над общим хранилищем.
type AvailabilityService struct {
	tx    TxRunner
	slots AvailabilityStore
	users UserDirectory

	cacheMu sync.Mutex
	cache   *lru.Cache[int64, model.WeeklySchedule]
	gen     uint64 // растёт при каждом изменении, защищён cacheMu

	now    Clock
	logger *zap.Logger
}

func NewAvailabilityService(
	tx TxRunner,
	slots AvailabilityStore,
	users UserDirectory,
	cacheSize int,
	now Clock,
	logger *zap.Logger,
) (*AvailabilityService, error) {
	if cacheSize <= 0 {
		cacheSize = defaultScheduleCacheSize
	}
	cache, err := lru.New[int64, model.WeeklySchedule](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schedule cache: %w", err)
	}
	if now == nil {
		now = time.Now
	}

	return &AvailabilityService{
		tx:     tx,
		slots:  slots,
		users:  users,
		cache:  cache,
		now:    now,
		logger: logger,
	}, nil
}

// CreateSlot создаёт один слот из местного времени учителя
func (s *AvailabilityService) CreateSlot(ctx context.Context, actor model.Actor, tutorID int64, day model.DayOfWeek, startLocal, endLocal, tz string, available bool) (*model.AvailabilitySlot, error) {
	if !actor.Is(tutorID) {
		return nil, forbidden("only the tutor can change their availability")
	}
	if !day.Valid() {
		return nil, validation(fmt.Sprintf("invalid day of week %d", int(day)))
	}

	loc, err := scheduling.LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	start, end, err := parseLocalRange(startLocal, endLocal)
	if err != nil {
		return nil, err
	}

	if _, err := s.getTutor(ctx, tutorID); err != nil {
		return nil, err
	}

	ref := scheduling.Today(s.now(), loc)
	slot := &model.AvailabilitySlot{
		GroupID:     uuid.New(),
		TutorID:     tutorID,
		Day:         day,
		StartTime:   scheduling.ToReference(ref, start, loc),
		EndTime:     scheduling.ToReference(ref, end, loc),
		IsAvailable: available,
	}

	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, storageErr(err)
	}
	s.invalidate(tutorID)

	s.logger.Info("Availability slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("tutor_id", tutorID),
		zap.Stringer("day", day),
		zap.Stringer("start_utc", slot.StartTime),
		zap.Stringer("end_utc", slot.EndTime),
	)

	return slot, nil
}

// GetWeeklySchedule все слоты учителя по дням недели в порядке создания
func (s *AvailabilityService) GetWeeklySchedule(ctx context.Context, tutorID int64) (model.WeeklySchedule, error) {
	if cached, ok := s.cache.Get(tutorID); ok {
		return cached.Clone(), nil
	}

	s.cacheMu.Lock()
	gen := s.gen
	s.cacheMu.Unlock()

	slots, err := s.slots.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, storageErr(err)
	}

	schedule := make(model.WeeklySchedule)
	for _, slot := range slots {
		schedule[slot.Day] = append(schedule[slot.Day], slot)
	}

	// Расписание могли изменить во время чтения
	s.cacheMu.Lock()
	if s.gen == gen {
		s.cache.Add(tutorID, schedule.Clone())
	}
	s.cacheMu.Unlock()

	return schedule, nil
}

// LocalTimes переводит время слота из UTC в часовой пояс tz
func (s *AvailabilityService) LocalTimes(slot *model.AvailabilitySlot, tz string) (start, end model.ClockTime, err error) {
	loc, err := scheduling.LoadLocation(tz)
	if err != nil {
		return 0, 0, err
	}

	ref := scheduling.Today(s.now(), loc)
	return scheduling.FromReference(ref, slot.StartTime, loc), scheduling.FromReference(ref, slot.EndTime, loc), nil
}

// ReplaceWeeklySchedule заменяет всё расписание учителя.
// Ключи schedule названия дней, записи с is_available=false не сохраняются.
func (s *AvailabilityService) ReplaceWeeklySchedule(ctx context.Context, actor model.Actor, tutorID int64, schedule map[string][]model.ScheduleEntry, tz string) error {
	if !actor.Is(tutorID) {
		return forbidden("only the tutor can change their availability")
	}

	loc, err := scheduling.LoadLocation(tz)
	if err != nil {
		return err
	}

	byDay := make(map[model.DayOfWeek][]model.ScheduleEntry, len(schedule))
	for name, entries := range schedule {
		day, err := model.ParseDayOfWeek(name)
		if err != nil {
			return apperror.Wrap(apperror.KindValidation, fmt.Sprintf("unknown day %q", name), err)
		}
		if _, dup := byDay[day]; dup {
			return validation(fmt.Sprintf("day %s is listed more than once", day))
		}
		byDay[day] = entries
	}

	if _, err := s.getTutor(ctx, tutorID); err != nil {
		return err
	}

	ref := scheduling.Today(s.now(), loc)
	groupID := uuid.New()

	var slots []*model.AvailabilitySlot
	for _, day := range model.Weekdays {
		for _, entry := range byDay[day] {
			if !entry.Available {
				continue
			}
			start, end, err := parseLocalRange(entry.Start, entry.End)
			if err != nil {
				return err
			}
			slots = append(slots, &model.AvailabilitySlot{
				GroupID:     groupID,
				TutorID:     tutorID,
				Day:         day,
				StartTime:   scheduling.ToReference(ref, start, loc),
				EndTime:     scheduling.ToReference(ref, end, loc),
				IsAvailable: true,
			})
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.slots.ReplaceForTutor(ctx, tutorID, slots)
	})
	if err != nil {
		return storageErr(err)
	}
	s.invalidate(tutorID)

	s.logger.Info("Weekly availability replaced",
		zap.Int64("tutor_id", tutorID),
		zap.String("group_id", groupID.String()),
		zap.Int("slots", len(slots)),
		zap.String("timezone", tz),
	)

	return nil
}

// LocalWeeklySchedule расписание для отображения в часовом поясе tz, по дням недели
func (s *AvailabilityService) LocalWeeklySchedule(ctx context.Context, tutorID int64, tz string) ([]model.LocalSlot, error) {
	loc, err := scheduling.LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	schedule, err := s.GetWeeklySchedule(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	ref := scheduling.Today(s.now(), loc)
	out := make([]model.LocalSlot, 0, schedule.Len())
	for _, day := range model.Weekdays {
		for _, slot := range schedule[day] {
			out = append(out, localSlot(slot, ref, loc))
		}
	}
	return out, nil
}

// Covers проверяет, что интервал [startAt, endAt) в часовом поясе учителя
// целиком лежит внутри одного слота этого дня недели
func (s *AvailabilityService) Covers(ctx context.Context, tutor *model.User, startAt, endAt time.Time) (bool, error) {
	loc, err := scheduling.LoadLocation(tutor.Timezone)
	if err != nil {
		return false, err
	}

	localStart := startAt.In(loc)
	localEnd := endAt.In(loc)
	date := scheduling.DateOf(localStart)

	start := model.NewClockTime(localStart.Hour(), localStart.Minute())
	end := model.NewClockTime(localEnd.Hour(), localEnd.Minute())
	if scheduling.DateOf(localEnd).After(date) {
		if end != 0 {
			return false, nil
		}
		end = model.MinutesPerDay
	}

	schedule, err := s.GetWeeklySchedule(ctx, tutor.ID)
	if err != nil {
		return false, err
	}

	day := model.DayOf(localStart.Weekday())
	slots := make([]model.LocalSlot, 0, len(schedule[day]))
	for _, slot := range schedule[day] {
		slots = append(slots, localSlot(slot, date, loc))
	}

	return scheduling.Covers(slots, start, end), nil
}

func (s *AvailabilityService) getTutor(ctx context.Context, tutorID int64) (*model.User, error) {
	tutor, err := s.users.GetByID(ctx, tutorID)
	if err != nil {
		return nil, storageErr(err)
	}
	if tutor == nil || tutor.Role != model.RoleTutor {
		return nil, notFound("tutor not found")
	}
	return tutor, nil
}

func (s *AvailabilityService) invalidate(tutorID int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.gen++
	s.cache.Remove(tutorID)
}

func localSlot(slot *model.AvailabilitySlot, ref time.Time, loc *time.Location) model.LocalSlot {
	return model.LocalSlot{
		ID:          slot.ID,
		Day:         slot.Day,
		StartUTC:    slot.StartTime,
		EndUTC:      slot.EndTime,
		StartLocal:  scheduling.FromReference(ref, slot.StartTime, loc),
		EndLocal:    scheduling.FromReference(ref, slot.EndTime, loc),
		IsAvailable: slot.IsAvailable,
	}
}

// parseLocalRange разбирает местные HH:MM слота доступности
func parseLocalRange(startLocal, endLocal string) (model.ClockTime, model.ClockTime, error) {
	start, err := model.ParseClock(startLocal)
	if err != nil {
		return 0, 0, apperror.Wrap(apperror.KindValidation, err.Error(), err)
	}
	end, err := model.ParseClock(endLocal)
	if err != nil {
		return 0, 0, apperror.Wrap(apperror.KindValidation, err.Error(), err)
	}
	if start >= end {
		return 0, 0, validation("start time must be before end time")
	}
	return start, end, nil
}
