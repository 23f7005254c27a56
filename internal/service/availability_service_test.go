package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateSlotStoresUTC(t *testing.T) {
	f := newFixture(t, PolicyOpen)
	ctx := context.Background()

	slot, err := f.availability.CreateSlot(ctx, tutor, tutorNY, model.Monday, "09:00", "10:00", "America/New_York", true)
	require.NoError(t, err)

	assert.Equal(t, model.Monday, slot.Day)
	assert.Equal(t, "14:00", slot.StartTime.String())
	assert.Equal(t, "15:00", slot.EndTime.String())

	start, end, err := f.availability.LocalTimes(slot, "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "09:00", start.String())
	assert.Equal(t, "10:00", end.String())

	schedule, err := f.availability.GetWeeklySchedule(ctx, tutorNY)
	require.NoError(t, err)
	require.Len(t, schedule[model.Monday], 1)
	assert.Equal(t, slot.ID, schedule[model.Monday][0].ID)
}

func TestCreateSlotKeepsLocalDayAcrossUTCMidnight(t *testing.T) {
	f := newFixture(t, PolicyOpen)

	slot, err := f.availability.CreateSlot(context.Background(), tutor, tutorNY, model.Friday, "18:00", "21:00", "America/New_York", true)
	require.NoError(t, err)

	assert.Equal(t, model.Friday, slot.Day)
	assert.Equal(t, "23:00", slot.StartTime.String())
	assert.Equal(t, "02:00", slot.EndTime.String())
	assert.True(t, slot.WrapsMidnightUTC())

	start, end, err := f.availability.LocalTimes(slot, "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "18:00", start.String())
	assert.Equal(t, "21:00", end.String())
}

func TestCreateSlotValidation(t *testing.T) {
	f := newFixture(t, PolicyOpen)
	ctx := context.Background()

	cases := []struct {
		name   string
		actor  model.Actor
		tutor  int64
		start  string
		end    string
		tz     string
		target error
	}{
		{name: "bad start", actor: tutor, tutor: tutorNY, start: "9am", end: "10:00", tz: "UTC", target: apperror.ErrValidation},
		{name: "bad end", actor: tutor, tutor: tutorNY, start: "09:00", end: "25:00", tz: "UTC", target: apperror.ErrValidation},
		{name: "start after end", actor: tutor, tutor: tutorNY, start: "11:00", end: "10:00", tz: "UTC", target: apperror.ErrValidation},
		{name: "unknown timezone", actor: tutor, tutor: tutorNY, start: "09:00", end: "10:00", tz: "Nowhere/City", target: apperror.ErrValidation},
		{name: "other tutor", actor: tutor, tutor: tutorMoscow, start: "09:00", end: "10:00", tz: "UTC", target: apperror.ErrForbidden},
		{name: "student is not a tutor", actor: admin, tutor: studentA, start: "09:00", end: "10:00", tz: "UTC", target: apperror.ErrNotFound},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.availability.CreateSlot(ctx, c.actor, c.tutor, model.Monday, c.start, c.end, c.tz, true)
			assert.ErrorIs(t, err, c.target)
		})
	}
}

func TestReplaceWeeklyScheduleIdempotentRead(t *testing.T) {
	f := newFixture(t, PolicyOpen)
	ctx := context.Background()

	_, err := f.availability.CreateSlot(ctx, tutor, tutorNY, model.Sunday, "08:00", "09:00", "UTC", true)
	require.NoError(t, err)

	data := map[string][]model.ScheduleEntry{
		"monday": {
			{Start: "09:00", End: "10:00", Available: true},
			{Start: "10:00", End: "11:00", Available: false},
			{Start: "13:00", End: "15:00", Available: true},
		},
		"Wed": {
			{Start: "07:30", End: "08:30", Available: true},
		},
		"friday": {
			{Start: "not a time", End: "", Available: false},
		},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, f.availability.ReplaceWeeklySchedule(ctx, tutor, tutorNY, data, "America/New_York"))

		schedule, err := f.availability.GetWeeklySchedule(ctx, tutorNY)
		require.NoError(t, err)
		assert.Equal(t, 3, schedule.Len())
		assert.Empty(t, schedule[model.Sunday])
		assert.Empty(t, schedule[model.Friday])

		monday := schedule[model.Monday]
		require.Len(t, monday, 2)
		assert.Equal(t, "14:00", monday[0].StartTime.String())
		assert.Equal(t, "18:00", monday[1].StartTime.String())
		assert.Equal(t, monday[0].GroupID, monday[1].GroupID)

		require.Len(t, schedule[model.Wednesday], 1)
		assert.Equal(t, "12:30", schedule[model.Wednesday][0].StartTime.String())
	}

	local, err := f.availability.LocalWeeklySchedule(ctx, tutorNY, "America/New_York")
	require.NoError(t, err)
	require.Len(t, local, 3)
	assert.Equal(t, model.Monday, local[0].Day)
	assert.Equal(t, "09:00", local[0].StartLocal.String())
	assert.Equal(t, model.Wednesday, local[2].Day)
	assert.Equal(t, "07:30", local[2].StartLocal.String())
}

func TestReplaceWeeklyScheduleRejectsInvalidInputWithoutChanges(t *testing.T) {
	f := newFixture(t, PolicyOpen)
	ctx := context.Background()

	_, err := f.availability.CreateSlot(ctx, tutor, tutorNY, model.Monday, "08:00", "09:00", "UTC", true)
	require.NoError(t, err)

	err = f.availability.ReplaceWeeklySchedule(ctx, tutor, tutorNY, map[string][]model.ScheduleEntry{
		"funday": {{Start: "09:00", End: "10:00", Available: true}},
	}, "UTC")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	err = f.availability.ReplaceWeeklySchedule(ctx, tutor, tutorNY, map[string][]model.ScheduleEntry{
		"monday":  {{Start: "09:00", End: "10:00", Available: true}},
		"tuesday": {{Start: "12:00", End: "11:00", Available: true}},
	}, "UTC")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	err = f.availability.ReplaceWeeklySchedule(ctx, student, tutorNY, map[string][]model.ScheduleEntry{}, "UTC")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	schedule, err := f.availability.GetWeeklySchedule(ctx, tutorNY)
	require.NoError(t, err)
	require.Len(t, schedule[model.Monday], 1)
	assert.Equal(t, "08:00", schedule[model.Monday][0].StartTime.String())
}

func TestGetWeeklyScheduleCacheIsInvalidated(t *testing.T) {
	f := newFixture(t, PolicyOpen)
	ctx := context.Background()

	schedule, err := f.availability.GetWeeklySchedule(ctx, tutorNY)
	require.NoError(t, err)
	assert.Equal(t, 0, schedule.Len())

	_, err = f.availability.CreateSlot(ctx, tutor, tutorNY, model.Tuesday, "10:00", "11:00", "UTC", true)
	require.NoError(t, err)

	schedule, err = f.availability.GetWeeklySchedule(ctx, tutorNY)
	require.NoError(t, err)
	assert.Equal(t, 1, schedule.Len())

	// Изменение возвращённой копии не портит кэш
	schedule[model.Tuesday][0].StartTime = 0
	again, err := f.availability.GetWeeklySchedule(ctx, tutorNY)
	require.NoError(t, err)
	assert.Equal(t, "10:00", again[model.Tuesday][0].StartTime.String())
}

// afterListSlots вызывает hook один раз после первого чтения слотов
type afterListSlots struct {
	AvailabilityStore
	hook func()
	done bool
}

func (s *afterListSlots) ListByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilitySlot, error) {
	slots, err := s.AvailabilityStore.ListByTutor(ctx, tutorID)
	if !s.done && s.hook != nil {
		s.done = true
		s.hook()
	}
	return slots, err
}

func TestGetWeeklyScheduleDoesNotCacheReadRacingWithWrite(t *testing.T) {
	f := newFixture(t, PolicyOpen)
	ctx := context.Background()

	slots := &afterListSlots{AvailabilityStore: f.store.Availability()}
	availability, err := NewAvailabilityService(f.store, slots, f.store.Users(), 16, func() time.Time { return testNow }, zap.NewNop())
	require.NoError(t, err)

	slots.hook = func() {
		_, err := availability.CreateSlot(ctx, tutor, tutorNY, model.Monday, "09:00", "10:00", "UTC", true)
		require.NoError(t, err)
	}

	stale, err := availability.GetWeeklySchedule(ctx, tutorNY)
	require.NoError(t, err)
	assert.Equal(t, 0, stale.Len())

	fresh, err := availability.GetWeeklySchedule(ctx, tutorNY)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Len())
}
