package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type AvailabilityRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewAvailabilityRepository(pool *pgxpool.Pool, logger *zap.Logger) *AvailabilityRepository {
	return &AvailabilityRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

const availabilityColumns = `id, group_id, tutor_id, day_of_week, start_minute, end_minute, is_available, created_at, updated_at`

// Create создаёт слот доступности
func (r *AvailabilityRepository) Create(ctx context.Context, slot *model.AvailabilitySlot) error {
	query := `
		INSERT INTO availability_slots (group_id, tutor_id, day_of_week, start_minute, end_minute, is_available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.GroupID,
		slot.TutorID,
		int16(slot.Day),
		int32(slot.StartTime),
		int32(slot.EndTime),
		slot.IsAvailable,
	).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create availability slot: %w", err)
	}

	return nil
}

// ListByTutor возвращает все слоты учителя в порядке создания
func (r *AvailabilityRepository) ListByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM availability_slots
		WHERE tutor_id = $1
		ORDER BY id
	`

	rows, err := r.Query(ctx, query, tutorID)
	if err != nil {
		return nil, fmt.Errorf("list availability slots: %w", err)
	}
	defer rows.Close()

	return scanSlots(rows)
}

// DeleteByTutor удаляет всё расписание учителя
func (r *AvailabilityRepository) DeleteByTutor(ctx context.Context, tutorID int64) (int64, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM availability_slots WHERE tutor_id = $1`, tutorID)
	if err != nil {
		return 0, fmt.Errorf("delete availability slots: %w", err)
	}
	return affected, nil
}

// ReplaceForTutor удаляет все слоты учителя и вставляет новые.
// Должен вызываться внутри транзакции, иначе чтение может увидеть пустое расписание.
func (r *AvailabilityRepository) ReplaceForTutor(ctx context.Context, tutorID int64, slots []*model.AvailabilitySlot) error {
	if !base.InTx(ctx) {
		r.logger.Warn("Availability replaced outside of a transaction", zap.Int64("tutor_id", tutorID))
	}

	deleted, err := r.DeleteByTutor(ctx, tutorID)
	if err != nil {
		return err
	}

	for _, slot := range slots {
		if err := r.Create(ctx, slot); err != nil {
			return err
		}
	}

	r.logger.Debug("Availability slots replaced",
		zap.Int64("tutor_id", tutorID),
		zap.Int64("deleted", deleted),
		zap.Int("inserted", len(slots)))

	return nil
}

func scanSlots(rows pgx.Rows) ([]*model.AvailabilitySlot, error) {
	var slots []*model.AvailabilitySlot
	for rows.Next() {
		var (
			slot       model.AvailabilitySlot
			day        int16
			start, end int32
		)
		err := rows.Scan(
			&slot.ID,
			&slot.GroupID,
			&slot.TutorID,
			&day,
			&start,
			&end,
			&slot.IsAvailable,
			&slot.CreatedAt,
			&slot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability slot: %w", err)
		}
		slot.Day = model.DayOfWeek(day)
		slot.StartTime = model.ClockTime(start)
		slot.EndTime = model.ClockTime(end)
		slots = append(slots, &slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability slots: %w", err)
	}

	return slots, nil
}
