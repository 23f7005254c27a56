package memory

import (
	"context"

	"github.com/Freeeeeet/tutorconnect/internal/model"
)

type AvailabilityStore struct {
	store *Store
}

// Create создаёт слот доступности
func (r *AvailabilityStore) Create(ctx context.Context, slot *model.AvailabilitySlot) error {
	return r.store.write(ctx, func(d *dataset) error {
		r.insert(d, slot)
		return nil
	})
}

// ListByTutor все слоты учителя в порядке создания
func (r *AvailabilityStore) ListByTutor(_ context.Context, tutorID int64) ([]*model.AvailabilitySlot, error) {
	var slots []*model.AvailabilitySlot
	r.store.read(func(d *dataset) {
		for _, slot := range d.slots {
			if slot.TutorID == tutorID {
				copied := *slot
				slots = append(slots, &copied)
			}
		}
	})
	return slots, nil
}

// ReplaceForTutor удаляет все слоты учителя и вставляет новые
func (r *AvailabilityStore) ReplaceForTutor(ctx context.Context, tutorID int64, slots []*model.AvailabilitySlot) error {
	return r.store.write(ctx, func(d *dataset) error {
		kept := d.slots[:0]
		for _, slot := range d.slots {
			if slot.TutorID != tutorID {
				kept = append(kept, slot)
			}
		}
		d.slots = kept

		for _, slot := range slots {
			r.insert(d, slot)
		}
		return nil
	})
}

func (r *AvailabilityStore) insert(d *dataset, slot *model.AvailabilitySlot) {
	d.nextSlotID++
	now := r.store.now()

	slot.ID = d.nextSlotID
	slot.CreatedAt = now
	slot.UpdatedAt = now

	copied := *slot
	d.slots = append(d.slots, &copied)
}
