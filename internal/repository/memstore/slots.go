package memstore

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
)

type slots struct{ s *Store }

func (r slots) Create(_ context.Context, slot *model.TimeSlot) error {
	defer r.s.lock()()

	if !slot.StartTime.Before(slot.EndTime) {
		return apperror.ErrInvalidTimeRange
	}
	if _, ok := r.s.d.tutors[slot.TutorID]; !ok {
		return apperror.ErrTutorNotFound
	}
	if slot.Status != model.SlotStatusCancelled && r.overlaps(slot.TutorID, slot.StartTime, slot.EndTime) {
		return apperror.ErrSlotOverlap
	}

	slot.ID = r.s.d.nextID()
	slot.CreatedAt = r.s.now()
	r.s.d.slots[slot.ID] = ptr(*slot)
	return nil
}

func (r slots) GetByID(_ context.Context, id int64) (*model.TimeSlot, error) {
	defer r.s.lock()()

	slot, ok := r.s.d.slots[id]
	if !ok {
		return nil, nil
	}
	return ptr(*slot), nil
}

func (r slots) HasOverlap(_ context.Context, tutorID int64, start, end time.Time) (bool, error) {
	defer r.s.lock()()
	return r.overlaps(tutorID, start, end), nil
}

func (r slots) ExistsAt(_ context.Context, tutorID int64, start time.Time) (bool, error) {
	defer r.s.lock()()

	for _, slot := range r.s.d.slots {
		if slot.TutorID == tutorID && slot.StartTime.Equal(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r slots) overlaps(tutorID int64, start, end time.Time) bool {
	for _, slot := range r.s.d.slots {
		if slot.TutorID == tutorID && slot.Status != model.SlotStatusCancelled && slot.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// List собирает снимок при каждом обходе и отдаёт его без удержания блокировки
func (r slots) List(ctx context.Context, tutorID int64, filter model.SlotFilter) iter.Seq2[*model.TimeSlot, error] {
	return func(yield func(*model.TimeSlot, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, fmt.Errorf("list slots: %w", err))
			return
		}

		for _, slot := range r.snapshot(tutorID, filter) {
			if !yield(slot, nil) {
				return
			}
		}
	}
}

func (r slots) snapshot(tutorID int64, filter model.SlotFilter) []*model.TimeSlot {
	defer r.s.lock()()

	var out []*model.TimeSlot
	for _, slot := range r.s.d.slots {
		if slot.TutorID == tutorID && filter.Match(slot) {
			out = append(out, ptr(*slot))
		}
	}
	slices.SortFunc(out, func(a, b *model.TimeSlot) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (r slots) Book(_ context.Context, slotID, studentID int64, now time.Time) (bool, error) {
	defer r.s.lock()()

	slot, ok := r.s.d.slots[slotID]
	if !ok || slot.Status != model.SlotStatusAvailable || slot.StartTime.Before(now) {
		return false, nil
	}

	booked := *slot
	booked.Status = model.SlotStatusBooked
	booked.StudentID = ptr(studentID)
	r.s.d.slots[slotID] = &booked
	return true, nil
}

func (r slots) Transition(_ context.Context, slotID int64, from, to model.SlotStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("illegal slot transition %s -> %s", from, to)
	}

	defer r.s.lock()()

	slot, ok := r.s.d.slots[slotID]
	if !ok || slot.Status != from {
		return false, nil
	}

	next := *slot
	next.Status = to
	if !to.HasStudent() {
		next.StudentID = nil
	}
	r.s.d.slots[slotID] = &next
	return true, nil
}

func (r slots) DeleteAvailable(_ context.Context, slotID int64) (bool, error) {
	defer r.s.lock()()

	slot, ok := r.s.d.slots[slotID]
	if !ok || slot.Status != model.SlotStatusAvailable {
		return false, nil
	}
	delete(r.s.d.slots, slotID)
	return true, nil
}

func (r slots) CompleteElapsed(_ context.Context, now time.Time) (int64, error) {
	defer r.s.lock()()

	var n int64
	for id, slot := range r.s.d.slots {
		if slot.Status == model.SlotStatusBooked && slot.Elapsed(now) {
			done := *slot
			done.Status = model.SlotStatusCompleted
			r.s.d.slots[id] = &done
			n++
		}
	}
	return n, nil
}
