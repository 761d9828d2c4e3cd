package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSlot(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)
	now := e.clock.Now()

	tests := []struct {
		name    string
		tutorID int64
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"valid", tutor.ID, now.Add(time.Hour), now.Add(2 * time.Hour), nil},
		{"end before start", tutor.ID, now.Add(5 * time.Hour), now.Add(4 * time.Hour), apperror.ErrInvalidTimeRange},
		{"zero length", tutor.ID, now.Add(5 * time.Hour), now.Add(5 * time.Hour), apperror.ErrInvalidTimeRange},
		{"in the past", tutor.ID, now.Add(-time.Hour), now.Add(time.Hour), apperror.ErrSlotInPast},
		{"overlap", tutor.ID, now.Add(90 * time.Minute), now.Add(3 * time.Hour), apperror.ErrSlotOverlap},
		{"adjacent is fine", tutor.ID, now.Add(2 * time.Hour), now.Add(3 * time.Hour), nil},
		{"not a tutor", student.ID, now.Add(10 * time.Hour), now.Add(11 * time.Hour), apperror.ErrTutorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := e.availability.CreateSlot(ctx, tt.tutorID, tt.start, tt.end)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, slot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.SlotStatusAvailable, slot.Status)
			assert.Nil(t, slot.StudentID)
			assert.NotZero(t, slot.ID)
		})
	}
}

func TestCreateSlot_ErrorCategories(t *testing.T) {
	e := newEnv(t)
	tutor := e.tutor(t)
	now := e.clock.Now()

	_, err := e.availability.CreateSlot(context.Background(), tutor.ID, now.Add(time.Hour), now)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	e.slot(t, tutor.ID, time.Hour, time.Hour)
	_, err = e.availability.CreateSlot(context.Background(), tutor.ID, now.Add(time.Hour), now.Add(2*time.Hour))
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestDeleteSlot(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	other := e.tutor(t)
	student := e.student(t)

	t.Run("owner deletes available slot", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, time.Hour, time.Hour)
		require.NoError(t, e.availability.DeleteSlot(ctx, tutor.ID, slot.ID))

		_, err := e.availability.GetSlot(ctx, slot.ID)
		assert.ErrorIs(t, err, apperror.ErrSlotNotFound)

		// повторное удаление ничего не меняет
		kept := e.slot(t, tutor.ID, 2*time.Hour, time.Hour)
		for range 3 {
			err = e.availability.DeleteSlot(ctx, tutor.ID, slot.ID)
			assert.ErrorIs(t, err, apperror.ErrSlotNotFound)
			assert.ErrorIs(t, err, apperror.ErrNotFound)
		}
		got, err := e.availability.GetSlot(ctx, kept.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusAvailable, got.Status)
		require.NoError(t, e.availability.DeleteSlot(ctx, tutor.ID, kept.ID))
	})

	t.Run("other tutor", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, 3*time.Hour, time.Hour)
		err := e.availability.DeleteSlot(ctx, other.ID, slot.ID)
		assert.ErrorIs(t, err, apperror.ErrNotSlotOwner)
		assert.ErrorIs(t, err, apperror.ErrAuthorization)
	})

	t.Run("booked slot", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, 5*time.Hour, time.Hour)
		_, err := e.bookings.BookSlot(ctx, student.ID, slot.ID)
		require.NoError(t, err)

		err = e.availability.DeleteSlot(ctx, tutor.ID, slot.ID)
		assert.ErrorIs(t, err, apperror.ErrSlotNotAvailable)

		got, err := e.availability.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusBooked, got.Status)
	})

	t.Run("ownership checked before status", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, 7*time.Hour, time.Hour)
		_, err := e.bookings.BookSlot(ctx, student.ID, slot.ID)
		require.NoError(t, err)

		err = e.availability.DeleteSlot(ctx, other.ID, slot.ID)
		assert.ErrorIs(t, err, apperror.ErrNotSlotOwner)
	})
}

func TestListSlots(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)

	late := e.slot(t, tutor.ID, 5*time.Hour, time.Hour)
	early := e.slot(t, tutor.ID, time.Hour, time.Hour)
	mid := e.slot(t, tutor.ID, 3*time.Hour, time.Hour)
	_, err := e.bookings.BookSlot(ctx, student.ID, mid.ID)
	require.NoError(t, err)

	collect := func(status *model.SlotStatus, window model.SlotWindow) []int64 {
		var ids []int64
		for slot, err := range e.availability.ListSlots(ctx, tutor.ID, status, window) {
			require.NoError(t, err)
			ids = append(ids, slot.ID)
		}
		return ids
	}

	assert.Equal(t, []int64{early.ID, mid.ID, late.ID}, collect(nil, model.SlotWindowAll))

	available := model.SlotStatusAvailable
	assert.Equal(t, []int64{early.ID, late.ID}, collect(&available, model.SlotWindowAll))

	booked := model.SlotStatusBooked
	assert.Equal(t, []int64{mid.ID}, collect(&booked, model.SlotWindowUpcoming))

	// окно считается от момента обхода
	e.clock.Advance(5*time.Hour + 30*time.Minute)
	assert.Equal(t, []int64{early.ID, mid.ID}, collect(nil, model.SlotWindowCompleted))
	assert.Empty(t, collect(nil, model.SlotWindowUpcoming)) // late уже идёт
}

func TestListSlots_IsLazyAndRestartable(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)

	seq := e.availability.ListSlots(ctx, tutor.ID, nil, model.SlotWindowAll)

	count := func() int {
		n := 0
		for _, err := range seq {
			require.NoError(t, err)
			n++
		}
		return n
	}

	assert.Equal(t, 0, count())
	e.slot(t, tutor.ID, time.Hour, time.Hour)
	e.slot(t, tutor.ID, 3*time.Hour, time.Hour)
	assert.Equal(t, 2, count())

	// ранний выход из обхода
	for range seq {
		break
	}
	assert.Equal(t, 2, count())
}

func TestCancelSlot(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)

	t.Run("available slot", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, time.Hour, time.Hour)
		got, err := e.availability.CancelSlot(ctx, tutor.ID, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusCancelled, got.Status)

		// отменённый слот не мешает новому в то же время
		e.slot(t, tutor.ID, time.Hour, time.Hour)
	})

	t.Run("booked slot drops session and notifies student", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, 3*time.Hour, time.Hour)
		session, err := e.bookings.BookSlot(ctx, student.ID, slot.ID)
		require.NoError(t, err)

		got, err := e.availability.CancelSlot(ctx, tutor.ID, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusCancelled, got.Status)
		assert.Nil(t, got.StudentID)

		_, err = e.bookings.GetSession(ctx, student.ID, model.RoleStudent, session.ID)
		assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
		assert.NotEmpty(t, e.notifier.To(student.ID))
	})

	t.Run("terminal slot", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, 5*time.Hour, time.Hour)
		_, err := e.availability.CancelSlot(ctx, tutor.ID, slot.ID)
		require.NoError(t, err)

		_, err = e.availability.CancelSlot(ctx, tutor.ID, slot.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	// граница совпадает с отменой бронирования: в момент начала ещё можно
	t.Run("booked slot at start and after", func(t *testing.T) {
		atStart := e.slot(t, tutor.ID, 7*time.Hour, time.Hour)
		late := e.slot(t, tutor.ID, 9*time.Hour, time.Hour)
		_, err := e.bookings.BookSlot(ctx, student.ID, atStart.ID)
		require.NoError(t, err)
		_, err = e.bookings.BookSlot(ctx, student.ID, late.ID)
		require.NoError(t, err)

		e.clock.Advance(7 * time.Hour)
		got, err := e.availability.CancelSlot(ctx, tutor.ID, atStart.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusCancelled, got.Status)

		e.clock.Advance(2*time.Hour + time.Second)
		_, err = e.availability.CancelSlot(ctx, tutor.ID, late.ID)
		assert.ErrorIs(t, err, apperror.ErrSessionStarted)
	})
}

func TestWeekSchedule(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)

	e.slot(t, tutor.ID, time.Hour, time.Hour)
	e.slot(t, tutor.ID, 8*24*time.Hour, time.Hour)

	img, err := e.availability.WeekSchedule(ctx, tutor.ID, e.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), img[:4])

	_, err = e.availability.WeekSchedule(ctx, student.ID, e.clock.Now())
	require.ErrorIs(t, err, apperror.ErrTutorNotFound)
}
