package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookSlot(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)

	slot := e.slot(t, tutor.ID, time.Hour, time.Hour)
	session, err := e.bookings.BookSlot(ctx, student.ID, slot.ID)
	require.NoError(t, err)

	assert.Equal(t, slot.ID, session.SlotID)
	assert.Equal(t, student.ID, session.StudentID)
	assert.Equal(t, tutor.ID, session.TutorID)

	got, err := e.availability.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusBooked, got.Status)
	require.NotNil(t, got.StudentID)
	assert.Equal(t, student.ID, *got.StudentID)

	assert.Len(t, e.notifier.To(tutor.ID), 1)
}

func TestBookSlot_Failures(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)
	other := e.student(t)

	t.Run("missing slot", func(t *testing.T) {
		_, err := e.bookings.BookSlot(ctx, student.ID, 9999)
		assert.ErrorIs(t, err, apperror.ErrSlotNotFound)
	})

	t.Run("already booked", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, time.Hour, time.Hour)
		_, err := e.bookings.BookSlot(ctx, student.ID, slot.ID)
		require.NoError(t, err)

		_, err = e.bookings.BookSlot(ctx, other.ID, slot.ID)
		assert.ErrorIs(t, err, apperror.ErrSlotNotAvailable)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("tutor cannot book", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, 3*time.Hour, time.Hour)
		_, err := e.bookings.BookSlot(ctx, tutor.ID, slot.ID)
		assert.ErrorIs(t, err, apperror.ErrForbiddenRole)
	})

	t.Run("unknown student", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, 5*time.Hour, time.Hour)
		_, err := e.bookings.BookSlot(ctx, 9999, slot.ID)
		assert.ErrorIs(t, err, apperror.ErrUserNotFound)
	})

	t.Run("slot already started", func(t *testing.T) {
		slot := e.slot(t, tutor.ID, 7*time.Hour, time.Hour)
		e.clock.Advance(7*time.Hour + time.Minute)

		_, err := e.bookings.BookSlot(ctx, student.ID, slot.ID)
		assert.ErrorIs(t, err, apperror.ErrSlotInPast)

		got, err := e.availability.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusAvailable, got.Status)
	})
}

func TestBookSlot_StartingNowIsAllowed(t *testing.T) {
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)

	slot := e.slot(t, tutor.ID, time.Hour, time.Hour)
	e.clock.Advance(time.Hour)

	_, err := e.bookings.BookSlot(context.Background(), student.ID, slot.ID)
	assert.NoError(t, err)
}

func TestBookSlot_SecondBoundaries(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)

	started := e.slot(t, tutor.ID, time.Hour, time.Hour)
	upcoming := e.slot(t, tutor.ID, 2*time.Hour+2*time.Second, time.Hour)

	// started начался секунду назад
	e.clock.Advance(time.Hour + time.Second)
	_, err := e.bookings.BookSlot(ctx, student.ID, started.ID)
	assert.ErrorIs(t, err, apperror.ErrSlotInPast)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	// upcoming начнётся через секунду
	e.clock.Advance(time.Hour)
	require.Equal(t, time.Second, upcoming.StartTime.Sub(e.clock.Now()))
	session, err := e.bookings.BookSlot(ctx, student.ID, upcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, upcoming.ID, session.SlotID)
}

func TestBookSlot_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	slot := e.slot(t, tutor.ID, time.Hour, time.Hour)

	const n = 16
	students := make([]*model.User, n)
	for i := range students {
		students[i] = e.student(t)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []int64
		conflicts int
		others    []error
	)
	for _, st := range students {
		wg.Add(1)
		go func(studentID int64) {
			defer wg.Done()
			_, err := e.bookings.BookSlot(ctx, studentID, slot.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, studentID)
			case errors.Is(err, apperror.ErrSlotNotAvailable):
				conflicts++
			default:
				others = append(others, err)
			}
		}(st.ID)
	}
	wg.Wait()

	require.Empty(t, others)
	require.Len(t, winners, 1)
	assert.Equal(t, n-1, conflicts)

	got, err := e.availability.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StudentID)
	assert.Equal(t, winners[0], *got.StudentID)
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)
	stranger := e.student(t)

	book := func(offset time.Duration) (*model.TimeSlot, *model.Session) {
		slot := e.slot(t, tutor.ID, offset, time.Hour)
		session, err := e.bookings.BookSlot(ctx, student.ID, slot.ID)
		require.NoError(t, err)
		return slot, session
	}

	t.Run("student cancels", func(t *testing.T) {
		slot, session := book(time.Hour)
		before := len(e.notifier.To(tutor.ID))

		require.NoError(t, e.bookings.CancelBooking(ctx, student.ID, session.ID))

		got, err := e.availability.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusAvailable, got.Status)
		assert.Nil(t, got.StudentID)
		assert.Len(t, e.notifier.To(tutor.ID), before+1)

		err = e.bookings.CancelBooking(ctx, student.ID, session.ID)
		assert.ErrorIs(t, err, apperror.ErrSessionNotFound)

		// слот можно забронировать снова
		_, err = e.bookings.BookSlot(ctx, stranger.ID, slot.ID)
		assert.NoError(t, err)
	})

	t.Run("tutor cancels", func(t *testing.T) {
		_, session := book(3 * time.Hour)
		before := len(e.notifier.To(student.ID))

		require.NoError(t, e.bookings.CancelBooking(ctx, tutor.ID, session.ID))
		assert.Len(t, e.notifier.To(student.ID), before+1)
	})

	t.Run("stranger", func(t *testing.T) {
		_, session := book(5 * time.Hour)
		err := e.bookings.CancelBooking(ctx, stranger.ID, session.ID)
		assert.ErrorIs(t, err, apperror.ErrNotSessionParty)
	})

	t.Run("after start", func(t *testing.T) {
		_, session := book(7 * time.Hour)
		e.clock.Advance(7*time.Hour + time.Minute)

		err := e.bookings.CancelBooking(ctx, student.ID, session.ID)
		assert.ErrorIs(t, err, apperror.ErrSessionStarted)
	})

	t.Run("exactly at start", func(t *testing.T) {
		slot, session := book(2 * time.Hour)
		e.clock.Advance(2 * time.Hour)
		require.True(t, e.clock.Now().Equal(slot.StartTime))

		require.NoError(t, e.bookings.CancelBooking(ctx, student.ID, session.ID))
	})
}

func TestCompleteSessions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)

	first := e.slot(t, tutor.ID, time.Hour, time.Hour)
	second := e.slot(t, tutor.ID, 5*time.Hour, time.Hour)
	s1, err := e.bookings.BookSlot(ctx, student.ID, first.ID)
	require.NoError(t, err)
	s2, err := e.bookings.BookSlot(ctx, student.ID, second.ID)
	require.NoError(t, err)

	n, err := e.bookings.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	e.clock.Advance(2 * time.Hour)
	n, err = e.bookings.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := e.bookings.GetSession(ctx, student.ID, model.RoleStudent, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusCompleted, got.Slot.Status)
	assert.Equal(t, &student.ID, got.Slot.StudentID)

	// ручное завершение идемпотентно
	require.NoError(t, e.bookings.CompleteSession(ctx, s2.ID))
	require.NoError(t, e.bookings.CompleteSession(ctx, s2.ID))

	err = e.bookings.CompleteSession(ctx, 9999)
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
}

func TestGetSession_Access(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)
	stranger := e.student(t)

	slot := e.slot(t, tutor.ID, time.Hour, time.Hour)
	session, err := e.bookings.BookSlot(ctx, student.ID, slot.ID)
	require.NoError(t, err)

	_, err = e.bookings.GetSession(ctx, tutor.ID, model.RoleTutor, session.ID)
	assert.NoError(t, err)
	_, err = e.bookings.GetSession(ctx, 1, model.RoleAdmin, session.ID)
	assert.NoError(t, err)
	_, err = e.bookings.GetSession(ctx, stranger.ID, model.RoleStudent, session.ID)
	assert.ErrorIs(t, err, apperror.ErrNotSessionParty)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	student := e.student(t)

	past := e.slot(t, tutor.ID, time.Hour, time.Hour)
	future := e.slot(t, tutor.ID, 10*time.Hour, time.Hour)
	for _, slot := range []*model.TimeSlot{future, past} {
		_, err := e.bookings.BookSlot(ctx, student.ID, slot.ID)
		require.NoError(t, err)
	}
	e.clock.Advance(3 * time.Hour)

	all, err := e.bookings.ListSessions(ctx, student.ID, model.SlotWindowAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, past.ID, all[0].SlotID)

	upcoming, err := e.bookings.ListSessions(ctx, tutor.ID, model.SlotWindowUpcoming)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, future.ID, upcoming[0].SlotID)

	done, err := e.bookings.ListSessions(ctx, student.ID, model.SlotWindowCompleted)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, past.ID, done[0].SlotID)
}
