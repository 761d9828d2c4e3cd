package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository"
	"go.uber.org/zap"
)

type BookingService struct {
	store    repository.Store
	logger   *zap.Logger
	now      func() time.Time
	notifier Notifier
}

func NewBookingService(store repository.Store, logger *zap.Logger, opts ...Option) *BookingService {
	o := buildOptions(opts)
	return &BookingService{
		store:    store,
		logger:   logger,
		now:      o.now,
		notifier: o.notifier,
	}
}

// BookSlot бронирует слот для студента.
// Переход available -> booked выполняется одним условным UPDATE, сессия создаётся в той же транзакции.
func (s *BookingService) BookSlot(ctx context.Context, studentID, slotID int64) (*model.Session, error) {
	now := s.now()
	var session *model.Session

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		student, err := tx.Users().GetByID(ctx, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return apperror.ErrUserNotFound
		}
		if student.Role != model.RoleStudent {
			return apperror.ErrForbiddenRole
		}

		booked, err := tx.Slots().Book(ctx, slotID, studentID, now)
		if err != nil {
			return err
		}
		if !booked {
			return classifyBookingFailure(ctx, tx, slotID, now)
		}

		slot, err := tx.Slots().GetByID(ctx, slotID)
		if err != nil {
			return err
		}

		session = &model.Session{
			SlotID:    slotID,
			StudentID: studentID,
			TutorID:   slot.TutorID,
		}
		if err := tx.Sessions().Create(ctx, session); err != nil {
			return err
		}
		session.Slot = slot
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("book slot: %w", err)
	}

	s.logger.Info("Slot booked",
		zap.Int64("session_id", session.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("slot_id", slotID),
		zap.Int64("tutor_id", session.TutorID),
	)

	s.notifier.Notify(ctx, session.TutorID, fmt.Sprintf(
		"New booking for %s", session.Slot.StartTime.Format(timeLayout)))

	return session, nil
}

// classifyBookingFailure объясняет почему условный UPDATE не затронул строк
func classifyBookingFailure(ctx context.Context, tx repository.Store, slotID int64, now time.Time) error {
	slot, err := tx.Slots().GetByID(ctx, slotID)
	if err != nil {
		return err
	}
	switch {
	case slot == nil:
		return apperror.ErrSlotNotFound
	case slot.Status != model.SlotStatusAvailable:
		return apperror.ErrSlotNotAvailable
	case slot.StartTime.Before(now):
		return apperror.ErrSlotInPast
	}
	return apperror.ErrSlotNotAvailable
}

// CancelBooking отменяет бронь по запросу репетитора или студента сессии.
// Сессия удаляется, слот возвращается в available. После начала занятия отмена запрещена.
func (s *BookingService) CancelBooking(ctx context.Context, requesterID, sessionID int64) error {
	var session *model.Session

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		session, err = tx.Sessions().GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return apperror.ErrSessionNotFound
		}
		if requesterID != session.TutorID && requesterID != session.StudentID {
			return apperror.ErrNotSessionParty
		}

		slot, err := tx.Slots().GetByID(ctx, session.SlotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return apperror.ErrSlotNotFound
		}
		if slot.Status != model.SlotStatusBooked {
			return apperror.ErrSlotNotBooked
		}
		if s.now().After(slot.StartTime) {
			return apperror.ErrSessionStarted
		}

		released, err := tx.Slots().Transition(ctx, slot.ID, model.SlotStatusBooked, model.SlotStatusAvailable)
		if err != nil {
			return err
		}
		if !released {
			return apperror.ErrSlotNotBooked
		}

		session.Slot = slot
		return tx.Sessions().Delete(ctx, sessionID)
	})
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("session_id", sessionID),
		zap.Int64("slot_id", session.SlotID),
		zap.Int64("requester_id", requesterID),
	)

	other := session.TutorID
	if requesterID == session.TutorID {
		other = session.StudentID
	}
	s.notifier.Notify(ctx, other, fmt.Sprintf(
		"Session on %s was cancelled", session.Slot.StartTime.Format(timeLayout)))

	return nil
}

// CompleteSession вручную завершает сессию; повторный вызов ничего не меняет
func (s *BookingService) CompleteSession(ctx context.Context, sessionID int64) error {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		session, err := tx.Sessions().GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return apperror.ErrSessionNotFound
		}

		slot, err := tx.Slots().GetByID(ctx, session.SlotID)
		if err != nil {
			return err
		}
		switch {
		case slot == nil:
			return apperror.ErrSlotNotFound
		case slot.Status == model.SlotStatusCompleted:
			return nil
		case slot.Status != model.SlotStatusBooked:
			return apperror.ErrSlotNotBooked
		}

		done, err := tx.Slots().Transition(ctx, slot.ID, model.SlotStatusBooked, model.SlotStatusCompleted)
		if err != nil {
			return err
		}
		if !done {
			return apperror.ErrSlotNotBooked
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	s.logger.Info("Session completed", zap.Int64("session_id", sessionID))
	return nil
}

// CompleteElapsed переводит все закончившиеся забронированные слоты в completed
func (s *BookingService) CompleteElapsed(ctx context.Context) (int64, error) {
	n, err := s.store.Slots().CompleteElapsed(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("complete elapsed sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("Elapsed sessions completed", zap.Int64("count", n))
	}
	return n, nil
}

// GetSession возвращает сессию участнику или администратору
func (s *BookingService) GetSession(ctx context.Context, requesterID int64, role model.Role, sessionID int64) (*model.Session, error) {
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, apperror.ErrSessionNotFound
	}
	if role != model.RoleAdmin && requesterID != session.TutorID && requesterID != session.StudentID {
		return nil, apperror.ErrNotSessionParty
	}

	slot, err := s.store.Slots().GetByID(ctx, session.SlotID)
	if err != nil {
		return nil, fmt.Errorf("get session slot: %w", err)
	}
	session.Slot = slot
	return session, nil
}

// ListSessions сессии пользователя в выбранном окне времени
func (s *BookingService) ListSessions(ctx context.Context, userID int64, window model.SlotWindow) ([]*model.SessionView, error) {
	sessions, err := s.store.Sessions().ListForUser(ctx, userID, model.SlotFilter{Window: window, Now: s.now()})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
