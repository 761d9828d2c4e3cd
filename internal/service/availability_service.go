package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/render"
	"github.com/Freeeeeet/tutor_market/internal/repository"
	"go.uber.org/zap"
)

// AvailabilityService управляет слотами репетиторов
type AvailabilityService struct {
	store    repository.Store
	logger   *zap.Logger
	now      func() time.Time
	notifier Notifier
}

func NewAvailabilityService(store repository.Store, logger *zap.Logger, opts ...Option) *AvailabilityService {
	o := buildOptions(opts)
	return &AvailabilityService{
		store:    store,
		logger:   logger,
		now:      o.now,
		notifier: o.notifier,
	}
}

// CreateSlot создаёт свободный слот репетитора
func (s *AvailabilityService) CreateSlot(ctx context.Context, tutorID int64, start, end time.Time) (*model.TimeSlot, error) {
	if !start.Before(end) {
		return nil, apperror.ErrInvalidTimeRange
	}
	if start.Before(s.now()) {
		return nil, apperror.ErrSlotInPast
	}

	slot := &model.TimeSlot{
		TutorID:   tutorID,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Status:    model.SlotStatusAvailable,
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := requireTutor(ctx, tx, tutorID); err != nil {
			return err
		}

		overlap, err := tx.Slots().HasOverlap(ctx, tutorID, slot.StartTime, slot.EndTime)
		if err != nil {
			return err
		}
		if overlap {
			return apperror.ErrSlotOverlap
		}

		return tx.Slots().Create(ctx, slot)
	})
	if err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("tutor_id", tutorID),
		zap.Time("start_time", slot.StartTime),
		zap.Time("end_time", slot.EndTime),
	)

	return slot, nil
}

// ListSlots возвращает ленивую последовательность слотов по возрастанию начала.
// Каждый обход заново выполняет запрос, окно upcoming/completed считается от момента обхода.
func (s *AvailabilityService) ListSlots(ctx context.Context, tutorID int64, status *model.SlotStatus, window model.SlotWindow) iter.Seq2[*model.TimeSlot, error] {
	return func(yield func(*model.TimeSlot, error) bool) {
		filter := model.SlotFilter{Status: status, Window: window, Now: s.now()}
		for slot, err := range s.store.Slots().List(ctx, tutorID, filter) {
			if !yield(slot, err) {
				return
			}
		}
	}
}

// GetSlot получает слот по ID
func (s *AvailabilityService) GetSlot(ctx context.Context, slotID int64) (*model.TimeSlot, error) {
	slot, err := s.store.Slots().GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, apperror.ErrSlotNotFound
	}
	return slot, nil
}

// DeleteSlot удаляет свободный слот; проверки: существование, владелец, статус
func (s *AvailabilityService) DeleteSlot(ctx context.Context, tutorID, slotID int64) error {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		slot, err := tx.Slots().GetByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return apperror.ErrSlotNotFound
		}
		if slot.TutorID != tutorID {
			return apperror.ErrNotSlotOwner
		}
		if slot.Status != model.SlotStatusAvailable {
			return apperror.ErrSlotNotAvailable
		}

		deleted, err := tx.Slots().DeleteAvailable(ctx, slotID)
		if err != nil {
			return err
		}
		if !deleted {
			// слот успели забронировать между чтением и удалением
			return apperror.ErrSlotNotAvailable
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	s.logger.Info("Slot deleted",
		zap.Int64("slot_id", slotID),
		zap.Int64("tutor_id", tutorID),
	)
	return nil
}

// CancelSlot отменяет слот репетитором; сессия забронированного слота удаляется
func (s *AvailabilityService) CancelSlot(ctx context.Context, tutorID, slotID int64) (*model.TimeSlot, error) {
	var (
		slot      *model.TimeSlot
		studentID *int64
	)

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		slot, err = tx.Slots().GetByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return apperror.ErrSlotNotFound
		}
		if slot.TutorID != tutorID {
			return apperror.ErrNotSlotOwner
		}
		if !slot.Status.CanTransitionTo(model.SlotStatusCancelled) {
			return apperror.Conflict("slot in status %s cannot be cancelled", slot.Status)
		}
		if slot.Status == model.SlotStatusBooked && s.now().After(slot.StartTime) {
			return apperror.ErrSessionStarted
		}

		if slot.Status == model.SlotStatusBooked {
			session, err := tx.Sessions().GetBySlotID(ctx, slotID)
			if err != nil {
				return err
			}
			if session != nil {
				if err := tx.Sessions().Delete(ctx, session.ID); err != nil {
					return err
				}
			}
			studentID = slot.StudentID
		}

		ok, err := tx.Slots().Transition(ctx, slotID, slot.Status, model.SlotStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.ErrSlotNotAvailable
		}

		slot.Status = model.SlotStatusCancelled
		slot.StudentID = nil
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel slot: %w", err)
	}

	s.logger.Info("Slot cancelled",
		zap.Int64("slot_id", slotID),
		zap.Int64("tutor_id", tutorID),
		zap.Bool("had_booking", studentID != nil),
	)

	if studentID != nil {
		s.notifier.Notify(ctx, *studentID, fmt.Sprintf(
			"Tutor cancelled your session on %s", slot.StartTime.Format(timeLayout)))
	}

	return slot, nil
}

// WeekSchedule рисует неделю репетитора, содержащую day, в виде PNG.
// Неделя считается в часовом поясе day.
func (s *AvailabilityService) WeekSchedule(ctx context.Context, tutorID int64, day time.Time) ([]byte, error) {
	if err := requireTutor(ctx, s.store, tutorID); err != nil {
		return nil, fmt.Errorf("week schedule: %w", err)
	}

	weekStart := render.WeekStart(day)
	weekEnd := weekStart.AddDate(0, 0, 7)

	var slots []*model.TimeSlot
	for slot, err := range s.ListSlots(ctx, tutorID, nil, model.SlotWindowAll) {
		if err != nil {
			return nil, fmt.Errorf("week schedule: %w", err)
		}
		if !slot.StartTime.Before(weekEnd) {
			break
		}
		if !slot.StartTime.Before(weekStart) {
			slots = append(slots, slot)
		}
	}

	img, err := render.WeekImage(weekStart, s.now(), slots)
	if err != nil {
		return nil, fmt.Errorf("week schedule: %w", err)
	}
	return img, nil
}

// requireTutor проверяет что id принадлежит зарегистрированному профилю репетитора
func requireTutor(ctx context.Context, store repository.Store, tutorID int64) error {
	profile, err := store.Profiles().GetTutor(ctx, tutorID)
	if err != nil {
		return err
	}
	if profile == nil {
		return apperror.ErrTutorNotFound
	}
	return nil
}
