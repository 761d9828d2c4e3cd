package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository"
	"github.com/google/uuid"
	"github.com/hay-kot/criterio"
	"go.uber.org/zap"
)

// TimeOfDay время начала занятия в шаблоне
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// TemplateGroupInput набор дней недели и времён, создаваемых одной группой
type TemplateGroupInput struct {
	Weekdays        []int
	Times           []TimeOfDay
	DurationMinutes int
}

func (in TemplateGroupInput) Validate() error {
	var errs criterio.FieldErrorsBuilder
	if len(in.Weekdays) == 0 {
		errs = errs.Append("weekdays", errors.New("at least one weekday is required"))
	}
	for i, d := range in.Weekdays {
		if d < 0 || d > 6 {
			errs = errs.Append(fmt.Sprintf("weekdays[%d]", i), errors.New("must be between 0 (Sunday) and 6 (Saturday)"))
		}
	}
	if len(in.Times) == 0 {
		errs = errs.Append("times", errors.New("at least one start time is required"))
	}
	for i, t := range in.Times {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			errs = errs.Append(fmt.Sprintf("times[%d]", i), errors.New("must be a valid time of day"))
		}
	}
	if in.DurationMinutes <= 0 || in.DurationMinutes > 24*60 {
		errs = errs.Append("duration_minutes", errors.New("must be between 1 and 1440"))
	}
	return errs.ToError()
}

// TemplateService еженедельные шаблоны доступности и генерация слотов по ним
type TemplateService struct {
	store      repository.Store
	logger     *zap.Logger
	now        func() time.Time
	weeksAhead int
	location   *time.Location
}

func NewTemplateService(store repository.Store, logger *zap.Logger, weeksAhead int, location *time.Location, opts ...Option) *TemplateService {
	o := buildOptions(opts)
	if weeksAhead <= 0 {
		weeksAhead = 4
	}
	if location == nil {
		location = time.UTC
	}
	return &TemplateService{
		store:      store,
		logger:     logger,
		now:        o.now,
		weeksAhead: weeksAhead,
		location:   location,
	}
}

// CreateGroup создаёт группу шаблонов и сразу генерирует слоты на weeksAhead недель
func (s *TemplateService) CreateGroup(ctx context.Context, tutorID int64, in TemplateGroupInput) (uuid.UUID, []*model.AvailabilityTemplate, error) {
	if err := in.Validate(); err != nil {
		return uuid.Nil, nil, apperror.InvalidInput(err)
	}

	// Генерируем общий group_id для всей группы
	groupID := uuid.New()
	var created []*model.AvailabilityTemplate

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := requireTutor(ctx, tx, tutorID); err != nil {
			return err
		}
		for _, weekday := range in.Weekdays {
			for _, at := range in.Times {
				t := &model.AvailabilityTemplate{
					GroupID:         groupID,
					TutorID:         tutorID,
					Weekday:         weekday,
					StartHour:       at.Hour,
					StartMinute:     at.Minute,
					DurationMinutes: in.DurationMinutes,
					IsActive:        true,
				}
				if err := tx.Templates().Create(ctx, t); err != nil {
					return err
				}
				created = append(created, t)
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("create template group: %w", err)
	}

	total := 0
	for _, t := range created {
		total += s.generateForTemplate(ctx, t)
	}

	s.logger.Info("Availability template group created",
		zap.String("group_id", groupID.String()),
		zap.Int64("tutor_id", tutorID),
		zap.Int("templates", len(created)),
		zap.Int("slots_created", total),
	)

	return groupID, created, nil
}

func (s *TemplateService) ListTemplates(ctx context.Context, tutorID int64) ([]*model.AvailabilityTemplate, error) {
	templates, err := s.store.Templates().ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// DeactivateGroup останавливает генерацию, созданные слоты остаются
func (s *TemplateService) DeactivateGroup(ctx context.Context, tutorID int64, groupID uuid.UUID) error {
	n, err := s.store.Templates().SetGroupActive(ctx, tutorID, groupID, false)
	if err != nil {
		return fmt.Errorf("deactivate template group: %w", err)
	}
	if n == 0 {
		return apperror.ErrTemplateNotFound
	}

	s.logger.Info("Availability template group deactivated",
		zap.String("group_id", groupID.String()),
		zap.Int64("tutor_id", tutorID),
	)
	return nil
}

// DeleteGroup удаляет группу шаблонов
func (s *TemplateService) DeleteGroup(ctx context.Context, tutorID int64, groupID uuid.UUID) error {
	n, err := s.store.Templates().DeleteGroup(ctx, tutorID, groupID)
	if err != nil {
		return fmt.Errorf("delete template group: %w", err)
	}
	if n == 0 {
		return apperror.ErrTemplateNotFound
	}

	s.logger.Info("Availability template group deleted",
		zap.String("group_id", groupID.String()),
		zap.Int64("tutor_id", tutorID),
	)
	return nil
}

// GenerateSlots создаёт слоты по всем активным шаблонам; вызывается планировщиком
func (s *TemplateService) GenerateSlots(ctx context.Context) (int, error) {
	templates, err := s.store.Templates().ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active templates: %w", err)
	}

	total := 0
	for _, t := range templates {
		total += s.generateForTemplate(ctx, t)
	}

	s.logger.Info("Generated slots for availability templates",
		zap.Int("templates", len(templates)),
		zap.Int("slots_created", total),
	)
	return total, nil
}

// generateForTemplate пропускает прошедшие, занятые и уже сгенерированные ранее начала; ошибки не прерывают генерацию
func (s *TemplateService) generateForTemplate(ctx context.Context, t *model.AvailabilityTemplate) int {
	from := s.now().In(s.location)
	to := from.AddDate(0, 0, 7*s.weeksAhead)

	count := 0
	for _, start := range t.NextOccurrences(from, to) {
		created, err := s.generateOccurrence(ctx, t, start.UTC(), start.Add(t.Duration()).UTC())
		if err != nil {
			if !errors.Is(err, apperror.ErrSlotOverlap) {
				s.logger.Warn("Failed to generate slot", zap.Error(err),
					zap.Int64("template_id", t.ID), zap.Time("start_time", start))
			}
			continue
		}
		if created {
			count++
		}
	}
	return count
}

// generateOccurrence создаёт слот один раз на начало: отменённый или удалённый слот не возвращается
func (s *TemplateService) generateOccurrence(ctx context.Context, t *model.AvailabilityTemplate, start, end time.Time) (bool, error) {
	created := false
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		exists, err := tx.Slots().ExistsAt(ctx, t.TutorID, start)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		overlap, err := tx.Slots().HasOverlap(ctx, t.TutorID, start, end)
		if err != nil {
			return err
		}
		if overlap {
			return nil
		}

		claimed, err := tx.Templates().ClaimOccurrence(ctx, t.ID, start)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}

		slot := &model.TimeSlot{
			TutorID:   t.TutorID,
			StartTime: start,
			EndTime:   end,
			Status:    model.SlotStatusAvailable,
		}
		if err := tx.Slots().Create(ctx, slot); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
