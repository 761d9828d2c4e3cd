package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository"
	"go.uber.org/zap"
)

// upcomingSlotsInCard сколько ближайших свободных слотов показывать в поиске
const upcomingSlotsInCard = 3

// CatalogService предметы, классы и поиск репетиторов
type CatalogService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewCatalogService(store repository.Store, logger *zap.Logger, opts ...Option) *CatalogService {
	o := buildOptions(opts)
	return &CatalogService{store: store, logger: logger, now: o.now}
}

func (s *CatalogService) CreateSubject(ctx context.Context, name string) (*model.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("subject name is required")
	}

	subject := &model.Subject{Name: name}
	if err := s.store.Catalog().CreateSubject(ctx, subject); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}

	s.logger.Info("Subject created", zap.Int64("subject_id", subject.ID), zap.String("name", name))
	return subject, nil
}

func (s *CatalogService) ListSubjects(ctx context.Context) ([]*model.Subject, error) {
	subjects, err := s.store.Catalog().ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

func (s *CatalogService) CreateClass(ctx context.Context, subjectID int64, name, code string) (*model.Class, error) {
	name, code = strings.TrimSpace(name), strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return nil, apperror.Validation("class name and code are required")
	}

	class := &model.Class{SubjectID: subjectID, Name: name, Code: code}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		subject, err := tx.Catalog().GetSubject(ctx, subjectID)
		if err != nil {
			return err
		}
		if subject == nil {
			return apperror.ErrSubjectNotFound
		}
		return tx.Catalog().CreateClass(ctx, class)
	})
	if err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}

	s.logger.Info("Class created", zap.Int64("class_id", class.ID), zap.String("code", code))
	return class, nil
}

func (s *CatalogService) ListClasses(ctx context.Context, subjectID *int64) ([]*model.Class, error) {
	classes, err := s.store.Catalog().ListClasses(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// AssignClasses заменяет набор классов, которые ведёт репетитор
func (s *CatalogService) AssignClasses(ctx context.Context, tutorID int64, classIDs []int64) ([]*model.Class, error) {
	var classes []*model.Class
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := requireTutor(ctx, tx, tutorID); err != nil {
			return err
		}
		if err := setTutorClasses(ctx, tx, tutorID, classIDs); err != nil {
			return err
		}

		var err error
		classes, err = tx.Catalog().ListTutorClasses(ctx, tutorID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("assign classes: %w", err)
	}

	s.logger.Info("Tutor classes updated", zap.Int64("tutor_id", tutorID), zap.Int("count", len(classes)))
	return classes, nil
}

func (s *CatalogService) ListTutorClasses(ctx context.Context, tutorID int64) ([]*model.Class, error) {
	if err := requireTutor(ctx, s.store, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor classes: %w", err)
	}
	classes, err := s.store.Catalog().ListTutorClasses(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("list tutor classes: %w", err)
	}
	return classes, nil
}

// FindTutors карточки репетиторов с рейтингом и ближайшими свободными слотами
func (s *CatalogService) FindTutors(ctx context.Context, subjectID, classID *int64) ([]*model.TutorCard, error) {
	ids, err := s.store.Catalog().FindTutors(ctx, subjectID, classID)
	if err != nil {
		return nil, fmt.Errorf("find tutors: %w", err)
	}

	cards := make([]*model.TutorCard, 0, len(ids))
	for _, id := range ids {
		card, err := s.tutorCard(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("find tutors: %w", err)
		}
		if card != nil {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// GetTutor публичная страница репетитора: карточка, классы и по запросу отзывы
func (s *CatalogService) GetTutor(ctx context.Context, tutorID int64, withReviews bool) (*model.TutorDetails, error) {
	card, err := s.tutorCard(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if card == nil {
		return nil, apperror.ErrTutorNotFound
	}

	details := &model.TutorDetails{TutorCard: *card}
	if details.Classes, err = s.store.Catalog().ListTutorClasses(ctx, tutorID); err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if details.Classes == nil {
		details.Classes = []*model.Class{}
	}
	if withReviews {
		if details.Reviews, err = s.store.Reviews().ListForTutor(ctx, tutorID); err != nil {
			return nil, fmt.Errorf("get tutor: %w", err)
		}
	}
	return details, nil
}

// tutorCard возвращает nil, если у пользователя нет профиля репетитора
func (s *CatalogService) tutorCard(ctx context.Context, id int64) (*model.TutorCard, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.Profiles().GetTutor(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || profile == nil {
		return nil, nil
	}
	summary, err := s.store.Reviews().Summary(ctx, id)
	if err != nil {
		return nil, err
	}

	card := &model.TutorCard{
		TutorID:       id,
		Name:          user.FullName(),
		HourlyRate:    profile.HourlyRate,
		Bio:           profile.Bio,
		AverageRating: summary.Average,
		ReviewCount:   summary.Count,
		UpcomingSlots: []time.Time{},
	}

	available := model.SlotStatusAvailable
	filter := model.SlotFilter{
		Status: &available,
		Window: model.SlotWindowUpcoming,
		Now:    s.now(),
		Limit:  upcomingSlotsInCard,
	}
	for slot, err := range s.store.Slots().List(ctx, id, filter) {
		if err != nil {
			return nil, err
		}
		card.UpcomingSlots = append(card.UpcomingSlots, slot.StartTime)
	}
	return card, nil
}
