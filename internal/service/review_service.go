package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository"
	"go.uber.org/zap"
)

const maxCommentLength = 2000

type ReviewService struct {
	store    repository.Store
	logger   *zap.Logger
	now      func() time.Time
	notifier Notifier
}

func NewReviewService(store repository.Store, logger *zap.Logger, opts ...Option) *ReviewService {
	o := buildOptions(opts)
	return &ReviewService{
		store:    store,
		logger:   logger,
		now:      o.now,
		notifier: o.notifier,
	}
}

// SubmitReview сохраняет единственный отзыв студента о завершённой сессии.
// Порядок проверок: оценка, существование сессии, автор, статус слота, повторный отзыв.
func (s *ReviewService) SubmitReview(ctx context.Context, studentID, sessionID int64, rating int, comment *string) (*model.Review, error) {
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, apperror.ErrInvalidRating
	}
	comment, err := normalizeComment(comment)
	if err != nil {
		return nil, err
	}

	now := s.now()
	review := &model.Review{SessionID: sessionID, Rating: rating, Comment: comment}
	var tutorID int64

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		session, err := tx.Sessions().GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return apperror.ErrSessionNotFound
		}
		if session.StudentID != studentID {
			return apperror.ErrNotSessionOwner
		}
		tutorID = session.TutorID

		slot, err := tx.Slots().GetByID(ctx, session.SlotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return apperror.ErrSlotNotFound
		}

		// Ленивое завершение: сборщик мог ещё не дойти до закончившегося занятия
		if slot.Status == model.SlotStatusBooked && slot.Elapsed(now) {
			if _, err := tx.Slots().Transition(ctx, slot.ID, model.SlotStatusBooked, model.SlotStatusCompleted); err != nil {
				return err
			}
			slot.Status = model.SlotStatusCompleted
		}
		if slot.Status != model.SlotStatusCompleted {
			return apperror.ErrSessionNotComplete
		}

		existing, err := tx.Reviews().GetBySessionID(ctx, sessionID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.ErrAlreadyReviewed
		}

		return tx.Reviews().Create(ctx, review)
	})
	if err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}

	s.logger.Info("Review submitted",
		zap.Int64("review_id", review.ID),
		zap.Int64("session_id", sessionID),
		zap.Int64("student_id", studentID),
		zap.Int("rating", rating),
	)

	s.notifier.Notify(ctx, tutorID, fmt.Sprintf("You received a new review: %d/5", rating))

	return review, nil
}

// TutorRatingSummary средняя оценка и гистограмма отзывов репетитора
func (s *ReviewService) TutorRatingSummary(ctx context.Context, tutorID int64) (*model.RatingSummary, error) {
	if err := requireTutor(ctx, s.store, tutorID); err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}

	summary, err := s.store.Reviews().Summary(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	return summary, nil
}

// ListTutorReviews отзывы о репетиторе, новые первыми
func (s *ReviewService) ListTutorReviews(ctx context.Context, tutorID int64) ([]*model.Review, error) {
	if err := requireTutor(ctx, s.store, tutorID); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	reviews, err := s.store.Reviews().ListForTutor(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func normalizeComment(comment *string) (*string, error) {
	if comment == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxCommentLength {
		return nil, apperror.Validation("comment must be at most %d characters", maxCommentLength)
	}
	return &trimmed, nil
}
