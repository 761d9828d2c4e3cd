package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
)

type ReviewRepository struct {
	*base.Repository
}

func NewReviewRepository(db base.DBTX) *ReviewRepository {
	return &ReviewRepository{Repository: base.NewRepository(db)}
}

// Create сохраняет отзыв; повторный отзыв на сессию даёт ErrAlreadyReviewed
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	query := `
		INSERT INTO reviews (session_id, rating, comment)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, review.SessionID, review.Rating, review.Comment).
		Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		switch {
		case base.IsUniqueViolation(err):
			return apperror.ErrAlreadyReviewed
		case base.IsCheckViolation(err):
			return apperror.ErrInvalidRating
		}
		return fmt.Errorf("create review: %w", err)
	}

	return nil
}

// GetBySessionID получает отзыв на сессию
func (r *ReviewRepository) GetBySessionID(ctx context.Context, sessionID int64) (*model.Review, error) {
	query := `SELECT id, session_id, rating, comment, created_at FROM reviews WHERE session_id = $1`

	var rv model.Review
	err := r.QueryRow(ctx, query, sessionID).Scan(&rv.ID, &rv.SessionID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review by session: %w", err)
	}

	return &rv, nil
}

// ListForTutor отзывы о репетиторе, новые первыми
func (r *ReviewRepository) ListForTutor(ctx context.Context, tutorID int64) ([]*model.Review, error) {
	query := `
		SELECT r.id, r.session_id, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN sessions s ON s.id = r.session_id
		WHERE s.tutor_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`

	rows, err := r.Query(ctx, query, tutorID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.SessionID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, &rv)
	}

	return reviews, rows.Err()
}

// Summary считает гистограмму оценок репетитора
func (r *ReviewRepository) Summary(ctx context.Context, tutorID int64) (*model.RatingSummary, error) {
	query := `
		SELECT r.rating, COUNT(*)
		FROM reviews r
		JOIN sessions s ON s.id = r.session_id
		WHERE s.tutor_id = $1
		GROUP BY r.rating
	`

	rows, err := r.Query(ctx, query, tutorID)
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	defer rows.Close()

	summary := model.NewRatingSummary(tutorID)
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		for range count {
			summary.Add(rating)
		}
	}

	return summary, rows.Err()
}
