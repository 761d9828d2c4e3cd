package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
)

type ProfileRepository struct {
	*base.Repository
}

func NewProfileRepository(db base.DBTX) *ProfileRepository {
	return &ProfileRepository{Repository: base.NewRepository(db)}
}

// CreateTutor создаёт профиль репетитора
func (r *ProfileRepository) CreateTutor(ctx context.Context, p *model.TutorProfile) error {
	query := `INSERT INTO tutor_profiles (user_id, hourly_rate, bio) VALUES ($1, $2, $3)`

	if _, err := r.ExecAffected(ctx, query, p.UserID, p.HourlyRate, p.Bio); err != nil {
		if base.IsUniqueViolation(err) {
			return apperror.ErrDuplicate
		}
		return fmt.Errorf("create tutor profile: %w", err)
	}
	return nil
}

// GetTutor получает профиль репетитора
func (r *ProfileRepository) GetTutor(ctx context.Context, userID int64) (*model.TutorProfile, error) {
	query := `SELECT user_id, hourly_rate, bio FROM tutor_profiles WHERE user_id = $1`

	var p model.TutorProfile
	err := r.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.HourlyRate, &p.Bio)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tutor profile: %w", err)
	}
	return &p, nil
}

// UpdateTutor обновляет ставку и описание
func (r *ProfileRepository) UpdateTutor(ctx context.Context, p *model.TutorProfile) error {
	query := `UPDATE tutor_profiles SET hourly_rate = $2, bio = $3 WHERE user_id = $1`

	affected, err := r.ExecAffected(ctx, query, p.UserID, p.HourlyRate, p.Bio)
	if err != nil {
		return fmt.Errorf("update tutor profile: %w", err)
	}
	if affected == 0 {
		return apperror.ErrTutorNotFound
	}
	return nil
}

// CreateStudent создаёт профиль студента
func (r *ProfileRepository) CreateStudent(ctx context.Context, p *model.StudentProfile) error {
	query := `INSERT INTO student_profiles (user_id, major, year) VALUES ($1, $2, $3)`

	if _, err := r.ExecAffected(ctx, query, p.UserID, p.Major, p.Year); err != nil {
		if base.IsUniqueViolation(err) {
			return apperror.ErrDuplicate
		}
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

// GetStudent получает профиль студента
func (r *ProfileRepository) GetStudent(ctx context.Context, userID int64) (*model.StudentProfile, error) {
	query := `SELECT user_id, major, year FROM student_profiles WHERE user_id = $1`

	var p model.StudentProfile
	err := r.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Major, &p.Year)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student profile: %w", err)
	}
	return &p, nil
}

// UpdateStudent обновляет специальность и курс
func (r *ProfileRepository) UpdateStudent(ctx context.Context, p *model.StudentProfile) error {
	query := `UPDATE student_profiles SET major = $2, year = $3 WHERE user_id = $1`

	affected, err := r.ExecAffected(ctx, query, p.UserID, p.Major, p.Year)
	if err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	if affected == 0 {
		return apperror.ErrUserNotFound
	}
	return nil
}

// DeleteTutor удаляет профиль репетитора, зависимые строки удаляются каскадом
func (r *ProfileRepository) DeleteTutor(ctx context.Context, userID int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM tutor_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete tutor profile: %w", err)
	}
	if affected == 0 {
		return apperror.ErrTutorNotFound
	}
	return nil
}

func (r *ProfileRepository) DeleteStudent(ctx context.Context, userID int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM student_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete student profile: %w", err)
	}
	if affected == 0 {
		return apperror.ErrUserNotFound
	}
	return nil
}
