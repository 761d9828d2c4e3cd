package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
)

type SessionRepository struct {
	*base.Repository
}

func NewSessionRepository(db base.DBTX) *SessionRepository {
	return &SessionRepository{Repository: base.NewRepository(db)}
}

// Create создаёт сессию для забронированного слота
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (slot_id, student_id, tutor_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, session.SlotID, session.StudentID, session.TutorID).
		Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return apperror.ErrSlotNotAvailable
		}
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetByID получает сессию по ID
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	query := `SELECT id, slot_id, student_id, tutor_id, created_at FROM sessions WHERE id = $1`

	var s model.Session
	err := r.QueryRow(ctx, query, id).Scan(&s.ID, &s.SlotID, &s.StudentID, &s.TutorID, &s.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return &s, nil
}

// GetBySlotID получает сессию слота
func (r *SessionRepository) GetBySlotID(ctx context.Context, slotID int64) (*model.Session, error) {
	query := `SELECT id, slot_id, student_id, tutor_id, created_at FROM sessions WHERE slot_id = $1`

	var s model.Session
	err := r.QueryRow(ctx, query, slotID).Scan(&s.ID, &s.SlotID, &s.StudentID, &s.TutorID, &s.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by slot: %w", err)
	}

	return &s, nil
}

// Delete удаляет сессию
func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected == 0 {
		return apperror.ErrSessionNotFound
	}
	return nil
}

// ListForUser возвращает сессии, где пользователь студент или репетитор
func (r *SessionRepository) ListForUser(ctx context.Context, userID int64, filter model.SlotFilter) ([]*model.SessionView, error) {
	query := `
		SELECT s.id, s.slot_id, s.student_id, s.tutor_id, s.created_at,
		       t.start_time, t.end_time, t.status
		FROM sessions s
		JOIN time_slots t ON t.id = s.slot_id
		WHERE (s.student_id = $1 OR s.tutor_id = $1)
		  AND ($2::text IS NULL OR t.status = $2::text)
		  AND ($3::text <> 'upcoming' OR t.start_time > $4)
		  AND ($3::text <> 'completed' OR t.end_time < $4)
		ORDER BY t.start_time, s.id
	`

	var status *string
	if filter.Status != nil {
		st := string(*filter.Status)
		status = &st
	}
	window := string(filter.Window)
	if window == "" {
		window = string(model.SlotWindowAll)
	}

	rows, err := r.Query(ctx, query, userID, status, window, filter.Now)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.SessionView
	for rows.Next() {
		var v model.SessionView
		err := rows.Scan(
			&v.ID,
			&v.SlotID,
			&v.StudentID,
			&v.TutorID,
			&v.CreatedAt,
			&v.StartTime,
			&v.EndTime,
			&v.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &v)
	}

	return sessions, rows.Err()
}
