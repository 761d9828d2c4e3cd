package repository

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, tutor_id, start_time, end_time, status, student_id, created_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(db base.DBTX) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(db)}
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.TimeSlot) error {
	query := `
		INSERT INTO time_slots (tutor_id, start_time, end_time, status, student_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.TutorID,
		slot.StartTime,
		slot.EndTime,
		string(slot.Status),
		slot.StudentID,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		switch {
		case base.IsExclusionViolation(err):
			return apperror.ErrSlotOverlap
		case base.IsForeignKeyViolation(err):
			return apperror.ErrTutorNotFound
		}
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// HasOverlap проверяет пересечение с неотменёнными слотами репетитора
func (r *SlotRepository) HasOverlap(ctx context.Context, tutorID int64, start, end time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM time_slots
			WHERE tutor_id = $1
			  AND status <> 'cancelled'
			  AND start_time < $3
			  AND end_time > $2
		)
	`

	var exists bool
	if err := r.QueryRow(ctx, query, tutorID, start, end).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slot overlap: %w", err)
	}
	return exists, nil
}

// ExistsAt ищет слот с тем же началом, включая отменённые
func (r *SlotRepository) ExistsAt(ctx context.Context, tutorID int64, start time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM time_slots WHERE tutor_id = $1 AND start_time = $2)`

	var exists bool
	if err := r.QueryRow(ctx, query, tutorID, start).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slot start: %w", err)
	}
	return exists, nil
}

// List лениво выбирает слоты репетитора по фильтру в порядке start_time
func (r *SlotRepository) List(ctx context.Context, tutorID int64, filter model.SlotFilter) iter.Seq2[*model.TimeSlot, error] {
	query := `
		SELECT ` + slotColumns + `
		FROM time_slots
		WHERE tutor_id = $1
		  AND ($2::text IS NULL OR status = $2::text)
		  AND ($3::text <> 'upcoming' OR start_time > $4)
		  AND ($3::text <> 'completed' OR end_time < $4)
		ORDER BY start_time, id
		LIMIT NULLIF($5::int, 0)
	`

	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}
	window := string(filter.Window)
	if window == "" {
		window = string(model.SlotWindowAll)
	}

	return func(yield func(*model.TimeSlot, error) bool) {
		rows, err := r.Query(ctx, query, tutorID, status, window, filter.Now, filter.Limit)
		if err != nil {
			yield(nil, fmt.Errorf("list slots: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			slot, err := scanSlot(rows)
			if err != nil {
				yield(nil, fmt.Errorf("scan slot: %w", err))
				return
			}
			if !yield(slot, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("list slots: %w", err))
		}
	}
}

// Book бронирует слот одним условным UPDATE
func (r *SlotRepository) Book(ctx context.Context, slotID, studentID int64, now time.Time) (bool, error) {
	query := `
		UPDATE time_slots
		SET status = 'booked', student_id = $2
		WHERE id = $1 AND status = 'available' AND start_time >= $3
	`

	affected, err := r.ExecAffected(ctx, query, slotID, studentID, now)
	if err != nil {
		return false, fmt.Errorf("book slot: %w", err)
	}

	return affected == 1, nil
}

// Transition меняет статус слота, если текущий статус равен from
func (r *SlotRepository) Transition(ctx context.Context, slotID int64, from, to model.SlotStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("illegal slot transition %s -> %s", from, to)
	}

	query := `
		UPDATE time_slots
		SET status = $3,
		    student_id = CASE WHEN $4::boolean THEN student_id ELSE NULL END
		WHERE id = $1 AND status = $2
	`

	affected, err := r.ExecAffected(ctx, query, slotID, string(from), string(to), to.HasStudent())
	if err != nil {
		return false, fmt.Errorf("update slot status: %w", err)
	}

	return affected == 1, nil
}

// DeleteAvailable удаляет свободный слот
func (r *SlotRepository) DeleteAvailable(ctx context.Context, slotID int64) (bool, error) {
	query := `DELETE FROM time_slots WHERE id = $1 AND status = 'available'`

	affected, err := r.ExecAffected(ctx, query, slotID)
	if err != nil {
		return false, fmt.Errorf("delete slot: %w", err)
	}

	return affected == 1, nil
}

// CompleteElapsed завершает прошедшие забронированные слоты
func (r *SlotRepository) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE time_slots
		SET status = 'completed'
		WHERE status = 'booked' AND end_time <= $1
	`

	affected, err := r.ExecAffected(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("complete elapsed slots: %w", err)
	}

	return affected, nil
}

func scanSlot(row pgx.Row) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	err := row.Scan(
		&slot.ID,
		&slot.TutorID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Status,
		&slot.StudentID,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
