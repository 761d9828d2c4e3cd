package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"github.com/google/uuid"
)

const templateColumns = `id, group_id, tutor_id, weekday, start_hour, start_minute, duration_minutes, is_active, created_at`

type TemplateRepository struct {
	*base.Repository
}

func NewTemplateRepository(db base.DBTX) *TemplateRepository {
	return &TemplateRepository{Repository: base.NewRepository(db)}
}

// Create создаёт шаблон доступности
func (r *TemplateRepository) Create(ctx context.Context, t *model.AvailabilityTemplate) error {
	query := `
		INSERT INTO availability_templates (group_id, tutor_id, weekday, start_hour, start_minute, duration_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		t.GroupID,
		t.TutorID,
		t.Weekday,
		t.StartHour,
		t.StartMinute,
		t.DurationMinutes,
		t.IsActive,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		return fmt.Errorf("create availability template: %w", err)
	}
	return nil
}

// ListByTutor шаблоны репетитора
func (r *TemplateRepository) ListByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilityTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM availability_templates
		WHERE tutor_id = $1
		ORDER BY group_id, weekday, start_hour, start_minute
	`
	return r.query(ctx, query, tutorID)
}

// ListActive все активные шаблоны, используется генератором слотов
func (r *TemplateRepository) ListActive(ctx context.Context) ([]*model.AvailabilityTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM availability_templates
		WHERE is_active
		ORDER BY tutor_id, weekday, start_hour, start_minute
	`
	return r.query(ctx, query)
}

// SetGroupActive включает или выключает группу шаблонов
func (r *TemplateRepository) SetGroupActive(ctx context.Context, tutorID int64, groupID uuid.UUID, active bool) (int64, error) {
	query := `UPDATE availability_templates SET is_active = $3 WHERE tutor_id = $1 AND group_id = $2`

	affected, err := r.ExecAffected(ctx, query, tutorID, groupID, active)
	if err != nil {
		return 0, fmt.Errorf("update template group: %w", err)
	}
	return affected, nil
}

// DeleteGroup удаляет группу шаблонов, уже созданные слоты остаются
func (r *TemplateRepository) DeleteGroup(ctx context.Context, tutorID int64, groupID uuid.UUID) (int64, error) {
	query := `DELETE FROM availability_templates WHERE tutor_id = $1 AND group_id = $2`

	affected, err := r.ExecAffected(ctx, query, tutorID, groupID)
	if err != nil {
		return 0, fmt.Errorf("delete template group: %w", err)
	}
	return affected, nil
}

// ClaimOccurrence запоминает сгенерированное начало, повторная вставка ничего не делает
func (r *TemplateRepository) ClaimOccurrence(ctx context.Context, templateID int64, start time.Time) (bool, error) {
	query := `
		INSERT INTO template_occurrences (template_id, start_time)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	affected, err := r.ExecAffected(ctx, query, templateID, start)
	if err != nil {
		return false, fmt.Errorf("claim template occurrence: %w", err)
	}
	return affected == 1, nil
}

func (r *TemplateRepository) query(ctx context.Context, query string, args ...any) ([]*model.AvailabilityTemplate, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list availability templates: %w", err)
	}
	defer rows.Close()

	var templates []*model.AvailabilityTemplate
	for rows.Next() {
		var t model.AvailabilityTemplate
		err := rows.Scan(
			&t.ID,
			&t.GroupID,
			&t.TutorID,
			&t.Weekday,
			&t.StartHour,
			&t.StartMinute,
			&t.DurationMinutes,
			&t.IsActive,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability template: %w", err)
		}
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}
