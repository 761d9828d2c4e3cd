package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
)

// CatalogRepository предметы, классы и связи репетиторов с классами
type CatalogRepository struct {
	*base.Repository
}

func NewCatalogRepository(db base.DBTX) *CatalogRepository {
	return &CatalogRepository{Repository: base.NewRepository(db)}
}

// CreateSubject создаёт предмет
func (r *CatalogRepository) CreateSubject(ctx context.Context, subject *model.Subject) error {
	err := r.QueryRow(ctx, `INSERT INTO subjects (name) VALUES ($1) RETURNING id`, subject.Name).
		Scan(&subject.ID)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return apperror.ErrDuplicate
		}
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// GetSubject получает предмет по ID
func (r *CatalogRepository) GetSubject(ctx context.Context, id int64) (*model.Subject, error) {
	var s model.Subject
	err := r.QueryRow(ctx, `SELECT id, name FROM subjects WHERE id = $1`, id).Scan(&s.ID, &s.Name)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subject by id: %w", err)
	}
	return &s, nil
}

// ListSubjects возвращает все предметы по алфавиту
func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]*model.Subject, error) {
	rows, err := r.Query(ctx, `SELECT id, name FROM subjects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*model.Subject
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, &s)
	}
	return subjects, rows.Err()
}

// CreateClass создаёт класс внутри предмета
func (r *CatalogRepository) CreateClass(ctx context.Context, class *model.Class) error {
	query := `INSERT INTO classes (subject_id, name, code) VALUES ($1, $2, $3) RETURNING id`

	err := r.QueryRow(ctx, query, class.SubjectID, class.Name, class.Code).Scan(&class.ID)
	if err != nil {
		switch {
		case base.IsUniqueViolation(err):
			return apperror.ErrDuplicate
		case base.IsForeignKeyViolation(err):
			return apperror.ErrSubjectNotFound
		}
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// GetClass получает класс по ID
func (r *CatalogRepository) GetClass(ctx context.Context, id int64) (*model.Class, error) {
	var c model.Class
	err := r.QueryRow(ctx, `SELECT id, subject_id, name, code FROM classes WHERE id = $1`, id).
		Scan(&c.ID, &c.SubjectID, &c.Name, &c.Code)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get class by id: %w", err)
	}
	return &c, nil
}

// ListClasses возвращает классы, опционально только одного предмета
func (r *CatalogRepository) ListClasses(ctx context.Context, subjectID *int64) ([]*model.Class, error) {
	query := `
		SELECT id, subject_id, name, code
		FROM classes
		WHERE $1::bigint IS NULL OR subject_id = $1::bigint
		ORDER BY code
	`
	return r.queryClasses(ctx, query, subjectID)
}

// SetTutorClasses заменяет набор классов репетитора
func (r *CatalogRepository) SetTutorClasses(ctx context.Context, tutorID int64, classIDs []int64) error {
	if _, err := r.ExecAffected(ctx, `DELETE FROM tutor_classes WHERE tutor_id = $1`, tutorID); err != nil {
		return fmt.Errorf("clear tutor classes: %w", err)
	}

	query := `
		INSERT INTO tutor_classes (tutor_id, class_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`
	if _, err := r.ExecAffected(ctx, query, tutorID, classIDs); err != nil {
		if base.IsForeignKeyViolation(err) {
			return apperror.ErrClassNotFound
		}
		return fmt.Errorf("set tutor classes: %w", err)
	}
	return nil
}

// ListTutorClasses классы, которые ведёт репетитор
func (r *CatalogRepository) ListTutorClasses(ctx context.Context, tutorID int64) ([]*model.Class, error) {
	query := `
		SELECT c.id, c.subject_id, c.name, c.code
		FROM classes c
		JOIN tutor_classes tc ON tc.class_id = c.id
		WHERE tc.tutor_id = $1
		ORDER BY c.code
	`
	return r.queryClasses(ctx, query, tutorID)
}

// FindTutors ищет репетиторов по предмету и классу
func (r *CatalogRepository) FindTutors(ctx context.Context, subjectID, classID *int64) ([]int64, error) {
	query := `
		SELECT tp.user_id
		FROM tutor_profiles tp
		WHERE ($1::bigint IS NULL AND $2::bigint IS NULL)
		   OR EXISTS (
				SELECT 1
				FROM tutor_classes tc
				JOIN classes c ON c.id = tc.class_id
				WHERE tc.tutor_id = tp.user_id
				  AND ($1::bigint IS NULL OR c.subject_id = $1::bigint)
				  AND ($2::bigint IS NULL OR c.id = $2::bigint)
		   )
		ORDER BY tp.user_id
	`

	rows, err := r.Query(ctx, query, subjectID, classID)
	if err != nil {
		return nil, fmt.Errorf("find tutors: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tutor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *CatalogRepository) queryClasses(ctx context.Context, query string, args ...any) ([]*model.Class, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	var classes []*model.Class
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.SubjectID, &c.Name, &c.Code); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, &c)
	}
	return classes, rows.Err()
}
