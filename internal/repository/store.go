package repository

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Все Get* методы возвращают (nil, nil), если запись не найдена.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	// UpdateAccount меняет email, имя и роль; профили ролей не трогает
	UpdateAccount(ctx context.Context, user *model.User) error
	List(ctx context.Context) ([]*model.User, error)
}

type ProfileStore interface {
	CreateTutor(ctx context.Context, p *model.TutorProfile) error
	GetTutor(ctx context.Context, userID int64) (*model.TutorProfile, error)
	UpdateTutor(ctx context.Context, p *model.TutorProfile) error
	CreateStudent(ctx context.Context, p *model.StudentProfile) error
	GetStudent(ctx context.Context, userID int64) (*model.StudentProfile, error)
	UpdateStudent(ctx context.Context, p *model.StudentProfile) error
	// DeleteTutor удаляет профиль вместе со слотами, шаблонами и классами репетитора
	DeleteTutor(ctx context.Context, userID int64) error
	DeleteStudent(ctx context.Context, userID int64) error
}

type SlotStore interface {
	Create(ctx context.Context, slot *model.TimeSlot) error
	GetByID(ctx context.Context, id int64) (*model.TimeSlot, error)
	// HasOverlap ищет неотменённый слот репетитора, пересекающийся с [start, end)
	HasOverlap(ctx context.Context, tutorID int64, start, end time.Time) (bool, error)
	// ExistsAt есть ли у репетитора слот с таким началом в любом статусе
	ExistsAt(ctx context.Context, tutorID int64, start time.Time) (bool, error)
	// List ленивая выборка, запрос выполняется при каждом обходе
	List(ctx context.Context, tutorID int64, filter model.SlotFilter) iter.Seq2[*model.TimeSlot, error]
	// Book атомарно переводит available -> booked, если слот не начался к now
	Book(ctx context.Context, slotID, studentID int64, now time.Time) (bool, error)
	// Transition переводит слот из from в to, студент сбрасывается для статусов без студента
	Transition(ctx context.Context, slotID int64, from, to model.SlotStatus) (bool, error)
	// DeleteAvailable удаляет слот только в статусе available
	DeleteAvailable(ctx context.Context, slotID int64) (bool, error)
	// CompleteElapsed переводит все booked слоты с end <= now в completed
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)
}

type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id int64) (*model.Session, error)
	GetBySlotID(ctx context.Context, slotID int64) (*model.Session, error)
	Delete(ctx context.Context, id int64) error
	ListForUser(ctx context.Context, userID int64, filter model.SlotFilter) ([]*model.SessionView, error)
}

type ReviewStore interface {
	Create(ctx context.Context, review *model.Review) error
	GetBySessionID(ctx context.Context, sessionID int64) (*model.Review, error)
	ListForTutor(ctx context.Context, tutorID int64) ([]*model.Review, error)
	Summary(ctx context.Context, tutorID int64) (*model.RatingSummary, error)
}

type CatalogStore interface {
	CreateSubject(ctx context.Context, subject *model.Subject) error
	GetSubject(ctx context.Context, id int64) (*model.Subject, error)
	ListSubjects(ctx context.Context) ([]*model.Subject, error)
	CreateClass(ctx context.Context, class *model.Class) error
	GetClass(ctx context.Context, id int64) (*model.Class, error)
	ListClasses(ctx context.Context, subjectID *int64) ([]*model.Class, error)
	SetTutorClasses(ctx context.Context, tutorID int64, classIDs []int64) error
	ListTutorClasses(ctx context.Context, tutorID int64) ([]*model.Class, error)
	// FindTutors возвращает id репетиторов, ведущих указанный предмет/класс (nil означает любой)
	FindTutors(ctx context.Context, subjectID, classID *int64) ([]int64, error)
}

type TemplateStore interface {
	Create(ctx context.Context, t *model.AvailabilityTemplate) error
	ListByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilityTemplate, error)
	ListActive(ctx context.Context) ([]*model.AvailabilityTemplate, error)
	SetGroupActive(ctx context.Context, tutorID int64, groupID uuid.UUID, active bool) (int64, error)
	DeleteGroup(ctx context.Context, tutorID int64, groupID uuid.UUID) (int64, error)
	// ClaimOccurrence отмечает начало как сгенерированное; false, если оно уже было
	ClaimOccurrence(ctx context.Context, templateID int64, start time.Time) (bool, error)
}

type RevocationStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string, now time.Time) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Store набор репозиториев, работающих на одном соединении
type Store interface {
	Users() UserStore
	Profiles() ProfileStore
	Slots() SlotStore
	Sessions() SessionStore
	Reviews() ReviewStore
	Catalog() CatalogStore
	Templates() TemplateStore
	Revocations() RevocationStore
	// InTx выполняет fn в транзакции; ошибка fn откатывает все изменения
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// PgStore реализация Store на PostgreSQL
type PgStore struct {
	pool *pgxpool.Pool
	db   base.DBTX
	inTx bool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, db: pool}
}

func (s *PgStore) Users() UserStore             { return NewUserRepository(s.db) }
func (s *PgStore) Profiles() ProfileStore       { return NewProfileRepository(s.db) }
func (s *PgStore) Slots() SlotStore             { return NewSlotRepository(s.db) }
func (s *PgStore) Sessions() SessionStore       { return NewSessionRepository(s.db) }
func (s *PgStore) Reviews() ReviewStore         { return NewReviewRepository(s.db) }
func (s *PgStore) Catalog() CatalogStore        { return NewCatalogRepository(s.db) }
func (s *PgStore) Templates() TemplateStore     { return NewTemplateRepository(s.db) }
func (s *PgStore) Revocations() RevocationStore { return NewRevocationRepository(s.db) }

// InTx начинает транзакцию; вложенный вызов переиспользует текущую
func (s *PgStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PgStore{pool: s.pool, db: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping проверяет доступность базы
func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
