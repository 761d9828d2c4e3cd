// Package memstore реализует repository.Store в памяти процесса.
//
// Транзакции сериализуются одним мьютексом, при ошибке состояние
// восстанавливается из снимка. Используется в тестах и в режиме --in-memory.
package memstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository"
)

type data struct {
	seq          int64
	users        map[int64]*model.User
	tutors       map[int64]*model.TutorProfile
	students     map[int64]*model.StudentProfile
	slots        map[int64]*model.TimeSlot
	sessions     map[int64]*model.Session
	reviews      map[int64]*model.Review
	subjects     map[int64]*model.Subject
	classes      map[int64]*model.Class
	tutorClasses map[int64]map[int64]struct{}
	templates    map[int64]*model.AvailabilityTemplate
	occurrences  map[occurrenceKey]struct{}
	revoked      map[string]time.Time
}

// occurrenceKey занятое шаблоном время начала
type occurrenceKey struct {
	templateID int64
	start      int64
}

func newData() *data {
	return &data{
		users:        map[int64]*model.User{},
		tutors:       map[int64]*model.TutorProfile{},
		students:     map[int64]*model.StudentProfile{},
		slots:        map[int64]*model.TimeSlot{},
		sessions:     map[int64]*model.Session{},
		reviews:      map[int64]*model.Review{},
		subjects:     map[int64]*model.Subject{},
		classes:      map[int64]*model.Class{},
		tutorClasses: map[int64]map[int64]struct{}{},
		templates:    map[int64]*model.AvailabilityTemplate{},
		occurrences:  map[occurrenceKey]struct{}{},
		revoked:      map[string]time.Time{},
	}
}

// clone делает копию, достаточную для отката: записи в картах не изменяются на месте
func (d *data) clone() *data {
	c := *d
	c.users = maps.Clone(d.users)
	c.tutors = maps.Clone(d.tutors)
	c.students = maps.Clone(d.students)
	c.slots = maps.Clone(d.slots)
	c.sessions = maps.Clone(d.sessions)
	c.reviews = maps.Clone(d.reviews)
	c.subjects = maps.Clone(d.subjects)
	c.classes = maps.Clone(d.classes)
	c.templates = maps.Clone(d.templates)
	c.occurrences = maps.Clone(d.occurrences)
	c.revoked = maps.Clone(d.revoked)
	c.tutorClasses = make(map[int64]map[int64]struct{}, len(d.tutorClasses))
	for k, v := range d.tutorClasses {
		c.tutorClasses[k] = maps.Clone(v)
	}
	return &c
}

func (d *data) nextID() int64 {
	d.seq++
	return d.seq
}

type Store struct {
	mu   *sync.Mutex
	d    *data
	inTx bool
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New создаёт пустое хранилище
func New() *Store {
	return &Store{mu: &sync.Mutex{}, d: newData(), now: time.Now}
}

// lock захватывает мьютекс вне транзакции; внутри InTx он уже захвачен
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	if err := fn(&Store{mu: s.mu, d: s.d, inTx: true, now: s.now}); err != nil {
		*s.d = *snapshot
		return err
	}
	return nil
}

func (s *Store) Users() repository.UserStore             { return users{s} }
func (s *Store) Profiles() repository.ProfileStore       { return profiles{s} }
func (s *Store) Slots() repository.SlotStore             { return slots{s} }
func (s *Store) Sessions() repository.SessionStore       { return sessions{s} }
func (s *Store) Reviews() repository.ReviewStore         { return reviews{s} }
func (s *Store) Catalog() repository.CatalogStore        { return catalog{s} }
func (s *Store) Templates() repository.TemplateStore     { return templates{s} }
func (s *Store) Revocations() repository.RevocationStore { return revocations{s} }

// Ping всегда успешен
func (s *Store) Ping(context.Context) error { return nil }

func ptr[T any](v T) *T { return &v }
