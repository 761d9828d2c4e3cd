package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
)

type users struct{ s *Store }

func (r users) Create(_ context.Context, user *model.User) error {
	defer r.s.lock()()

	for _, u := range r.s.d.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return apperror.ErrUserExists
		}
	}

	user.ID = r.s.d.nextID()
	user.CreatedAt = r.s.now()
	r.s.d.users[user.ID] = ptr(*user)
	return nil
}

func (r users) GetByID(_ context.Context, id int64) (*model.User, error) {
	defer r.s.lock()()

	u, ok := r.s.d.users[id]
	if !ok {
		return nil, nil
	}
	return ptr(*u), nil
}

func (r users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	defer r.s.lock()()

	for _, u := range r.s.d.users {
		if strings.EqualFold(u.Email, email) {
			return ptr(*u), nil
		}
	}
	return nil, nil
}

func (r users) Update(_ context.Context, user *model.User) error {
	defer r.s.lock()()

	u, ok := r.s.d.users[user.ID]
	if !ok {
		return apperror.ErrUserNotFound
	}
	updated := *u
	updated.FirstName = user.FirstName
	updated.LastName = user.LastName
	updated.TelegramChatID = user.TelegramChatID
	r.s.d.users[user.ID] = &updated
	return nil
}

func (r users) UpdateAccount(_ context.Context, user *model.User) error {
	defer r.s.lock()()

	u, ok := r.s.d.users[user.ID]
	if !ok {
		return apperror.ErrUserNotFound
	}
	for id, other := range r.s.d.users {
		if id != user.ID && strings.EqualFold(other.Email, user.Email) {
			return apperror.ErrUserExists
		}
	}

	updated := *u
	updated.Email = user.Email
	updated.FirstName = user.FirstName
	updated.LastName = user.LastName
	updated.Role = user.Role
	r.s.d.users[user.ID] = &updated
	return nil
}

func (r users) List(_ context.Context) ([]*model.User, error) {
	defer r.s.lock()()

	out := make([]*model.User, 0, len(r.s.d.users))
	for _, u := range r.s.d.users {
		out = append(out, ptr(*u))
	}
	slices.SortFunc(out, func(a, b *model.User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

type profiles struct{ s *Store }

func (r profiles) CreateTutor(_ context.Context, p *model.TutorProfile) error {
	defer r.s.lock()()

	if _, ok := r.s.d.users[p.UserID]; !ok {
		return apperror.ErrUserNotFound
	}
	if _, ok := r.s.d.tutors[p.UserID]; ok {
		return apperror.ErrDuplicate
	}
	r.s.d.tutors[p.UserID] = ptr(*p)
	return nil
}

func (r profiles) GetTutor(_ context.Context, userID int64) (*model.TutorProfile, error) {
	defer r.s.lock()()

	p, ok := r.s.d.tutors[userID]
	if !ok {
		return nil, nil
	}
	return ptr(*p), nil
}

func (r profiles) UpdateTutor(_ context.Context, p *model.TutorProfile) error {
	defer r.s.lock()()

	if _, ok := r.s.d.tutors[p.UserID]; !ok {
		return apperror.ErrTutorNotFound
	}
	r.s.d.tutors[p.UserID] = ptr(*p)
	return nil
}

func (r profiles) CreateStudent(_ context.Context, p *model.StudentProfile) error {
	defer r.s.lock()()

	if _, ok := r.s.d.users[p.UserID]; !ok {
		return apperror.ErrUserNotFound
	}
	if _, ok := r.s.d.students[p.UserID]; ok {
		return apperror.ErrDuplicate
	}
	r.s.d.students[p.UserID] = ptr(*p)
	return nil
}

func (r profiles) GetStudent(_ context.Context, userID int64) (*model.StudentProfile, error) {
	defer r.s.lock()()

	p, ok := r.s.d.students[userID]
	if !ok {
		return nil, nil
	}
	return ptr(*p), nil
}

func (r profiles) UpdateStudent(_ context.Context, p *model.StudentProfile) error {
	defer r.s.lock()()

	if _, ok := r.s.d.students[p.UserID]; !ok {
		return apperror.ErrUserNotFound
	}
	r.s.d.students[p.UserID] = ptr(*p)
	return nil
}

func (r profiles) DeleteTutor(_ context.Context, userID int64) error {
	defer r.s.lock()()

	if _, ok := r.s.d.tutors[userID]; !ok {
		return apperror.ErrTutorNotFound
	}
	delete(r.s.d.tutors, userID)
	delete(r.s.d.tutorClasses, userID)
	for id, slot := range r.s.d.slots {
		if slot.TutorID == userID {
			delete(r.s.d.slots, id)
		}
	}
	for id, t := range r.s.d.templates {
		if t.TutorID == userID {
			delete(r.s.d.templates, id)
		}
	}
	for key := range r.s.d.occurrences {
		if _, ok := r.s.d.templates[key.templateID]; !ok {
			delete(r.s.d.occurrences, key)
		}
	}
	return nil
}

func (r profiles) DeleteStudent(_ context.Context, userID int64) error {
	defer r.s.lock()()

	if _, ok := r.s.d.students[userID]; !ok {
		return apperror.ErrUserNotFound
	}
	delete(r.s.d.students, userID)
	return nil
}
