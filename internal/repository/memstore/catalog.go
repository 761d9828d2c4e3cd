package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
)

type catalog struct{ s *Store }

func (r catalog) CreateSubject(_ context.Context, subject *model.Subject) error {
	defer r.s.lock()()

	for _, existing := range r.s.d.subjects {
		if existing.Name == subject.Name {
			return apperror.ErrDuplicate
		}
	}
	subject.ID = r.s.d.nextID()
	r.s.d.subjects[subject.ID] = ptr(*subject)
	return nil
}

func (r catalog) GetSubject(_ context.Context, id int64) (*model.Subject, error) {
	defer r.s.lock()()

	s, ok := r.s.d.subjects[id]
	if !ok {
		return nil, nil
	}
	return ptr(*s), nil
}

func (r catalog) ListSubjects(_ context.Context) ([]*model.Subject, error) {
	defer r.s.lock()()

	out := make([]*model.Subject, 0, len(r.s.d.subjects))
	for _, s := range r.s.d.subjects {
		out = append(out, ptr(*s))
	}
	slices.SortFunc(out, func(a, b *model.Subject) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r catalog) CreateClass(_ context.Context, class *model.Class) error {
	defer r.s.lock()()

	if _, ok := r.s.d.subjects[class.SubjectID]; !ok {
		return apperror.ErrSubjectNotFound
	}
	for _, existing := range r.s.d.classes {
		if existing.Code == class.Code {
			return apperror.ErrDuplicate
		}
	}
	class.ID = r.s.d.nextID()
	r.s.d.classes[class.ID] = ptr(*class)
	return nil
}

func (r catalog) GetClass(_ context.Context, id int64) (*model.Class, error) {
	defer r.s.lock()()

	c, ok := r.s.d.classes[id]
	if !ok {
		return nil, nil
	}
	return ptr(*c), nil
}

func (r catalog) ListClasses(_ context.Context, subjectID *int64) ([]*model.Class, error) {
	defer r.s.lock()()

	var out []*model.Class
	for _, c := range r.s.d.classes {
		if subjectID == nil || c.SubjectID == *subjectID {
			out = append(out, ptr(*c))
		}
	}
	sortClasses(out)
	return out, nil
}

func (r catalog) SetTutorClasses(_ context.Context, tutorID int64, classIDs []int64) error {
	defer r.s.lock()()

	set := make(map[int64]struct{}, len(classIDs))
	for _, id := range classIDs {
		if _, ok := r.s.d.classes[id]; !ok {
			return apperror.ErrClassNotFound
		}
		set[id] = struct{}{}
	}
	r.s.d.tutorClasses[tutorID] = set
	return nil
}

func (r catalog) ListTutorClasses(_ context.Context, tutorID int64) ([]*model.Class, error) {
	defer r.s.lock()()

	var out []*model.Class
	for id := range r.s.d.tutorClasses[tutorID] {
		if c, ok := r.s.d.classes[id]; ok {
			out = append(out, ptr(*c))
		}
	}
	sortClasses(out)
	return out, nil
}

func (r catalog) FindTutors(_ context.Context, subjectID, classID *int64) ([]int64, error) {
	defer r.s.lock()()

	var ids []int64
	for tutorID := range r.s.d.tutors {
		if subjectID == nil && classID == nil {
			ids = append(ids, tutorID)
			continue
		}
		for id := range r.s.d.tutorClasses[tutorID] {
			c, ok := r.s.d.classes[id]
			if !ok {
				continue
			}
			if (subjectID == nil || c.SubjectID == *subjectID) && (classID == nil || c.ID == *classID) {
				ids = append(ids, tutorID)
				break
			}
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func sortClasses(classes []*model.Class) {
	slices.SortFunc(classes, func(a, b *model.Class) int { return cmp.Compare(a.Code, b.Code) })
}
