package memstore

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/google/uuid"
)

type templates struct{ s *Store }

func (r templates) Create(_ context.Context, t *model.AvailabilityTemplate) error {
	defer r.s.lock()()

	t.ID = r.s.d.nextID()
	t.CreatedAt = r.s.now()
	r.s.d.templates[t.ID] = ptr(*t)
	return nil
}

func (r templates) ListByTutor(_ context.Context, tutorID int64) ([]*model.AvailabilityTemplate, error) {
	defer r.s.lock()()
	return r.collect(func(t *model.AvailabilityTemplate) bool { return t.TutorID == tutorID }), nil
}

func (r templates) ListActive(_ context.Context) ([]*model.AvailabilityTemplate, error) {
	defer r.s.lock()()
	return r.collect(func(t *model.AvailabilityTemplate) bool { return t.IsActive }), nil
}

func (r templates) SetGroupActive(_ context.Context, tutorID int64, groupID uuid.UUID, active bool) (int64, error) {
	defer r.s.lock()()

	var n int64
	for id, t := range r.s.d.templates {
		if t.TutorID == tutorID && t.GroupID == groupID {
			updated := *t
			updated.IsActive = active
			r.s.d.templates[id] = &updated
			n++
		}
	}
	return n, nil
}

func (r templates) DeleteGroup(_ context.Context, tutorID int64, groupID uuid.UUID) (int64, error) {
	defer r.s.lock()()

	var n int64
	for id, t := range r.s.d.templates {
		if t.TutorID == tutorID && t.GroupID == groupID {
			delete(r.s.d.templates, id)
			n++
		}
	}
	for key := range r.s.d.occurrences {
		if _, ok := r.s.d.templates[key.templateID]; !ok {
			delete(r.s.d.occurrences, key)
		}
	}
	return n, nil
}

func (r templates) ClaimOccurrence(_ context.Context, templateID int64, start time.Time) (bool, error) {
	defer r.s.lock()()

	key := occurrenceKey{templateID: templateID, start: start.UnixNano()}
	if _, ok := r.s.d.occurrences[key]; ok {
		return false, nil
	}
	r.s.d.occurrences[key] = struct{}{}
	return true, nil
}

func (r templates) collect(keep func(*model.AvailabilityTemplate) bool) []*model.AvailabilityTemplate {
	var out []*model.AvailabilityTemplate
	for _, t := range r.s.d.templates {
		if keep(t) {
			out = append(out, ptr(*t))
		}
	}
	slices.SortFunc(out, func(a, b *model.AvailabilityTemplate) int {
		return cmp.Or(
			cmp.Compare(a.TutorID, b.TutorID),
			cmp.Compare(a.Weekday, b.Weekday),
			cmp.Compare(a.StartHour, b.StartHour),
			cmp.Compare(a.StartMinute, b.StartMinute),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}

type revocations struct{ s *Store }

func (r revocations) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	defer r.s.lock()()

	if _, ok := r.s.d.revoked[jti]; !ok {
		r.s.d.revoked[jti] = expiresAt
	}
	return nil
}

func (r revocations) IsRevoked(_ context.Context, jti string, now time.Time) (bool, error) {
	defer r.s.lock()()

	expiresAt, ok := r.s.d.revoked[jti]
	return ok && expiresAt.After(now), nil
}

func (r revocations) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	defer r.s.lock()()

	var n int64
	for jti, expiresAt := range r.s.d.revoked {
		if !expiresAt.After(now) {
			delete(r.s.d.revoked, jti)
			n++
		}
	}
	return n, nil
}
