package memstore

import (
	"cmp"
	"context"
	"slices"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
)

type sessions struct{ s *Store }

func (r sessions) Create(_ context.Context, session *model.Session) error {
	defer r.s.lock()()

	if _, ok := r.s.d.slots[session.SlotID]; !ok {
		return apperror.ErrSlotNotFound
	}
	for _, existing := range r.s.d.sessions {
		if existing.SlotID == session.SlotID {
			return apperror.ErrSlotNotAvailable
		}
	}

	session.ID = r.s.d.nextID()
	session.CreatedAt = r.s.now()
	stored := *session
	stored.Slot = nil
	r.s.d.sessions[session.ID] = &stored
	return nil
}

func (r sessions) GetByID(_ context.Context, id int64) (*model.Session, error) {
	defer r.s.lock()()

	s, ok := r.s.d.sessions[id]
	if !ok {
		return nil, nil
	}
	return ptr(*s), nil
}

func (r sessions) GetBySlotID(_ context.Context, slotID int64) (*model.Session, error) {
	defer r.s.lock()()

	for _, s := range r.s.d.sessions {
		if s.SlotID == slotID {
			return ptr(*s), nil
		}
	}
	return nil, nil
}

func (r sessions) Delete(_ context.Context, id int64) error {
	defer r.s.lock()()

	if _, ok := r.s.d.sessions[id]; !ok {
		return apperror.ErrSessionNotFound
	}
	delete(r.s.d.sessions, id)
	for rid, rv := range r.s.d.reviews {
		if rv.SessionID == id {
			delete(r.s.d.reviews, rid)
		}
	}
	return nil
}

func (r sessions) ListForUser(_ context.Context, userID int64, filter model.SlotFilter) ([]*model.SessionView, error) {
	defer r.s.lock()()

	var out []*model.SessionView
	for _, s := range r.s.d.sessions {
		if s.StudentID != userID && s.TutorID != userID {
			continue
		}
		slot, ok := r.s.d.slots[s.SlotID]
		if !ok || !filter.Match(slot) {
			continue
		}
		out = append(out, &model.SessionView{
			Session:   *s,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Status:    slot.Status,
		})
	}
	slices.SortFunc(out, func(a, b *model.SessionView) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

type reviews struct{ s *Store }

func (r reviews) Create(_ context.Context, review *model.Review) error {
	defer r.s.lock()()

	if review.Rating < model.MinRating || review.Rating > model.MaxRating {
		return apperror.ErrInvalidRating
	}
	if _, ok := r.s.d.sessions[review.SessionID]; !ok {
		return apperror.ErrSessionNotFound
	}
	for _, existing := range r.s.d.reviews {
		if existing.SessionID == review.SessionID {
			return apperror.ErrAlreadyReviewed
		}
	}

	review.ID = r.s.d.nextID()
	review.CreatedAt = r.s.now()
	r.s.d.reviews[review.ID] = ptr(*review)
	return nil
}

func (r reviews) GetBySessionID(_ context.Context, sessionID int64) (*model.Review, error) {
	defer r.s.lock()()

	for _, rv := range r.s.d.reviews {
		if rv.SessionID == sessionID {
			return ptr(*rv), nil
		}
	}
	return nil, nil
}

func (r reviews) ListForTutor(_ context.Context, tutorID int64) ([]*model.Review, error) {
	defer r.s.lock()()

	out := r.forTutor(tutorID)
	slices.SortFunc(out, func(a, b *model.Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r reviews) Summary(_ context.Context, tutorID int64) (*model.RatingSummary, error) {
	defer r.s.lock()()

	summary := model.NewRatingSummary(tutorID)
	for _, rv := range r.forTutor(tutorID) {
		summary.Add(rv.Rating)
	}
	return summary, nil
}

func (r reviews) forTutor(tutorID int64) []*model.Review {
	var out []*model.Review
	for _, rv := range r.s.d.reviews {
		if s, ok := r.s.d.sessions[rv.SessionID]; ok && s.TutorID == tutorID {
			out = append(out, ptr(*rv))
		}
	}
	return out
}
