package model

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary агрегированная оценка репетитора
type RatingSummary struct {
	TutorID   int64          `json:"tutor_id"`
	Average   float64        `json:"average"`
	Count     int            `json:"count"`
	Histogram map[int]int `json:"histogram"` // оценка -> число отзывов, ключи от MinRating до MaxRating
}

// NewRatingSummary пустая сводка с нулями по всем оценкам
func NewRatingSummary(tutorID int64) *RatingSummary {
	s := &RatingSummary{TutorID: tutorID}
	s.reset()
	return s
}

func (s *RatingSummary) reset() {
	s.Histogram = make(map[int]int, MaxRating)
	for r := MinRating; r <= MaxRating; r++ {
		s.Histogram[r] = 0
	}
}

// Add учитывает одну оценку
func (s *RatingSummary) Add(rating int) {
	if rating < MinRating || rating > MaxRating {
		return
	}
	if s.Histogram == nil {
		s.reset()
	}
	s.Histogram[rating]++
	s.Count++
	total := 0
	for r, n := range s.Histogram {
		total += r * n
	}
	s.Average = float64(total) / float64(s.Count)
}
