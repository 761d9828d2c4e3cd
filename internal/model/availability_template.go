package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityTemplate шаблон еженедельной доступности репетитора
type AvailabilityTemplate struct {
	ID              int64     `json:"id"`
	GroupID         uuid.UUID `json:"group_id"` // идентификатор группы связанных шаблонов
	TutorID         int64     `json:"tutor_id"`
	Weekday         int       `json:"weekday"`          // 0 = Sunday, 6 = Saturday
	StartHour       int       `json:"start_hour"`       // 0-23
	StartMinute     int       `json:"start_minute"`     // 0-59
	DurationMinutes int       `json:"duration_minutes"` // длительность в минутах
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// NextOccurrences возвращает начала занятий по шаблону в интервале [from, to)
func (t *AvailabilityTemplate) NextOccurrences(from, to time.Time) []time.Time {
	var out []time.Time
	loc := from.Location()
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		if int(day.Weekday()) != t.Weekday {
			continue
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), t.StartHour, t.StartMinute, 0, 0, loc)
		if start.Before(from) || !start.Before(to) {
			continue
		}
		out = append(out, start)
	}
	return out
}

// Duration длительность занятия
func (t *AvailabilityTemplate) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}
