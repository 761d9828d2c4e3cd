package model

import "time"

type Session struct {
	ID        int64     `json:"id"`
	SlotID    int64     `json:"slot_id"`
	StudentID int64     `json:"student_id"`
	TutorID   int64     `json:"tutor_id"`
	CreatedAt time.Time `json:"created_at"`

	// Дополнительные поля для удобства (не из БД)
	Slot *TimeSlot `json:"slot,omitempty"`
}

// SessionView сессия вместе со слотом для списков
type SessionView struct {
	Session
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    SlotStatus `json:"status"`
}
