package model

import "time"

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusCompleted SlotStatus = "completed"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// slotTransitions единственная таблица допустимых переходов статуса слота
var slotTransitions = map[SlotStatus][]SlotStatus{
	SlotStatusAvailable: {SlotStatusBooked, SlotStatusCancelled},
	SlotStatusBooked:    {SlotStatusAvailable, SlotStatusCompleted, SlotStatusCancelled},
}

// Valid проверяет что статус входит в закрытый набор
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusAvailable, SlotStatusBooked, SlotStatusCompleted, SlotStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo сообщает разрешён ли переход s -> next
func (s SlotStatus) CanTransitionTo(next SlotStatus) bool {
	for _, allowed := range slotTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal возвращает true для completed и cancelled
func (s SlotStatus) Terminal() bool {
	return len(slotTransitions[s]) == 0
}

// HasStudent сообщает должен ли слот в этом статусе иметь студента
func (s SlotStatus) HasStudent() bool {
	return s == SlotStatusBooked || s == SlotStatusCompleted
}

type TimeSlot struct {
	ID        int64      `json:"id"`
	TutorID   int64      `json:"tutor_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    SlotStatus `json:"status"`
	StudentID *int64     `json:"student_id"` // nil пока слот не забронирован
	CreatedAt time.Time  `json:"created_at"`
}

// Overlaps проверяет пересечение полуинтервалов [start, end)
func (s *TimeSlot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}

// Elapsed сообщает что слот закончился к моменту now
func (s *TimeSlot) Elapsed(now time.Time) bool {
	return !s.EndTime.After(now)
}

// SlotWindow фильтр по времени для списка слотов
type SlotWindow string

const (
	SlotWindowAll       SlotWindow = "all"
	SlotWindowUpcoming  SlotWindow = "upcoming"
	SlotWindowCompleted SlotWindow = "completed"
)

// ParseSlotWindow разбирает окно, пустая строка означает all
func ParseSlotWindow(s string) (SlotWindow, bool) {
	switch SlotWindow(s) {
	case "", SlotWindowAll:
		return SlotWindowAll, true
	case SlotWindowUpcoming:
		return SlotWindowUpcoming, true
	case SlotWindowCompleted:
		return SlotWindowCompleted, true
	}
	return "", false
}

// SlotFilter параметры выборки слотов репетитора
type SlotFilter struct {
	Status *SlotStatus
	Window SlotWindow
	Now    time.Time
	Limit  int
}

// Match применяет фильтр к одному слоту (используется in-memory хранилищем)
func (f SlotFilter) Match(s *TimeSlot) bool {
	if f.Status != nil && s.Status != *f.Status {
		return false
	}
	switch f.Window {
	case SlotWindowUpcoming:
		return s.StartTime.After(f.Now)
	case SlotWindowCompleted:
		return s.EndTime.Before(f.Now)
	}
	return true
}
