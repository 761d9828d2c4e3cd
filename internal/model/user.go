package model

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// ParseRole разбирает роль из закрытого набора
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTutor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Role           Role      `json:"role"`
	PasswordHash   string    `json:"-"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"` // куда слать уведомления
	CreatedAt      time.Time `json:"created_at"`
}

// FullName имя для отображения
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type TutorProfile struct {
	UserID     int64  `json:"user_id"`
	HourlyRate int    `json:"hourly_rate"` // в центах
	Bio        string `json:"bio"`
}

type StudentProfile struct {
	UserID int64  `json:"user_id"`
	Major  string `json:"major"`
	Year   int    `json:"year"`
}

// Profile пользователь вместе с профилем своей роли
type Profile struct {
	User    *User           `json:"user"`
	Tutor   *TutorProfile   `json:"tutor,omitempty"`
	Student *StudentProfile `json:"student,omitempty"`
}

// TutorDetails публичная страница репетитора
type TutorDetails struct {
	TutorCard
	Classes []*Class  `json:"classes"`
	Reviews []*Review `json:"reviews,omitempty"`
}

// TutorCard карточка репетитора в поиске
type TutorCard struct {
	TutorID       int64       `json:"tutor_id"`
	Name          string      `json:"name"`
	HourlyRate    int         `json:"hourly_rate"`
	Bio           string      `json:"bio"`
	AverageRating float64     `json:"average_rating"`
	ReviewCount   int         `json:"review_count"`
	UpcomingSlots []time.Time `json:"upcoming_slots"`
}
