package rest

import (
	"net/http"

	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/gin-gonic/gin"
)

type adminCreateUserRequest struct {
	Username   string  `json:"username" binding:"required"`
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required,min=8"`
	FirstName  string  `json:"first_name" binding:"required"`
	LastName   string  `json:"last_name" binding:"required"`
	Role       string  `json:"role" binding:"required,oneof=student tutor admin"`
	HourlyRate int     `json:"hourly_rate" binding:"gte=0"`
	Bio        string  `json:"bio"`
	Major      string  `json:"major"`
	Year       int     `json:"year" binding:"gte=0"`
	ClassIDs   []int64 `json:"class_ids"`
}

type adminUpdateUserRequest struct {
	Email      *string  `json:"email" binding:"omitempty,email"`
	FirstName  *string  `json:"first_name"`
	LastName   *string  `json:"last_name"`
	Role       *string  `json:"role" binding:"omitempty,oneof=student tutor admin"`
	HourlyRate *int     `json:"hourly_rate" binding:"omitempty,gte=0"`
	Bio        *string  `json:"bio"`
	Major      *string  `json:"major"`
	Year       *int     `json:"year" binding:"omitempty,gte=0"`
	ClassIDs   *[]int64 `json:"class_ids"`
}

func (h *Handler) AdminCreateUser(c *gin.Context) {
	var req adminCreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	profile, err := h.Users.AdminCreateUser(c.Request.Context(), service.AdminCreateUserInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		HourlyRate: req.HourlyRate,
		Bio:        req.Bio,
		Major:      req.Major,
		Year:       req.Year,
		ClassIDs:   req.ClassIDs,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (h *Handler) AdminUpdateUser(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req adminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	profile, err := h.Users.AdminUpdateUser(c.Request.Context(), userID, service.AdminUpdateUserInput{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		HourlyRate: req.HourlyRate,
		Bio:        req.Bio,
		Major:      req.Major,
		Year:       req.Year,
		ClassIDs:   req.ClassIDs,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Users.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) CompleteSession(c *gin.Context) {
	sessionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Bookings.CompleteSession(c.Request.Context(), sessionID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sweep вручную запускает завершение прошедших сессий
func (h *Handler) Sweep(c *gin.Context) {
	n, err := h.Bookings.CompleteElapsed(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": n})
}

// GenerateSlots вручную запускает генерацию слотов по шаблонам
func (h *Handler) GenerateSlots(c *gin.Context) {
	n, err := h.Templates.GenerateSlots(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": n})
}
