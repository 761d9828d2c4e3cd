package rest

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username   string     `json:"username" binding:"required"`
	Email      string     `json:"email" binding:"required,email"`
	Password   string     `json:"password" binding:"required,min=8"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Role       model.Role `json:"role" binding:"required,role"`
	HourlyRate int        `json:"hourly_rate" binding:"gte=0"`
	Bio        string     `json:"bio"`
	Major      string     `json:"major"`
	Year       int        `json:"year" binding:"gte=0"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	UserID    int64      `json:"user_id"`
	Role      model.Role `json:"role"`
}

type updateProfileRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	HourlyRate *int    `json:"hourly_rate" binding:"omitempty,gte=0"`
	Bio        *string `json:"bio"`
	Major      *string `json:"major"`
	Year       *int    `json:"year" binding:"omitempty,gte=0"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	profile, err := h.Users.Register(c.Request.Context(), service.RegisterInput{
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
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	token, identity, err := h.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: identity.ExpiresAt,
		UserID:    identity.UserID,
		Role:      identity.Role,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Users.Logout(c.Request.Context(), identityFrom(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.Users.GetProfile(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	profile, err := h.Users.UpdateProfile(c.Request.Context(), identityFrom(c).UserID, service.UpdateProfileInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		HourlyRate: req.HourlyRate,
		Bio:        req.Bio,
		Major:      req.Major,
		Year:       req.Year,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// TelegramLinkCode код для привязки чата командой /start <code>
func (h *Handler) TelegramLinkCode(c *gin.Context) {
	code, err := h.Users.IssueTelegramLinkCode(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "command": "/start " + code})
}
