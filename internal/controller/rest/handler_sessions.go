package rest

import (
	"net/http"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/gin-gonic/gin"
)

type bookRequest struct {
	SlotID int64 `json:"slot_id" binding:"required,gt=0"`
}

type reviewRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

func (h *Handler) BookSlot(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.Bookings.BookSlot(c.Request.Context(), identityFrom(c).UserID, req.SlotID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) ListSessions(c *gin.Context) {
	window, ok := model.ParseSlotWindow(c.Query("window"))
	if !ok {
		badRequest(c, "window must be one of: all, upcoming, completed")
		return
	}

	sessions, err := h.Bookings.ListSessions(c.Request.Context(), identityFrom(c).UserID, window)
	if err != nil {
		h.fail(c, err)
		return
	}
	if sessions == nil {
		sessions = []*model.SessionView{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) GetSession(c *gin.Context) {
	sessionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	identity := identityFrom(c)

	session, err := h.Bookings.GetSession(c.Request.Context(), identity.UserID, identity.Role, sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	sessionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Bookings.CancelBooking(c.Request.Context(), identityFrom(c).UserID, sessionID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitReview проверку оценки выполняет сервис, чтобы сохранить порядок проверок
func (h *Handler) SubmitReview(c *gin.Context) {
	sessionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	review, err := h.Reviews.SubmitReview(c.Request.Context(), identityFrom(c).UserID, sessionID, req.Rating, req.Comment)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// GetTutor публичный профиль репетитора, ?reviews=true добавляет отзывы
func (h *Handler) GetTutor(c *gin.Context) {
	tutorID, ok := paramID(c, "id")
	if !ok {
		return
	}
	withReviews := c.Query("reviews") == "true"

	details, err := h.Catalog.GetTutor(c.Request.Context(), tutorID, withReviews)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) TutorRating(c *gin.Context) {
	tutorID, ok := paramID(c, "id")
	if !ok {
		return
	}
	summary, err := h.Reviews.TutorRatingSummary(c.Request.Context(), tutorID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) TutorReviews(c *gin.Context) {
	tutorID, ok := paramID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.Reviews.ListTutorReviews(c.Request.Context(), tutorID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if reviews == nil {
		reviews = []*model.Review{}
	}
	c.JSON(http.StatusOK, reviews)
}
