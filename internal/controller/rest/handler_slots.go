package rest

import (
	"iter"
	"net/http"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/gin-gonic/gin"
)

type createSlotRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

func (h *Handler) CreateSlot(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	slot, err := h.Availability.CreateSlot(c.Request.Context(), identityFrom(c).UserID, req.StartTime, req.EndTime)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// ListOwnSlots слоты текущего репетитора, ?status= и ?window=
func (h *Handler) ListOwnSlots(c *gin.Context) {
	var status *model.SlotStatus
	if raw := c.Query("status"); raw != "" {
		s := model.SlotStatus(raw)
		if !s.Valid() {
			badRequest(c, "status must be one of: available, booked, completed, cancelled")
			return
		}
		status = &s
	}
	window, ok := model.ParseSlotWindow(c.Query("window"))
	if !ok {
		badRequest(c, "window must be one of: all, upcoming, completed")
		return
	}

	h.writeSlots(c, h.Availability.ListSlots(c.Request.Context(), identityFrom(c).UserID, status, window))
}

// ListTutorSlots свободные будущие слоты репетитора для студентов
func (h *Handler) ListTutorSlots(c *gin.Context) {
	tutorID, ok := paramID(c, "id")
	if !ok {
		return
	}
	available := model.SlotStatusAvailable
	h.writeSlots(c, h.Availability.ListSlots(c.Request.Context(), tutorID, &available, model.SlotWindowUpcoming))
}

func (h *Handler) writeSlots(c *gin.Context, seq iter.Seq2[*model.TimeSlot, error]) {
	slots := []*model.TimeSlot{}
	for slot, err := range seq {
		if err != nil {
			h.fail(c, err)
			return
		}
		slots = append(slots, slot)
	}
	c.JSON(http.StatusOK, slots)
}

func (h *Handler) DeleteSlot(c *gin.Context) {
	slotID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Availability.DeleteSlot(c.Request.Context(), identityFrom(c).UserID, slotID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CancelSlot(c *gin.Context) {
	slotID, ok := paramID(c, "id")
	if !ok {
		return
	}
	slot, err := h.Availability.CancelSlot(c.Request.Context(), identityFrom(c).UserID, slotID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// WeekSchedule PNG календарь недели репетитора, ?date=YYYY-MM-DD и ?tz=Europe/Moscow
func (h *Handler) WeekSchedule(c *gin.Context) {
	tutorID, ok := paramID(c, "id")
	if !ok {
		return
	}

	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			badRequest(c, "tz must be an IANA time zone name")
			return
		}
		loc = l
	}

	day := time.Now().In(loc)
	if raw := c.Query("date"); raw != "" {
		d, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			badRequest(c, "date must be in YYYY-MM-DD format")
			return
		}
		day = d
	}

	img, err := h.Availability.WeekSchedule(c.Request.Context(), tutorID, day)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}
