package rest

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type subjectRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type classRequest struct {
	SubjectID int64  `json:"subject_id" binding:"required,gt=0"`
	Name      string `json:"name" binding:"required,max=200"`
	Code      string `json:"code" binding:"required,max=20"`
}

type assignClassesRequest struct {
	ClassIDs []int64 `json:"class_ids" binding:"required,dive,gt=0"`
}

type templateGroupRequest struct {
	Weekdays        []int    `json:"weekdays" binding:"required,min=1,dive,min=0,max=6"`
	Times           []string `json:"times" binding:"required,min=1,dive,timeformat"`
	DurationMinutes int      `json:"duration_minutes" binding:"required,gt=0,max=1440"`
}

func (h *Handler) ListSubjects(c *gin.Context) {
	subjects, err := h.Catalog.ListSubjects(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, subjects)
}

func (h *Handler) CreateSubject(c *gin.Context) {
	var req subjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	subject, err := h.Catalog.CreateSubject(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, subject)
}

func (h *Handler) ListClasses(c *gin.Context) {
	subjectID, ok := queryID(c, "subject")
	if !ok {
		return
	}
	classes, err := h.Catalog.ListClasses(c.Request.Context(), subjectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if classes == nil {
		classes = []*model.Class{}
	}
	c.JSON(http.StatusOK, classes)
}

func (h *Handler) CreateClass(c *gin.Context) {
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	class, err := h.Catalog.CreateClass(c.Request.Context(), req.SubjectID, req.Name, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, class)
}

func (h *Handler) AssignClasses(c *gin.Context) {
	var req assignClassesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	classes, err := h.Catalog.AssignClasses(c.Request.Context(), identityFrom(c).UserID, req.ClassIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	if classes == nil {
		classes = []*model.Class{}
	}
	c.JSON(http.StatusOK, classes)
}

func (h *Handler) ListOwnClasses(c *gin.Context) {
	classes, err := h.Catalog.ListTutorClasses(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if classes == nil {
		classes = []*model.Class{}
	}
	c.JSON(http.StatusOK, classes)
}

// FindTutors ?subject=&class=
func (h *Handler) FindTutors(c *gin.Context) {
	subjectID, ok := queryID(c, "subject")
	if !ok {
		return
	}
	classID, ok := queryID(c, "class")
	if !ok {
		return
	}
	cards, err := h.Catalog.FindTutors(c.Request.Context(), subjectID, classID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *Handler) CreateTemplateGroup(c *gin.Context) {
	var req templateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	in := service.TemplateGroupInput{Weekdays: req.Weekdays, DurationMinutes: req.DurationMinutes}
	for _, raw := range req.Times {
		// формат уже проверен правилом timeformat
		t, _ := time.Parse(clockLayout, raw)
		in.Times = append(in.Times, service.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()})
	}

	groupID, templates, err := h.Templates.CreateGroup(c.Request.Context(), identityFrom(c).UserID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group_id": groupID, "templates": templates})
}

func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.Templates.ListTemplates(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if templates == nil {
		templates = []*model.AvailabilityTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

func (h *Handler) groupParam(c *gin.Context) (uuid.UUID, bool) {
	groupID, err := uuid.Parse(c.Param("group"))
	if err != nil {
		badRequest(c, "group must be a UUID")
		return uuid.Nil, false
	}
	return groupID, true
}

func (h *Handler) DeactivateTemplateGroup(c *gin.Context) {
	groupID, ok := h.groupParam(c)
	if !ok {
		return
	}
	if err := h.Templates.DeactivateGroup(c.Request.Context(), identityFrom(c).UserID, groupID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteTemplateGroup(c *gin.Context) {
	groupID, ok := h.groupParam(c)
	if !ok {
		return
	}
	if err := h.Templates.DeleteGroup(c.Request.Context(), identityFrom(c).UserID, groupID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
