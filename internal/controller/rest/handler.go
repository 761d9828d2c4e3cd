package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger проверка доступности хранилища для /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services сервисы, которые обслуживает HTTP API
type Services struct {
	Users        *service.UserService
	Availability *service.AvailabilityService
	Bookings     *service.BookingService
	Reviews      *service.ReviewService
	Catalog      *service.CatalogService
	Templates    *service.TemplateService
}

// Handler общие зависимости обработчиков
type Handler struct {
	Services
	store  Pinger
	logger *zap.Logger
}

func NewHandler(services Services, store Pinger, logger *zap.Logger) *Handler {
	return &Handler{Services: services, store: store, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	respondError(c, h.logger, err)
}

// paramID разбирает положительный int64 из пути
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryID необязательный id из query string
func queryID(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return nil, false
	}
	return &id, true
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
