package rest

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf сопоставляет категорию ошибки HTTP-статусу и коду ответа
func statusOf(err error) (int, string) {
	switch apperror.KindOf(err) {
	case apperror.ErrValidation:
		return http.StatusBadRequest, "validation_error"
	case apperror.ErrAuthentication:
		return http.StatusUnauthorized, "authentication_error"
	case apperror.ErrAuthorization:
		return http.StatusForbidden, "authorization_error"
	case apperror.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case apperror.ErrConflict:
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError пишет ошибку клиенту; детали внутренних ошибок остаются в логе
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, code := statusOf(err)

	msg := "internal server error"
	var appErr *apperror.Error
	if status != http.StatusInternalServerError {
		msg = err.Error()
		if errors.As(err, &appErr) {
			msg = appErr.Error()
		}
	} else {
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: code})
}

// bindError ответ на ошибку разбора или проверки тела запроса
func bindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error: translateValidationError(err),
		Code:  "validation_error",
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "validation_error"})
}
