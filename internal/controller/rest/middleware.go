package rest

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/auth"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// Authenticator проверяет bearer-токен
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Identity, error)
}

// RequireAuth кладёт Identity в контекст запроса
func RequireAuth(a Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, logger, apperror.Authentication("missing or malformed authorization header"))
			return
		}

		identity, err := a.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole пропускает только перечисленные роли; ставится после RequireAuth
func RequireRole(logger *zap.Logger, roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFrom(c)
		if identity == nil || !slices.Contains(roles, identity.Role) {
			respondError(c, logger, apperror.ErrForbiddenRole)
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*auth.Identity)
	return identity
}

// RequestLogger пишет строку лога на каждый запрос
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if identity := identityFrom(c); identity != nil {
			fields = append(fields, zap.Int64("user_id", identity.UserID))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("HTTP request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}

// SecurityHeaders базовые заголовки безопасности
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		c.Next()
	}
}
