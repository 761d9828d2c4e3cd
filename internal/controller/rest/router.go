package rest

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	AllowOrigins    []string
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
}

// NewRouter собирает gin.Engine со всеми маршрутами /api
func NewRouter(h *Handler, cfg RouterConfig) (*gin.Engine, error) {
	if err := registerValidations(); err != nil {
		return nil, fmt.Errorf("register validations: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger), SecurityHeaders(), corsMiddleware(cfg.AllowOrigins))

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	caching := Cache(cache.New(cacheTTL, 2*cacheTTL), cacheTTL)

	authenticated := RequireAuth(h.Users, h.logger)
	tutorOnly := RequireRole(h.logger, model.RoleTutor)
	studentOnly := RequireRole(h.logger, model.RoleStudent)
	adminOnly := RequireRole(h.logger, model.RoleAdmin)

	r.GET("/health", h.Health)

	api := r.Group("/api")
	if cfg.RateLimitPerSec > 0 {
		api.Use(RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))
	}
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)

		api.GET("/tutors/:id", h.GetTutor)
		api.GET("/tutors/:id/slots", h.ListTutorSlots)
		api.GET("/tutors/:id/week.png", caching, h.WeekSchedule)
		api.GET("/tutors/:id/rating", h.TutorRating)
		api.GET("/tutors/:id/reviews", h.TutorReviews)
	}

	private := api.Group("")
	private.Use(authenticated)
	{
		private.POST("/logout", h.Logout)
		private.GET("/profile", h.GetProfile)
		private.PUT("/profile", h.UpdateProfile)
		private.POST("/profile/telegram-code", h.TelegramLinkCode)

		private.GET("/tutors", h.FindTutors)
		private.GET("/subjects", h.ListSubjects)
		private.GET("/classes", h.ListClasses)

		private.POST("/sessions", studentOnly, h.BookSlot)
		private.GET("/sessions", h.ListSessions)
		private.GET("/sessions/:id", h.GetSession)
		private.DELETE("/sessions/:id", h.CancelBooking)
		private.POST("/sessions/:id/reviews", studentOnly, h.SubmitReview)
	}

	tutor := api.Group("/tutor")
	tutor.Use(authenticated, tutorOnly)
	{
		tutor.POST("/slots", h.CreateSlot)
		tutor.GET("/slots", h.ListOwnSlots)
		tutor.DELETE("/slots/:id", h.DeleteSlot)
		tutor.POST("/slots/:id/cancel", h.CancelSlot)

		tutor.POST("/templates", h.CreateTemplateGroup)
		tutor.GET("/templates", h.ListTemplates)
		tutor.POST("/templates/:group/deactivate", h.DeactivateTemplateGroup)
		tutor.DELETE("/templates/:group", h.DeleteTemplateGroup)

		tutor.POST("/classes", h.AssignClasses)
		tutor.GET("/classes", h.ListOwnClasses)
	}

	admin := api.Group("/admin")
	admin.Use(authenticated, adminOnly)
	{
		admin.POST("/subjects", h.CreateSubject)
		admin.POST("/classes", h.CreateClass)
		admin.GET("/users", h.ListUsers)
		admin.POST("/users", h.AdminCreateUser)
		admin.PUT("/users/:id", h.AdminUpdateUser)
		admin.POST("/sessions/:id/complete", h.CompleteSession)
		admin.POST("/sweep", h.Sweep)
		admin.POST("/templates/generate", h.GenerateSlots)
	}

	return r, nil
}

// corsMiddleware без списка источников разрешает любой origin без credentials
func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	config.ExposeHeaders = []string{"Content-Length"}
	config.MaxAge = 12 * time.Hour

	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return cors.New(config)
}
