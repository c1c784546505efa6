package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/internal/config"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses/handler"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses/service"
	"github.com/lmsplatform/lms/backend/go-services/internal/models"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
	"github.com/lmsplatform/lms/backend/go-services/internal/progress"
	"github.com/lmsplatform/lms/backend/go-services/internal/registration"
	"github.com/lmsplatform/lms/backend/go-services/internal/session"
	"github.com/lmsplatform/lms/backend/go-services/internal/storage"
	"github.com/lmsplatform/lms/backend/go-services/pkg/metrics"
	"github.com/lmsplatform/lms/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the HTTP surface needs. Avatars, Limiter and Checks are optional.
type Deps struct {
	Config    *config.Config
	Scope     session.ScopeDeps
	Profiles  profiles.Repository
	Catalog   service.Service
	Progress  *progress.Service
	Analytics *progress.AnalyticsService
	Avatars   *storage.Avatars
	// Limiter runs after the scope is opened so it can key on the signed-in user.
	Limiter gin.HandlerFunc
	// Global runs before every route, after logging and recovery.
	Global []gin.HandlerFunc
	// Checks are probed by /ready; a failing check makes the service not ready.
	Checks map[string]func(ctx context.Context) error
}

var startTime = time.Now()

// NewRouter builds the gin engine with every route of the service.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), metrics.Instrument())
	r.Use(d.Global...)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(d.Checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterSwagger(r)

	scoped := []gin.HandlerFunc{session.Middleware(d.Scope)}
	if d.Limiter != nil {
		scoped = append(scoped, d.Limiter)
	}

	// catalog reads are public, writes need an admin scope
	handler.RegisterCourseRoutes(r.Group("/", scoped...), d.Catalog,
		middleware.RequireSession(), middleware.RequireRole(models.RoleAdmin))

	NewAuthHandler(d.Config, registration.NewPending()).Register(r.Group("/", scoped...))

	api := r.Group("/api/v1", scoped...)
	api.Use(middleware.RequireSession())
	api.GET("/me", Me)
	NewProgressHandler(d.Progress).Register(api)
	if d.Avatars != nil {
		NewAvatarHandler(d.Avatars).Register(api)
	}
	NewAdminHandler(d.Analytics, d.Profiles).Register(api.Group("", middleware.RequireRole(models.RoleAdmin)))

	return r
}

// readiness returns 200 only when every check passes.
func readiness(checks map[string]func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			err := check(ctx)
			cancel()
			deps[name] = err == nil
			if err != nil {
				ready = false
			}
		}
		uptime := time.Since(startTime).String()
		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
	}
}
