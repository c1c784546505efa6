package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/internal/models"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
	"github.com/lmsplatform/lms/backend/go-services/internal/progress"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
)

// AdminHandler serves the admin dashboard. Mount behind RequireSession + RequireRole(admin).
type AdminHandler struct {
	analytics *progress.AnalyticsService
	profiles  profiles.Repository
}

func NewAdminHandler(a *progress.AnalyticsService, p profiles.Repository) *AdminHandler {
	return &AdminHandler{analytics: a, profiles: p}
}

func (h *AdminHandler) Register(rg gin.IRouter) {
	g := rg.Group("/admin")
	g.GET("/analytics", h.Analytics)
	g.PUT("/users/:id/role", h.SetRole)
}

func (h *AdminHandler) Analytics(c *gin.Context) {
	a, err := h.analytics.Monthly(c.Request.Context())
	if err != nil {
		logger.Errorf("analytics: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analytics"})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *AdminHandler) SetRole(c *gin.Context) {
	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	if err := h.profiles.SetRole(c.Request.Context(), c.Param("id"), req.Role); err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Errorf("set role: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "role": req.Role})
}
